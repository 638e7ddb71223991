package renderer

import (
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
)

// SceneState is a step of the scene lifecycle.
type SceneState int32

const (
	// SceneStateUninitialized is the state of a scene that has not been set up.
	SceneStateUninitialized SceneState = iota

	// SceneStateReady is the state of a set up scene between frames.
	SceneStateReady

	// SceneStateDrawing is the state of a scene while a frame updates and encodes it.
	SceneStateDrawing

	// SceneStateTornDown is the final state; the scene's GPU resources are released.
	SceneStateTornDown
)

// String returns the state name.
func (s SceneState) String() string {
	switch s {
	case SceneStateUninitialized:
		return "uninitialized"
	case SceneStateReady:
		return "ready"
	case SceneStateDrawing:
		return "drawing"
	case SceneStateTornDown:
		return "torn down"
	default:
		return fmt.Sprintf("SceneState(%d)", int32(s))
	}
}

// Lifecycle holds a scene's state and enforces its transitions:
//
//	Uninitialized -> Ready -> (Drawing <-> Ready) -> TornDown
type Lifecycle struct {
	state atomic.Int32
}

// State returns the current state.
func (l *Lifecycle) State() SceneState {
	return SceneState(l.state.Load())
}

// Transition moves from one state to another if the lifecycle is currently in from and the
// transition is legal.
//
// Parameters:
//   - from: the expected current state
//   - to: the next state
//
// Returns:
//   - bool: true if the transition happened
func (l *Lifecycle) Transition(from, to SceneState) bool {
	if !legalTransition(from, to) {
		return false
	}
	return l.state.CompareAndSwap(int32(from), int32(to))
}

// MustTransition is Transition that panics when the transition does not happen. The renderer
// uses it for transitions that can only fail through misuse, such as driving one scene from
// two frames at once.
//
// Parameters:
//   - from: the expected current state
//   - to: the next state
func (l *Lifecycle) MustTransition(from, to SceneState) {
	if !l.Transition(from, to) {
		panic(fmt.Sprintf("renderer: illegal scene transition %s -> %s (state %s)", from, to, l.State()))
	}
}

func legalTransition(from, to SceneState) bool {
	switch from {
	case SceneStateUninitialized:
		return to == SceneStateReady || to == SceneStateTornDown
	case SceneStateReady:
		return to == SceneStateDrawing || to == SceneStateTornDown
	case SceneStateDrawing:
		return to == SceneStateReady
	}
	return false
}

// Scene is one demo drawn by the renderer. The renderer drives exactly one active scene and
// owns every transition of its Lifecycle.
//
// Setup runs once before the first Update. Each frame the renderer calls Update, writes the
// bytes returned by Uniforms into the frame's uniform slot, then calls Encode. Encode may only
// record draw and bind commands. DrawableResized, KeyDown and KeyUp are delivered between
// frames, never during one.
type Scene interface {
	// Name returns a short identifier for logging.
	Name() string

	// Lifecycle returns the scene's lifecycle state holder.
	Lifecycle() *Lifecycle

	// Setup creates the scene's resources from the shared render context.
	//
	// Parameters:
	//   - ctx: the renderer context
	//
	// Returns:
	//   - error: an error if a resource could not be created
	Setup(ctx *Context) error

	// DrawableResized recomputes the projection for a new drawable size.
	//
	// Parameters:
	//   - size: the drawable size in pixels
	DrawableResized(size common.Size)

	// KeyDown handles a key press.
	//
	// Parameters:
	//   - code: the key code
	KeyDown(code uint32)

	// KeyUp handles a key release.
	//
	// Parameters:
	//   - code: the key code
	KeyUp(code uint32)

	// Update advances camera and model state.
	//
	// Parameters:
	//   - timeElapsed: seconds since the previous frame
	Update(timeElapsed float32)

	// Uniforms returns the frame's uniform slot contents, laid out from offset 0 of the slot.
	//
	// Returns:
	//   - []byte: the uniform bytes, at most one slot long
	Uniforms() []byte

	// Encode records the scene's draw commands.
	//
	// Parameters:
	//   - enc: the open render pass encoder
	//   - binding: the uniform buffer and offsets of this frame's slot
	Encode(enc backend.RenderEncoder, binding backend.UniformBinding)

	// Teardown releases the scene's resources. It runs once, after every frame that drew
	// the scene has completed on the GPU.
	Teardown()
}

// BaseScene implements the bookkeeping part of Scene. Concrete scenes embed it.
type BaseScene struct {
	name      string
	lifecycle *Lifecycle
}

// NewBaseScene creates the embeddable base of a scene.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - BaseScene: the base
func NewBaseScene(name string) BaseScene {
	return BaseScene{name: name, lifecycle: &Lifecycle{}}
}

// Name returns the scene name.
func (b BaseScene) Name() string {
	return b.name
}

// Lifecycle returns the scene lifecycle.
func (b BaseScene) Lifecycle() *Lifecycle {
	return b.lifecycle
}

// State is shorthand for Lifecycle().State().
func (b BaseScene) State() SceneState {
	return b.lifecycle.State()
}
