// Package renderer paces frames between the CPU frame loop and the GPU: it bounds the frames
// in flight, rotates the uniform slots and drives the active scene through its lifecycle.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/model"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/command_scheduler"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/frame_sync"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/uniform_pool"
)

var (
	// ErrFrameSkipped is returned when a frame was dropped because a resource could not be
	// created. The frame loop should continue with the next frame.
	ErrFrameSkipped = command_scheduler.ErrFrameSkipped

	// ErrNoScene is returned by BeginFrame before any scene was set.
	ErrNoScene = errors.New("renderer: no scene set")

	// ErrSceneState is returned by SetScene for a scene that was already set up.
	ErrSceneState = errors.New("renderer: scene is not uninitialized")

	// ErrFrameOpen is returned by BeginFrame while a previous frame is still open.
	ErrFrameOpen = errors.New("renderer: a frame is already open")

	// ErrUnknownFrame is returned by EndFrame for a frame that is not the open frame.
	ErrUnknownFrame = errors.New("renderer: frame is not the open frame")

	// ErrClosed is returned by every frame operation after Close.
	ErrClosed = errors.New("renderer: closed")
)

// Stats is a snapshot of frame pacing counters.
type Stats struct {
	Frames        uint64
	Completed     uint64
	Skipped       uint64
	Auxiliary     uint64
	InFlight      int
	Outstanding   int
	HighWatermark int
	Stalls        uint64
	SceneSwitches uint64
}

type keyEvent struct {
	code uint32
	down bool
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device            backend.Device
	maxFramesInFlight int
	slotSize          uint64
	acquireTimeout    time.Duration
	clearColor        [4]float64
	textures          []common.ImportedTexture
	retireWorkers     int

	synchronizer frame_sync.FrameSynchronizer
	pool         uniform_pool.UniformBufferPool
	scheduler    command_scheduler.CommandScheduler
	context      *Context

	retirePool worker.DynamicWorkerPool
	retiring   *sync.WaitGroup
	taskID     *atomic.Int64
	switches   *atomic.Uint64

	// frame loop state
	scene Scene
	frame *Frame

	// guarded by mu, applied at the next frame boundary
	pendingScene Scene
	pendingSize  *common.Size
	pendingKeys  []keyEvent
	closed       bool
}

// Renderer paces frames for one device and one presentation surface.
//
// BeginFrame, the Draw* methods, EndFrame and AbortFrame belong to a single frame loop
// goroutine. SetScene, DrawableResized, KeyDown, KeyUp and Stats may be called from any
// goroutine; their effects reach the scene at the next frame boundary, never during a frame.
//
// Each frame acquires a frame slot, advances the uniform ring, lets the scene update and write
// its uniforms into that ring slot, encodes the scene and submits the frame buffer with a
// completion handler that returns the slot. Because slots return in submission order, the ring
// slot written by frame k was last read by frame k-N, which has always completed.
type Renderer interface {
	// Context returns the render context shared by all scenes.
	Context() *Context

	// Scene returns the active scene, or nil before the first frame after SetScene.
	Scene() Scene

	// SetScene runs scene.Setup now and makes it the active scene at the next frame boundary.
	// The previous scene is torn down once every frame that drew it has completed.
	//
	// Parameters:
	//   - scene: an uninitialized scene
	//
	// Returns:
	//   - error: ErrSceneState, or the Setup error
	SetScene(scene Scene) error

	// DrawableResized records a new surface size. The surface and the active scene see it at
	// the next frame boundary.
	//
	// Parameters:
	//   - size: the new drawable size in pixels
	DrawableResized(size common.Size)

	// KeyDown queues a key press for the active scene.
	//
	// Parameters:
	//   - code: the key code
	KeyDown(code uint32)

	// KeyUp queues a key release for the active scene.
	//
	// Parameters:
	//   - code: the key code
	KeyUp(code uint32)

	// BeginFrame applies pending scene, size and key changes, then blocks until a frame slot
	// is free and opens the frame.
	//
	// Parameters:
	//   - ctx: cancels the wait for a frame slot
	//
	// Returns:
	//   - *Frame: the open frame
	//   - error: ErrFrameSkipped if the frame was dropped, or the acquire error
	BeginFrame(ctx context.Context) (*Frame, error)

	// DrawWithEncoder updates the scene, writes its uniforms into the frame's slot and encodes
	// it into an encoder the caller opened and will end.
	//
	// Parameters:
	//   - frame: the open frame
	//   - enc: an open render pass encoder on frame.Buffer
	//   - timeElapsed: seconds since the previous frame
	//
	// Returns:
	//   - error: an error if the uniforms could not be written
	DrawWithEncoder(frame *Frame, enc backend.RenderEncoder, timeElapsed float32) error

	// DrawWithCommandBuffer is DrawWithEncoder with the render pass opened on frame.Buffer
	// against frame.Drawable and ended afterwards.
	//
	// Parameters:
	//   - frame: the open frame
	//   - timeElapsed: seconds since the previous frame
	//
	// Returns:
	//   - error: ErrFrameSkipped if the render pass could not be opened
	DrawWithCommandBuffer(frame *Frame, timeElapsed float32) error

	// DrawWithCommandQueue runs a whole frame: BeginFrame, DrawWithCommandBuffer and EndFrame.
	//
	// Parameters:
	//   - ctx: cancels the wait for a frame slot
	//   - timeElapsed: seconds since the previous frame
	//
	// Returns:
	//   - error: ErrFrameSkipped for a dropped frame, or a fatal error
	DrawWithCommandQueue(ctx context.Context, timeElapsed float32) error

	// EndFrame presents the frame's drawable and submits its command buffer. The frame slot is
	// released when the GPU completes the buffer.
	//
	// Parameters:
	//   - frame: the open frame
	//
	// Returns:
	//   - error: ErrUnknownFrame, or ErrFrameSkipped if the commit failed
	EndFrame(frame *Frame) error

	// AbortFrame drops the open frame without submitting it.
	//
	// Parameters:
	//   - frame: the open frame
	AbortFrame(frame *Frame)

	// Scheduler returns the command scheduler, for auxiliary command buffers.
	Scheduler() command_scheduler.CommandScheduler

	// Stats returns a snapshot of the pacing counters.
	Stats() Stats

	// Close drains the GPU, tears down every scene and releases the renderer's resources.
	// The frame loop must have stopped.
	//
	// Parameters:
	//   - ctx: bounds the wait for in-flight frames and scene teardown
	//
	// Returns:
	//   - error: ctx.Err() if the GPU did not drain in time
	Close(ctx context.Context) error
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer on device with 3 frames in flight by default.
//
// Parameters:
//   - device: the graphics device
//   - options: variadic RendererBuilderOption functions
//
// Returns:
//   - Renderer: the new renderer
//   - error: an error if the frame gate, uniform ring or render context could not be created
func NewRenderer(device backend.Device, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:                &sync.Mutex{},
		device:            device,
		maxFramesInFlight: 3,
		slotSize:          model.UniformSlotSize,
		clearColor:        [4]float64{0.1, 0.1, 0.12, 1},
		retireWorkers:     1,
		retiring:          &sync.WaitGroup{},
		taskID:            &atomic.Int64{},
		switches:          &atomic.Uint64{},
	}
	for _, opt := range options {
		opt(r)
	}

	synchronizer, err := frame_sync.NewFrameSynchronizer(r.maxFramesInFlight, frame_sync.WithAcquireTimeout(r.acquireTimeout))
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.synchronizer = synchronizer

	pool, err := uniform_pool.NewUniformBufferPool(device, r.maxFramesInFlight, r.slotSize, uniform_pool.WithLabel("Frame Uniforms"))
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.pool = pool

	rc, err := newContext(device, pool.Buffer(), pool.Count(), r.textures)
	if err != nil {
		pool.Release()
		return nil, err
	}
	r.context = rc

	r.scheduler = command_scheduler.NewCommandScheduler(device.CommandQueue(), synchronizer)
	r.retirePool = worker.NewDynamicWorkerPool(r.retireWorkers, 256, 1*time.Second)

	common.Logger().Info("renderer created",
		"device", device.Name(),
		"framesInFlight", r.maxFramesInFlight,
		"slotSize", pool.SlotSize())
	return r, nil
}

func (r *renderer) Context() *Context {
	return r.context
}

func (r *renderer) Scene() Scene {
	return r.scene
}

func (r *renderer) Scheduler() command_scheduler.CommandScheduler {
	return r.scheduler
}

func (r *renderer) SetScene(scene Scene) error {
	if scene == nil {
		return errors.New("renderer: nil scene")
	}
	if state := scene.Lifecycle().State(); state != SceneStateUninitialized {
		return fmt.Errorf("%w: %s is %s", ErrSceneState, scene.Name(), state)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.mu.Unlock()

	if err := scene.Setup(r.context); err != nil {
		scene.Lifecycle().Transition(SceneStateUninitialized, SceneStateTornDown)
		return fmt.Errorf("renderer: setup %s: %w", scene.Name(), err)
	}
	scene.Lifecycle().MustTransition(SceneStateUninitialized, SceneStateReady)

	r.mu.Lock()
	replaced := r.pendingScene
	r.pendingScene = scene
	r.mu.Unlock()

	if replaced != nil {
		r.retire(replaced)
	}
	common.Logger().Info("scene queued", "scene", scene.Name())
	return nil
}

func (r *renderer) DrawableResized(size common.Size) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingSize = &size
}

func (r *renderer) KeyDown(code uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingKeys = append(r.pendingKeys, keyEvent{code: code, down: true})
}

func (r *renderer) KeyUp(code uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingKeys = append(r.pendingKeys, keyEvent{code: code, down: false})
}

// applyPending delivers everything queued since the previous frame boundary.
func (r *renderer) applyPending() {
	r.mu.Lock()
	next := r.pendingScene
	size := r.pendingSize
	keys := r.pendingKeys
	r.pendingScene = nil
	r.pendingSize = nil
	r.pendingKeys = nil
	r.mu.Unlock()

	surface := r.device.Surface()
	if size != nil {
		if err := surface.Resize(*size); err != nil {
			common.Logger().Error("surface resize failed", "width", size.Width, "height", size.Height, "err", err)
		}
	}

	if next != nil {
		prev := r.scene
		r.scene = next
		r.switches.Add(1)
		next.DrawableResized(surface.Size())
		if prev != nil {
			r.retire(prev)
		}
		common.Logger().Info("scene switched", "scene", next.Name())
	} else if size != nil && r.scene != nil {
		r.scene.DrawableResized(*size)
	}

	if r.scene == nil {
		return
	}
	for _, k := range keys {
		if k.down {
			r.scene.KeyDown(k.code)
		} else {
			r.scene.KeyUp(k.code)
		}
	}
}

// retire tears scene down on the retire pool after every frame submitted so far completes.
func (r *renderer) retire(scene Scene) {
	r.retiring.Add(1)
	r.scheduler.AfterInFlight(func() {
		r.retirePool.SubmitTask(worker.Task{
			ID: int(r.taskID.Add(1)),
			Do: func() (any, error) {
				defer r.retiring.Done()
				scene.Teardown()
				if !scene.Lifecycle().Transition(SceneStateReady, SceneStateTornDown) {
					common.Logger().Error("retired scene was not ready", "scene", scene.Name(), "state", scene.Lifecycle().State())
				}
				common.Logger().Info("scene retired", "scene", scene.Name())
				return nil, nil
			},
		})
	})
}

func (r *renderer) BeginFrame(ctx context.Context) (*Frame, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if r.frame != nil {
		return nil, ErrFrameOpen
	}

	r.applyPending()
	if r.scene == nil {
		return nil, ErrNoScene
	}

	token, err := r.synchronizer.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("renderer: acquire frame: %w", err)
	}

	index := r.pool.Advance()
	if want := int((token.Frame - 1) % uint64(r.pool.Count())); index != want {
		panic(fmt.Sprintf("renderer: uniform slot %d paired with frame %d (want slot %d)", index, token.Frame, want))
	}
	slot, err := r.pool.Slot(index)
	if err != nil {
		panic(err)
	}

	cb, err := r.scheduler.BeginFrame(token)
	if err != nil {
		return nil, err
	}

	drawable, err := r.device.Surface().NextDrawable()
	if err != nil {
		r.scheduler.AbortFrame()
		return nil, fmt.Errorf("%w: %w", ErrFrameSkipped, err)
	}

	r.frame = &Frame{
		Token:    token,
		Slot:     slot,
		Buffer:   cb,
		Drawable: drawable,
		Binding: backend.UniformBinding{
			Buffer:         r.pool.Buffer(),
			VertexOffset:   slot.ByteOffset + model.VertexBlockOffset,
			FragmentOffset: slot.ByteOffset + model.FragmentBlockOffset,
		},
		scene: r.scene,
	}
	return r.frame, nil
}

func (r *renderer) DrawWithEncoder(frame *Frame, enc backend.RenderEncoder, timeElapsed float32) error {
	if frame != r.frame || frame == nil {
		return ErrUnknownFrame
	}
	return r.draw(frame, timeElapsed, func() (backend.RenderEncoder, error) {
		return enc, nil
	}, false)
}

func (r *renderer) DrawWithCommandBuffer(frame *Frame, timeElapsed float32) error {
	if frame != r.frame || frame == nil {
		return ErrUnknownFrame
	}
	return r.draw(frame, timeElapsed, func() (backend.RenderEncoder, error) {
		enc, err := frame.Buffer.BeginRenderPass(frame.Drawable, r.clearColor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFrameSkipped, err)
		}
		return enc, nil
	}, true)
}

// draw moves the scene through Drawing: update, uniform upload into the frame's own slot,
// then encode. The encoder is opened after the upload.
func (r *renderer) draw(frame *Frame, timeElapsed float32, open func() (backend.RenderEncoder, error), end bool) error {
	lc := frame.scene.Lifecycle()
	lc.MustTransition(SceneStateReady, SceneStateDrawing)
	defer lc.MustTransition(SceneStateDrawing, SceneStateReady)

	frame.scene.Update(timeElapsed)
	if err := r.pool.WriteRegion(frame.Index(), 0, frame.scene.Uniforms()); err != nil {
		return fmt.Errorf("renderer: frame %d uniforms: %w", frame.Token.Frame, err)
	}

	enc, err := open()
	if err != nil {
		return err
	}
	frame.scene.Encode(enc, frame.Binding)
	if end {
		enc.End()
	}
	return nil
}

func (r *renderer) DrawWithCommandQueue(ctx context.Context, timeElapsed float32) error {
	frame, err := r.BeginFrame(ctx)
	if err != nil {
		return err
	}
	if err := r.DrawWithCommandBuffer(frame, timeElapsed); err != nil {
		r.AbortFrame(frame)
		return err
	}
	return r.EndFrame(frame)
}

func (r *renderer) EndFrame(frame *Frame) error {
	if frame == nil || frame != r.frame {
		return ErrUnknownFrame
	}
	r.frame = nil
	return r.scheduler.EndFrame(frame.Buffer, frame.Drawable)
}

func (r *renderer) AbortFrame(frame *Frame) {
	if frame == nil || frame != r.frame {
		return
	}
	r.frame = nil
	r.scheduler.AbortFrame()
	frame.Drawable.Discard()
}

func (r *renderer) Stats() Stats {
	st := r.scheduler.Stats()
	return Stats{
		Frames:        st.Submitted,
		Completed:     st.Completed,
		Skipped:       st.Skipped,
		Auxiliary:     st.Auxiliary,
		InFlight:      st.InFlight,
		Outstanding:   r.synchronizer.Outstanding(),
		HighWatermark: r.synchronizer.HighWatermark(),
		Stalls:        r.synchronizer.Stalls(),
		SceneSwitches: r.switches.Load(),
	}
}

func (r *renderer) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	pending := r.pendingScene
	r.pendingScene = nil
	r.mu.Unlock()

	if r.frame != nil {
		r.AbortFrame(r.frame)
	}
	if err := r.scheduler.Drain(ctx); err != nil {
		return fmt.Errorf("renderer: drain: %w", err)
	}

	for _, s := range []Scene{r.scene, pending} {
		if s != nil {
			r.retire(s)
		}
	}
	r.scene = nil

	done := make(chan struct{})
	go func() {
		r.retiring.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("renderer: scene teardown: %w", ctx.Err())
	}

	r.context.Release()
	r.pool.Release()
	common.Logger().Info("renderer closed", "frames", r.scheduler.Stats().Submitted)
	return nil
}
