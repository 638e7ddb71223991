package window

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-pacer/common"
)

// Window hosts the presentation surface and turns platform input into key and resize events.
// Callbacks run on the goroutine that calls ProcessMessages.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer size changes.
	// A minimized window reports an empty size, and restoring it reports the framebuffer size again.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer size in pixels
	SetResizeCallback(callback func(size common.Size))

	// SetKeyDownCallback sets the callback for key press events. Held keys do not repeat.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events. Keys still held when the window
	// loses focus are released through this callback.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SurfaceDescriptor returns the platform surface descriptor used to create the WebGPU surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never initialized
	Close() error

	// ProcessMessages pumps platform events on the calling goroutine, which must be the
	// goroutine that created the window. Blocks until the window is closed or ctx is done.
	//
	// Parameters:
	//   - ctx: stops the loop when done
	ProcessMessages(ctx context.Context)

	// Size returns the current framebuffer size in pixels. Safe to call from any goroutine.
	Size() common.Size
}

// engineWindow holds window settings, the last known framebuffer size and the event callbacks.
type engineWindow struct {
	title       string
	size        common.Size
	minSize     common.Size
	maxSize     common.Size
	escapeQuits bool

	// mu guards size, which the resize callback writes and the render goroutine reads.
	mu sync.Mutex

	keys *heldKeys

	// internalWindow holds the platform window (glfwWindow).
	internalWindow any

	onResize  func(size common.Size)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
}

var _ Window = &engineWindow{}

// newEngineWindow applies defaults and options without touching the platform.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:       "oxy-pacer",
		size:        common.Size{Width: 800, Height: 600},
		minSize:     common.Size{Width: 320, Height: 200},
		maxSize:     common.Size{Width: 3840, Height: 2160},
		escapeQuits: true,
		keys:        newHeldKeys(),
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// NewWindow creates the platform window. The calling goroutine is locked to its OS thread and
// must be the one that later runs ProcessMessages.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if w.size.Empty() {
		return nil, fmt.Errorf("window: invalid size %vx%v", w.size.Width, w.size.Height)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(size common.Size)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages(ctx context.Context) {
	for ctx.Err() == nil && platformProcessMessages(w) {
		runtime.Gosched()
	}
}

func (w *engineWindow) Size() common.Size {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// handleKey forwards a key transition to the callbacks.
//
// Parameters:
//   - code: the key code
//   - action: press, release or repeat
//
// Returns:
//   - bool: true if the window should close
func (w *engineWindow) handleKey(code uint32, action keyAction) bool {
	if w.escapeQuits && code == common.KeyEsc {
		return action == keyPressed
	}
	switch action {
	case keyPressed:
		if w.keys.press(code) && w.onKeyDown != nil {
			w.onKeyDown(code)
		}
	case keyReleased:
		if w.keys.release(code) && w.onKeyUp != nil {
			w.onKeyUp(code)
		}
	}
	return false
}

// handleFocus releases every held key when focus is lost; the platform will not deliver those releases.
func (w *engineWindow) handleFocus(focused bool) {
	if focused {
		return
	}
	for _, code := range w.keys.releaseAll() {
		if w.onKeyUp != nil {
			w.onKeyUp(code)
		}
	}
}

// handleResize records the framebuffer size and reports it when it changed.
func (w *engineWindow) handleResize(width, height int) {
	size := common.Size{Width: float32(max(width, 0)), Height: float32(max(height, 0))}
	w.mu.Lock()
	changed := size != w.size
	w.size = size
	w.mu.Unlock()
	if changed && w.onResize != nil {
		w.onResize(size)
	}
}

// handleIconify reports an empty size while minimized and the framebuffer size once restored.
func (w *engineWindow) handleIconify(iconified bool, fbWidth, fbHeight int) {
	if iconified {
		w.handleResize(0, 0)
		return
	}
	w.handleResize(fbWidth, fbHeight)
}
