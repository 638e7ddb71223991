package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var errNotInitialized = errors.New("window is not initialized")

// glfwWindow holds the GLFW handle. It is only touched from the thread that created it.
type glfwWindow struct {
	window  *glfw.Window
	running bool
}

// glfwLimit maps a zero bound to glfw.DontCare.
func glfwLimit(v float32) int {
	if v <= 0 {
		return glfw.DontCare
	}
	return int(v)
}

func glfwKeyAction(action glfw.Action) keyAction {
	switch action {
	case glfw.Press:
		return keyPressed
	case glfw.Release:
		return keyReleased
	default:
		return keyRepeated
	}
}

// newPlatformWindow creates a GLFW window without a client API, since WebGPU drives the
// surface, and routes its callbacks into w.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(int(w.size.Width), int(w.size.Height), w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("create GLFW window: %w", err)
	}

	gw := &glfwWindow{window: win, running: true}
	w.internalWindow = gw

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyUnknown {
			return
		}
		if w.handleKey(uint32(key), glfwKeyAction(action)) {
			gw.running = false
			win.SetShouldClose(true)
		}
	})
	win.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		w.handleFocus(focused)
	})
	// Framebuffer size, not window size: they differ on high-DPI displays and the surface needs pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.handleResize(width, height)
	})
	win.SetIconifyCallback(func(gwin *glfw.Window, iconified bool) {
		fbWidth, fbHeight := gwin.GetFramebufferSize()
		w.handleIconify(iconified, fbWidth, fbHeight)
	})

	win.SetSizeLimits(glfwLimit(w.minSize.Width), glfwLimit(w.minSize.Height), glfwLimit(w.maxSize.Width), glfwLimit(w.maxSize.Height))

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.mu.Lock()
	w.size.Width, w.size.Height = float32(fbWidth), float32(fbHeight)
	w.mu.Unlock()
	return nil
}

// platformGetSurfaceDescriptor builds the surface descriptor through the wgpuglfw bridge,
// which covers Windows, X11, Wayland and macOS.
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func platformIsRunningCheck(w *engineWindow) bool {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return false
	}
	return gw.running && !gw.window.ShouldClose()
}

// platformCloseWindow destroys the window and terminates GLFW.
//
// Parameters:
//   - w: the engineWindow to close
//
// Returns:
//   - error: errNotInitialized if no platform window exists
func platformCloseWindow(w *engineWindow) error {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return errNotInitialized
	}
	w.internalWindow = nil
	gw.running = false
	gw.window.Destroy()
	glfw.Terminate()
	return nil
}

// platformProcessMessages polls pending events without blocking and reports whether the
// window is still open.
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
