package renderer

import (
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/frame_sync"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/uniform_pool"
)

// Frame is one frame between BeginFrame and EndFrame. Its uniform slot index is always the
// slot whose previous reader completed before Token was granted.
type Frame struct {
	// Token is the admission token; EndFrame hands its release to the GPU completion handler.
	Token frame_sync.FrameToken

	// Slot is the uniform slot written by this frame.
	Slot uniform_pool.UniformSlot

	// Buffer is the frame-boundary command buffer.
	Buffer backend.CommandBuffer

	// Drawable is the surface image presented when the buffer completes.
	Drawable backend.Drawable

	// Binding locates this frame's uniform blocks for Scene.Encode.
	Binding backend.UniformBinding

	scene Scene
}

// Index returns the uniform slot index of the frame.
func (f *Frame) Index() int {
	return f.Slot.Index
}

// Scene returns the scene drawn by this frame.
func (f *Frame) Scene() Scene {
	return f.scene
}
