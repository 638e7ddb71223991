package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-pacer/common"
)

// RendererBuilderOption is a functional option for configuring a Renderer via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithMaxFramesInFlight sets N, the number of frames that may be prepared or executing at once.
// It is also the number of uniform slots.
//
// Parameters:
//   - n: frames in flight, typically 2 or 3
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithMaxFramesInFlight(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.maxFramesInFlight = n
	}
}

// WithUniformSlotSize sets the unaligned size of one uniform slot. It must hold the largest
// Uniforms() result of any scene.
//
// Parameters:
//   - size: the slot size in bytes
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithUniformSlotSize(size uint64) RendererBuilderOption {
	return func(r *renderer) {
		r.slotSize = size
	}
}

// WithAcquireTimeout bounds how long BeginFrame waits for a frame slot before reporting the
// device as lost. Zero waits forever.
//
// Parameters:
//   - d: the timeout
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithAcquireTimeout(d time.Duration) RendererBuilderOption {
	return func(r *renderer) {
		r.acquireTimeout = d
	}
}

// WithClearColor sets the color the render pass clears to.
//
// Parameters:
//   - c: RGBA clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithClearColor(c [4]float64) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithTextures registers image textures in the render context in addition to the defaults.
//
// Parameters:
//   - textures: the textures to decode and upload
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithTextures(textures ...common.ImportedTexture) RendererBuilderOption {
	return func(r *renderer) {
		r.textures = append(r.textures, textures...)
	}
}

// WithRetireWorkers sets the number of workers that tear down retired scenes.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithRetireWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.retireWorkers = n
	}
}
