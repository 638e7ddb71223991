package backend

import "fmt"

// BackendType identifies the GPU device implementation used by the Renderer.
type BackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based device.
	BackendTypeWGPU BackendType = iota

	// BackendTypeHeadless selects the simulated in-process device. It executes command
	// buffers on its own goroutine and never touches a real GPU.
	BackendTypeHeadless
)

// ParseBackendType maps a configuration string to a BackendType.
//
// Parameters:
//   - s: "wgpu" or "headless"
//
// Returns:
//   - BackendType: the matching backend type
//   - error: an error if the string is not a known backend
func ParseBackendType(s string) (BackendType, error) {
	switch s {
	case "wgpu", "":
		return BackendTypeWGPU, nil
	case "headless":
		return BackendTypeHeadless, nil
	}
	return 0, fmt.Errorf("unknown backend %q", s)
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps a configuration string to a PresentMode.
//
// Parameters:
//   - s: "vsync" or "uncapped"
//
// Returns:
//   - PresentMode: the matching mode
//   - error: an error if the string is not a known mode
func ParsePresentMode(s string) (PresentMode, error) {
	switch s {
	case "vsync", "":
		return PresentModeVSync, nil
	case "uncapped":
		return PresentModeUncapped, nil
	}
	return 0, fmt.Errorf("unknown present mode %q", s)
}

// PixelFormat is the texel format of a drawable or attachment.
type PixelFormat int

const (
	PixelFormatUndefined PixelFormat = iota
	PixelFormatBGRA8Unorm
	PixelFormatBGRA8UnormSrgb
	PixelFormatRGBA8Unorm
	PixelFormatRGBA8UnormSrgb
	PixelFormatDepth24Plus
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatBGRA8Unorm:
		return "bgra8unorm"
	case PixelFormatBGRA8UnormSrgb:
		return "bgra8unorm-srgb"
	case PixelFormatRGBA8Unorm:
		return "rgba8unorm"
	case PixelFormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case PixelFormatDepth24Plus:
		return "depth24plus"
	}
	return "undefined"
}

// BufferUsage describes how a device buffer will be bound.
type BufferUsage int

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageUniform
)

// Technique selects one of the built-in draw pipelines.
type Technique int

const (
	// TechniqueTexturedMesh binds uniforms, texture and sampler individually.
	TechniqueTexturedMesh Technique = iota

	// TechniqueArgumentedTexturedMesh binds every resource for a draw through a single
	// argument buffer.
	TechniqueArgumentedTexturedMesh
)

func (t Technique) String() string {
	switch t {
	case TechniqueTexturedMesh:
		return "drawTexturedMesh"
	case TechniqueArgumentedTexturedMesh:
		return "drawArgumentedTexturedMesh"
	}
	return fmt.Sprintf("technique(%d)", int(t))
}
