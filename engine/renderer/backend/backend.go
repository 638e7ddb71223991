// Package backend defines the narrow device surface consumed by the frame pacing core,
// together with a WebGPU implementation and a simulated headless implementation.
package backend

import (
	"context"
	"errors"

	"github.com/Carmen-Shannon/oxy-pacer/common"
)

var (
	// ErrResourceExhausted is returned when the device cannot allocate a command buffer,
	// buffer or other handle.
	ErrResourceExhausted = errors.New("backend: device resources exhausted")

	// ErrNoDrawable is returned when the surface has no presentable image available.
	ErrNoDrawable = errors.New("backend: no drawable available")

	// ErrAlreadyCommitted is returned when a command buffer is encoded into or committed after Commit.
	ErrAlreadyCommitted = errors.New("backend: command buffer already committed")

	// ErrDiscarded is returned when a discarded command buffer is encoded into or committed.
	ErrDiscarded = errors.New("backend: command buffer discarded")

	// ErrDeviceReleased is returned by operations on a released device.
	ErrDeviceReleased = errors.New("backend: device released")

	// ErrOutOfBounds is returned when a buffer write does not fit inside the buffer.
	ErrOutOfBounds = errors.New("backend: write out of bounds")
)

// Buffer is a device-resident memory region.
type Buffer interface {
	Label() string
	Size() uint64
	Release()
}

// Texture is a sampled 2D RGBA texture.
type Texture interface {
	Label() string
	Width() uint32
	Height() uint32
	Release()
}

// PipelineDescriptor describes one of the built-in draw techniques.
type PipelineDescriptor struct {
	Label       string
	Technique   Technique
	ColorFormat PixelFormat
	DepthFormat PixelFormat

	// VertexStride is the byte stride of one vertex in the bound vertex buffer.
	VertexStride uint64
	// VertexUniformSize is the byte size of the vertex stage uniform block read per draw.
	VertexUniformSize uint64
	// FragmentUniformSize is the byte size of the fragment stage uniform block read per draw.
	FragmentUniformSize uint64
}

// Pipeline is a compiled render pipeline state object.
type Pipeline interface {
	Label() string
	Descriptor() PipelineDescriptor
	Release()
}

// ArgumentBufferDescriptor groups the resources bound by the argumented technique.
type ArgumentBufferDescriptor struct {
	Label    string
	Pipeline Pipeline
	Uniforms Buffer
	Texture  Texture
}

// ArgumentBuffer is a single binding that carries uniforms, texture and sampler together.
type ArgumentBuffer interface {
	Label() string
	Uniforms() Buffer
	Release()
}

// UniformBinding locates the two uniform blocks of a draw inside a uniform buffer.
// The offsets must be multiples of the device uniform alignment.
type UniformBinding struct {
	Buffer         Buffer
	VertexOffset   uint64
	FragmentOffset uint64
}

// Drawable is the next presentable surface image.
type Drawable interface {
	Size() common.Size
	Format() PixelFormat

	// Discard returns a drawable that will not be presented to its surface.
	// It is a no-op once the drawable was presented or discarded.
	Discard()
}

// RenderEncoder records draw commands for a single render pass.
type RenderEncoder interface {
	SetPipeline(p Pipeline)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetUniforms(binding UniformBinding)
	SetTexture(tex Texture)
	SetArgumentBuffer(ab ArgumentBuffer, binding UniformBinding)
	// Draw issues vertexCount vertices for instanceCount instances starting at firstInstance.
	Draw(vertexCount, instanceCount, firstInstance uint32)
	End()
}

// CommandBuffer is a schedulable unit of GPU work. It is created per frame and never reused.
type CommandBuffer interface {
	Label() string

	// BeginRenderPass starts a pass that clears and draws into the drawable.
	BeginRenderPass(target Drawable, clear [4]float64) (RenderEncoder, error)

	// PresentDrawable requests presentation of the drawable once this buffer has executed.
	PresentDrawable(d Drawable)

	// AddCompletedHandler registers fn to run once, after the device finishes executing the buffer.
	// Handlers run in registration order on a device notification goroutine.
	AddCompletedHandler(fn func(err error))

	// Commit submits the buffer to its queue. Handlers and presentation must be attached first.
	Commit() error

	// Discard abandons an uncommitted buffer: an open pass is ended, the encoder released and
	// any drawable it targets discarded. Completed handlers never run. No-op after Commit.
	Discard()
}

// CommandQueue creates command buffers. Buffers committed to one queue execute in commit order.
type CommandQueue interface {
	NewCommandBuffer(label string) (CommandBuffer, error)
}

// Surface yields drawables in the surface pixel format.
type Surface interface {
	Format() PixelFormat
	Size() common.Size
	Resize(size common.Size) error
	NextDrawable() (Drawable, error)
}

// Device is the graphics device handle shared by every renderer component.
type Device interface {
	Name() string
	NewBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	NewTexture(label string, data common.TextureStagingData) (Texture, error)
	NewPipeline(desc PipelineDescriptor) (Pipeline, error)
	NewArgumentBuffer(desc ArgumentBufferDescriptor) (ArgumentBuffer, error)
	CommandQueue() CommandQueue
	Surface() Surface
	DepthFormat() PixelFormat

	// UniformAlignment is the required alignment of uniform block offsets in bytes.
	UniformAlignment() uint64

	// WaitIdle blocks until every committed command buffer has completed or ctx is done.
	WaitIdle(ctx context.Context) error

	Release()
}
