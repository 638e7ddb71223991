package backend

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/cogentcore/webgpu/wgpu"
)

const pollInterval = time.Millisecond

type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpuSurface

	presentMode          wgpu.PresentMode
	forceFallbackAdapter bool
	alignment            uint64
	sampler              *wgpu.Sampler

	cmdQueue *wgpuQueue

	pending  *atomic.Int64
	pollQuit chan struct{}
	wg       *sync.WaitGroup
	once     *sync.Once
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice creates a WebGPU device presenting to the surface described by surfaceDescriptor.
// The calling goroutine is locked to its OS thread, as the window system requires.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, usually from wgpuglfw.GetSurfaceDescriptor
//   - size: the initial drawable size in pixels
//   - options: variadic list of WGPUDeviceBuilderOption functions
//
// Returns:
//   - Device: the new device
//   - error: an error if no adapter or device could be created
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, size common.Size, options ...WGPUDeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		pending:     &atomic.Int64{},
		pollQuit:    make(chan struct{}),
		wg:          &sync.WaitGroup{},
		once:        &sync.Once{},
	}
	for _, opt := range options {
		opt(d)
	}

	d.surface = &wgpuSurface{device: d, surface: d.instance.CreateSurface(surfaceDescriptor)}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()
	d.cmdQueue = &wgpuQueue{device: d}

	d.alignment = uint64(a.GetLimits().Limits.MinUniformBufferOffsetAlignment)
	if d.alignment == 0 {
		d.alignment = 256
	}

	d.sampler, err = dev.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Default Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	if err := d.surface.Resize(size); err != nil {
		return nil, err
	}

	d.wg.Add(1)
	go d.poll()

	return d, nil
}

// poll drives completion callbacks. wgpu-native only reports finished work while the
// device is polled, so this goroutine is the notification context for every handler.
func (d *wgpuDevice) poll() {
	defer d.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.pollQuit:
			return
		case <-ticker.C:
			if d.pending.Load() == 0 {
				continue
			}
			d.mu.Lock()
			d.device.Poll(false, nil)
			d.mu.Unlock()
		}
	}
}

func (d *wgpuDevice) Name() string {
	return "wgpu"
}

func (d *wgpuDevice) NewBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var u wgpu.BufferUsage = wgpu.BufferUsageCopyDst
	if usage&BufferUsageVertex != 0 {
		u |= wgpu.BufferUsageVertex
	}
	if usage&BufferUsageUniform != 0 {
		u |= wgpu.BufferUsageUniform
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: u,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: buffer %q: %v", ErrResourceExhausted, label, err)
	}
	return &wgpuBuffer{label: label, size: size, buffer: buf}, nil
}

func (d *wgpuDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("wgpu: foreign buffer %T", buf)
	}
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("%w: [%d, %d) in %q of %d bytes", ErrOutOfBounds, offset, offset+uint64(len(data)), wb.label, wb.size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.WriteBuffer(wb.buffer, offset, data)
}

func (d *wgpuDevice) NewTexture(label string, data common.TextureStagingData) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{label: label, width: data.Width, height: data.Height, texture: tex, view: view}, nil
}

func hasLayoutEntry(groups [][]wgpu.BindGroupLayoutEntry, group, binding int) bool {
	if group >= len(groups) {
		return false
	}
	for _, e := range groups[group] {
		if int(e.Binding) == binding {
			return true
		}
	}
	return false
}

func (d *wgpuDevice) NewPipeline(desc PipelineDescriptor) (Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var groups [][]wgpu.BindGroupLayoutEntry
	uniformEntries := []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   desc.VertexUniformSize,
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   desc.FragmentUniformSize,
			},
		},
	}
	textureEntries := func(first uint32) []wgpu.BindGroupLayoutEntry {
		return []wgpu.BindGroupLayoutEntry{
			{
				Binding:    first,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    first + 1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		}
	}

	switch desc.Technique {
	case TechniqueTexturedMesh:
		groups = [][]wgpu.BindGroupLayoutEntry{uniformEntries, textureEntries(0)}
	case TechniqueArgumentedTexturedMesh:
		groups = [][]wgpu.BindGroupLayoutEntry{append(uniformEntries, textureEntries(2)...)}
	default:
		return nil, fmt.Errorf("wgpu: unknown technique %v", desc.Technique)
	}

	source, decls, err := ShaderSource(desc.Technique)
	if err != nil {
		return nil, err
	}
	for _, decl := range decls {
		if !hasLayoutEntry(groups, decl.Group, decl.Binding) {
			return nil, fmt.Errorf("wgpu: %s declares group %d binding %d with no layout entry", desc.Technique, decl.Group, decl.Binding)
		}
	}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}

	layouts := make([]*wgpu.BindGroupLayout, len(groups))
	for g, entries := range groups {
		layout, layoutErr := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", desc.Label, g),
			Entries: entries,
		})
		if layoutErr != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		layouts[g] = layout
	}

	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: desc.VertexStride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    pixelFormatToWGPU(desc.ColorFormat),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            pixelFormatToWGPU(desc.DepthFormat),
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &wgpuPipeline{
		desc:       desc,
		pipeline:   created,
		layouts:    layouts,
		uniformBGs: make(map[*wgpuBuffer]*wgpu.BindGroup),
		textureBGs: make(map[*wgpuTexture]*wgpu.BindGroup),
	}, nil
}

func (d *wgpuDevice) NewArgumentBuffer(desc ArgumentBufferDescriptor) (ArgumentBuffer, error) {
	p, ok := desc.Pipeline.(*wgpuPipeline)
	if !ok || p.desc.Technique != TechniqueArgumentedTexturedMesh {
		return nil, errors.New("wgpu: argument buffer requires an argumented pipeline")
	}
	buf, ok := desc.Uniforms.(*wgpuBuffer)
	if !ok {
		return nil, fmt.Errorf("wgpu: foreign buffer %T", desc.Uniforms)
	}
	tex, ok := desc.Texture.(*wgpuTexture)
	if !ok {
		return nil, fmt.Errorf("wgpu: foreign texture %T", desc.Texture)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  desc.Label,
		Layout: p.layouts[0],
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf.buffer, Offset: 0, Size: p.desc.VertexUniformSize},
			{Binding: 1, Buffer: buf.buffer, Offset: 0, Size: p.desc.FragmentUniformSize},
			{Binding: 2, TextureView: tex.view},
			{Binding: 3, Sampler: d.sampler},
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuArgumentBuffer{desc: desc, bindGroup: bg}, nil
}

func (d *wgpuDevice) CommandQueue() CommandQueue {
	return d.cmdQueue
}

func (d *wgpuDevice) Surface() Surface {
	return d.surface
}

func (d *wgpuDevice) DepthFormat() PixelFormat {
	return PixelFormatDepth24Plus
}

func (d *wgpuDevice) UniformAlignment() uint64 {
	return d.alignment
}

func (d *wgpuDevice) WaitIdle(ctx context.Context) error {
	for d.pending.Load() > 0 {
		d.mu.Lock()
		d.device.Poll(true, nil)
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

func (d *wgpuDevice) Release() {
	d.once.Do(func() {
		close(d.pollQuit)
		d.wg.Wait()

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.surface.depthView != nil {
			d.surface.depthView.Release()
			d.surface.depthTexture.Release()
		}
		d.sampler.Release()
		d.queue.Release()
		d.device.Release()
		d.adapter.Release()
		d.surface.surface.Release()
		d.instance.Release()
	})
}

// bindUniformGroup returns the cached group 0 bind group of p for buf.
func (d *wgpuDevice) bindUniformGroup(p *wgpuPipeline, buf *wgpuBuffer) (*wgpu.BindGroup, error) {
	if bg, ok := p.uniformBGs[buf]; ok {
		return bg, nil
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  p.desc.Label + " Uniforms",
		Layout: p.layouts[0],
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf.buffer, Offset: 0, Size: p.desc.VertexUniformSize},
			{Binding: 1, Buffer: buf.buffer, Offset: 0, Size: p.desc.FragmentUniformSize},
		},
	})
	if err != nil {
		return nil, err
	}
	p.uniformBGs[buf] = bg
	return bg, nil
}

// bindTextureGroup returns the cached group 1 bind group of p for tex.
func (d *wgpuDevice) bindTextureGroup(p *wgpuPipeline, tex *wgpuTexture) (*wgpu.BindGroup, error) {
	if bg, ok := p.textureBGs[tex]; ok {
		return bg, nil
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  p.desc.Label + " " + tex.label,
		Layout: p.layouts[1],
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: tex.view},
			{Binding: 1, Sampler: d.sampler},
		},
	})
	if err != nil {
		return nil, err
	}
	p.textureBGs[tex] = bg
	return bg, nil
}

type wgpuSurface struct {
	device  *wgpuDevice
	surface *wgpu.Surface

	format       wgpu.TextureFormat
	size         common.Size
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView
}

// Resize is a wrapper for boilerplate logic required when calling Configure on a surface.
// It also recreates the depth attachment at the new size.
func (s *wgpuSurface) Resize(size common.Size) error {
	if size.Empty() {
		return nil
	}
	d := s.device
	d.mu.Lock()
	defer d.mu.Unlock()

	capabilities := s.surface.GetCapabilities(d.adapter)
	s.format = capabilities.Formats[0]
	s.size = size

	s.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      s.format,
		Width:       uint32(size.Width),
		Height:      uint32(size.Height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if s.depthView != nil {
		s.depthView.Release()
		s.depthTexture.Release()
	}
	depthTexture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(size.Width),
			Height:             uint32(size.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	s.depthTexture = depthTexture
	s.depthView, err = depthTexture.CreateView(nil)
	return err
}

func (s *wgpuSurface) Format() PixelFormat {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	return pixelFormatFromWGPU(s.format)
}

func (s *wgpuSurface) Size() common.Size {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	return s.size
}

func (s *wgpuSurface) NextDrawable() (Drawable, error) {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()

	surfaceTexture, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDrawable, err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("%w: %v", ErrNoDrawable, err)
	}
	return &wgpuDrawable{
		device:    s.device,
		texture:   surfaceTexture,
		view:      view,
		depthView: s.depthView,
		size:      s.size,
		format:    pixelFormatFromWGPU(s.format),
	}, nil
}

type wgpuDrawable struct {
	device    *wgpuDevice
	released  bool
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	depthView *wgpu.TextureView
	size      common.Size
	format    PixelFormat
}

func (d *wgpuDrawable) Size() common.Size   { return d.size }
func (d *wgpuDrawable) Format() PixelFormat { return d.format }

func (d *wgpuDrawable) Discard() {
	d.device.mu.Lock()
	defer d.device.mu.Unlock()
	d.releaseLocked()
}

// releaseLocked drops the view and surface texture once. The device lock must be held.
func (d *wgpuDrawable) releaseLocked() {
	if d.released {
		return
	}
	d.released = true
	d.view.Release()
	d.texture.Release()
}

type wgpuQueue struct {
	device *wgpuDevice
}

func (q *wgpuQueue) NewCommandBuffer(label string) (CommandBuffer, error) {
	q.device.mu.Lock()
	defer q.device.mu.Unlock()

	encoder, err := q.device.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("%w: command buffer %q: %v", ErrResourceExhausted, label, err)
	}
	return &wgpuCommandBuffer{device: q.device, label: label, encoder: encoder}, nil
}

type wgpuCommandBuffer struct {
	device    *wgpuDevice
	label     string
	encoder   *wgpu.CommandEncoder
	pass      *wgpuEncoder
	target    *wgpuDrawable
	drawable  *wgpuDrawable
	handlers  []func(error)
	committed bool
	discarded bool
}

func (cb *wgpuCommandBuffer) Label() string {
	return cb.label
}

func (cb *wgpuCommandBuffer) BeginRenderPass(target Drawable, clear [4]float64) (RenderEncoder, error) {
	if cb.committed {
		return nil, ErrAlreadyCommitted
	}
	if cb.discarded {
		return nil, ErrDiscarded
	}
	drawable, ok := target.(*wgpuDrawable)
	if !ok || drawable == nil {
		return nil, ErrNoDrawable
	}

	cb.device.mu.Lock()
	defer cb.device.mu.Unlock()

	pass := cb.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    drawable.view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: clear[0], G: clear[1], B: clear[2], A: clear[3],
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            drawable.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	cb.target = drawable
	cb.pass = &wgpuEncoder{device: cb.device, pass: pass}
	return cb.pass, nil
}

func (cb *wgpuCommandBuffer) PresentDrawable(d Drawable) {
	if wd, ok := d.(*wgpuDrawable); ok {
		cb.drawable = wd
	}
}

func (cb *wgpuCommandBuffer) AddCompletedHandler(fn func(err error)) {
	if cb.committed {
		common.Logger().Error("completed handler added after commit", "label", cb.label)
		return
	}
	cb.handlers = append(cb.handlers, fn)
}

func (cb *wgpuCommandBuffer) Commit() error {
	if cb.committed {
		return ErrAlreadyCommitted
	}
	if cb.discarded {
		return ErrDiscarded
	}
	cb.committed = true
	d := cb.device

	d.mu.Lock()
	defer d.mu.Unlock()

	commandBuffer, err := cb.encoder.Finish(nil)
	if err != nil {
		cb.encoder.Release()
		if cb.drawable != nil {
			cb.drawable.releaseLocked()
		}
		return fmt.Errorf("finish %q: %w", cb.label, err)
	}

	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	cb.encoder.Release()

	if cb.drawable != nil {
		d.surface.surface.Present()
		cb.drawable.releaseLocked()
	}

	handlers := cb.handlers
	label := cb.label
	d.pending.Add(1)
	d.queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
		var err error
		if status != wgpu.QueueWorkDoneStatusSuccess {
			err = fmt.Errorf("command buffer %q: work done status %v", label, status)
		}
		for _, h := range handlers {
			h(err)
		}
		d.pending.Add(-1)
	})
	return nil
}

func (cb *wgpuCommandBuffer) Discard() {
	if cb.committed || cb.discarded {
		return
	}
	cb.discarded = true
	if cb.pass != nil {
		cb.pass.End()
	}

	d := cb.device
	d.mu.Lock()
	defer d.mu.Unlock()
	cb.encoder.Release()
	if cb.target != nil {
		cb.target.releaseLocked()
	}
	if cb.drawable != nil {
		cb.drawable.releaseLocked()
	}
}

type wgpuEncoder struct {
	device   *wgpuDevice
	pass     *wgpu.RenderPassEncoder
	pipeline *wgpuPipeline
	ended    bool
}

func (e *wgpuEncoder) SetPipeline(p Pipeline) {
	wp, ok := p.(*wgpuPipeline)
	if !ok {
		return
	}
	e.pipeline = wp
	e.pass.SetPipeline(wp.pipeline)
}

func (e *wgpuEncoder) SetVertexBuffer(slot uint32, buf Buffer) {
	if wb, ok := buf.(*wgpuBuffer); ok {
		e.pass.SetVertexBuffer(slot, wb.buffer, 0, wgpu.WholeSize)
	}
}

func (e *wgpuEncoder) SetUniforms(binding UniformBinding) {
	wb, ok := binding.Buffer.(*wgpuBuffer)
	if !ok || e.pipeline == nil {
		return
	}
	e.device.mu.Lock()
	bg, err := e.device.bindUniformGroup(e.pipeline, wb)
	e.device.mu.Unlock()
	if err != nil {
		common.Logger().Error("uniform bind group", "pipeline", e.pipeline.desc.Label, "err", err)
		return
	}
	e.pass.SetBindGroup(0, bg, []uint32{uint32(binding.VertexOffset), uint32(binding.FragmentOffset)})
}

func (e *wgpuEncoder) SetTexture(tex Texture) {
	wt, ok := tex.(*wgpuTexture)
	if !ok || e.pipeline == nil || len(e.pipeline.layouts) < 2 {
		return
	}
	e.device.mu.Lock()
	bg, err := e.device.bindTextureGroup(e.pipeline, wt)
	e.device.mu.Unlock()
	if err != nil {
		common.Logger().Error("texture bind group", "pipeline", e.pipeline.desc.Label, "err", err)
		return
	}
	e.pass.SetBindGroup(1, bg, nil)
}

func (e *wgpuEncoder) SetArgumentBuffer(ab ArgumentBuffer, binding UniformBinding) {
	wab, ok := ab.(*wgpuArgumentBuffer)
	if !ok {
		return
	}
	e.pass.SetBindGroup(0, wab.bindGroup, []uint32{uint32(binding.VertexOffset), uint32(binding.FragmentOffset)})
}

func (e *wgpuEncoder) Draw(vertexCount, instanceCount, firstInstance uint32) {
	e.pass.Draw(vertexCount, instanceCount, 0, firstInstance)
}

func (e *wgpuEncoder) End() {
	if e.ended {
		return
	}
	e.ended = true
	e.pass.End()
	e.pass.Release()
}

type wgpuBuffer struct {
	label  string
	size   uint64
	buffer *wgpu.Buffer
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() uint64  { return b.size }
func (b *wgpuBuffer) Release()      { b.buffer.Release() }

type wgpuTexture struct {
	label         string
	width, height uint32
	texture       *wgpu.Texture
	view          *wgpu.TextureView
}

func (t *wgpuTexture) Label() string  { return t.label }
func (t *wgpuTexture) Width() uint32  { return t.width }
func (t *wgpuTexture) Height() uint32 { return t.height }
func (t *wgpuTexture) Release() {
	t.view.Release()
	t.texture.Release()
}

type wgpuPipeline struct {
	desc       PipelineDescriptor
	pipeline   *wgpu.RenderPipeline
	layouts    []*wgpu.BindGroupLayout
	uniformBGs map[*wgpuBuffer]*wgpu.BindGroup
	textureBGs map[*wgpuTexture]*wgpu.BindGroup
}

func (p *wgpuPipeline) Label() string                  { return p.desc.Label }
func (p *wgpuPipeline) Descriptor() PipelineDescriptor { return p.desc }
func (p *wgpuPipeline) Release() {
	for _, bg := range p.uniformBGs {
		bg.Release()
	}
	for _, bg := range p.textureBGs {
		bg.Release()
	}
	p.pipeline.Release()
}

type wgpuArgumentBuffer struct {
	desc      ArgumentBufferDescriptor
	bindGroup *wgpu.BindGroup
}

func (a *wgpuArgumentBuffer) Label() string    { return a.desc.Label }
func (a *wgpuArgumentBuffer) Uniforms() Buffer { return a.desc.Uniforms }
func (a *wgpuArgumentBuffer) Release()         { a.bindGroup.Release() }

func presentModeToWGPU(mode PresentMode) wgpu.PresentMode {
	switch mode {
	case PresentModeUncapped:
		return wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		return wgpu.PresentModeFifo
	}
}

func pixelFormatToWGPU(f PixelFormat) wgpu.TextureFormat {
	switch f {
	case PixelFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case PixelFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case PixelFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case PixelFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case PixelFormatDepth24Plus:
		return wgpu.TextureFormatDepth24Plus
	}
	return wgpu.TextureFormatUndefined
}

func pixelFormatFromWGPU(f wgpu.TextureFormat) PixelFormat {
	switch f {
	case wgpu.TextureFormatBGRA8Unorm:
		return PixelFormatBGRA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return PixelFormatBGRA8UnormSrgb
	case wgpu.TextureFormatRGBA8Unorm:
		return PixelFormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return PixelFormatRGBA8UnormSrgb
	case wgpu.TextureFormatDepth24Plus:
		return PixelFormatDepth24Plus
	}
	return PixelFormatUndefined
}
