package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pacer/common"
)

// UniformRead is the content of a uniform range as the simulated GPU saw it when the
// command buffer executed.
type UniformRead struct {
	Buffer string
	Offset uint64
	Data   []byte
}

// ExecutionRecord describes one command buffer executed by the headless device.
type ExecutionRecord struct {
	Seq       uint64
	Label     string
	Presented bool
	Draws     int
	Instances int
	Reads     []UniformRead
}

// HeadlessDevice is a Device that executes command buffers on an in-process FIFO and
// records what each one read. It detects CPU writes into ranges the queue has not yet consumed.
type HeadlessDevice interface {
	Device

	// Executed returns a copy of every execution record in completion order.
	Executed() []ExecutionRecord

	// Hazards returns the number of WriteBuffer calls that overlapped a pending GPU read.
	Hazards() int

	// Presented returns the number of drawables presented so far.
	Presented() uint64

	// PendingReads returns the number of uniform ranges referenced by committed but
	// not yet executed command buffers.
	PendingReads() int

	// FailNextCommandBuffers makes the next n NewCommandBuffer calls fail with ErrResourceExhausted.
	FailNextCommandBuffers(n int)

	// Discarded returns the number of command buffers discarded without being committed.
	Discarded() uint64

	// AcquiredDrawables returns the number of drawables handed out by the surface that were
	// neither presented nor discarded.
	AcquiredDrawables() int
}

type headlessDevice struct {
	mu       *sync.Mutex
	submitMu *sync.Mutex

	alignment uint64
	latency   func(seq uint64, label string) time.Duration
	immediate bool
	hook      func(label string)

	queue   *headlessQueue
	surface *headlessSurface

	seq       uint64
	failNext  int
	pending   int
	idle      chan struct{}
	reads     []pendingRead
	executed  []ExecutionRecord
	hazards   int
	presented uint64
	discarded uint64
	released  bool

	work chan *headlessCommandBuffer
	wg   *sync.WaitGroup
	once *sync.Once
}

type pendingRead struct {
	owner *headlessCommandBuffer
	readRange
}

type readRange struct {
	buf        *headlessBuffer
	start, end uint64
}

var _ HeadlessDevice = &headlessDevice{}

// NewHeadlessDevice creates a simulated device. Unless WithImmediateCompletion is given,
// a single goroutine executes committed command buffers in commit order.
//
// Parameters:
//   - options: variadic list of HeadlessDeviceBuilderOption functions
//
// Returns:
//   - HeadlessDevice: the new device
func NewHeadlessDevice(options ...HeadlessDeviceBuilderOption) HeadlessDevice {
	d := &headlessDevice{
		mu:        &sync.Mutex{},
		submitMu:  &sync.Mutex{},
		alignment: 256,
		idle:      make(chan struct{}),
		work:      make(chan *headlessCommandBuffer, 1024),
		wg:        &sync.WaitGroup{},
		once:      &sync.Once{},
		surface: &headlessSurface{
			mu:     &sync.Mutex{},
			size:   common.Size{Width: 800, Height: 600},
			format: PixelFormatBGRA8Unorm,
		},
	}
	d.queue = &headlessQueue{device: d}

	for _, opt := range options {
		opt(d)
	}

	if !d.immediate {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *headlessDevice) run() {
	defer d.wg.Done()
	for cb := range d.work {
		d.execute(cb)
	}
}

func (d *headlessDevice) execute(cb *headlessCommandBuffer) {
	if d.hook != nil {
		d.hook(cb.label)
	}
	if !d.immediate && d.latency != nil {
		if l := d.latency(cb.seq, cb.label); l > 0 {
			time.Sleep(l)
		}
	}

	d.mu.Lock()
	rec := ExecutionRecord{
		Seq:       cb.seq,
		Label:     cb.label,
		Presented: cb.drawable != nil,
		Draws:     cb.draws,
		Instances: cb.instances,
	}
	for _, r := range cb.ranges {
		data := make([]byte, r.end-r.start)
		copy(data, r.buf.data[r.start:r.end])
		rec.Reads = append(rec.Reads, UniformRead{Buffer: r.buf.label, Offset: r.start, Data: data})
	}
	kept := d.reads[:0]
	for _, p := range d.reads {
		if p.owner != cb {
			kept = append(kept, p)
		}
	}
	d.reads = kept
	if cb.drawable != nil {
		d.presented++
	}
	d.executed = append(d.executed, rec)
	handlers := cb.handlers
	d.mu.Unlock()

	if hd, ok := cb.drawable.(*headlessDrawable); ok {
		hd.finish()
	}

	for _, h := range handlers {
		h(nil)
	}

	d.mu.Lock()
	d.pending--
	if d.pending == 0 {
		close(d.idle)
		d.idle = make(chan struct{})
	}
	d.mu.Unlock()
}

func (d *headlessDevice) submit(cb *headlessCommandBuffer) error {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()

	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return ErrDeviceReleased
	}
	if cb.committed {
		d.mu.Unlock()
		return ErrAlreadyCommitted
	}
	if cb.discarded {
		d.mu.Unlock()
		return ErrDiscarded
	}
	cb.committed = true
	d.seq++
	cb.seq = d.seq
	for _, r := range cb.ranges {
		d.reads = append(d.reads, pendingRead{owner: cb, readRange: r})
	}
	d.pending++
	d.mu.Unlock()

	if d.immediate {
		d.execute(cb)
		return nil
	}
	d.work <- cb
	return nil
}

func (d *headlessDevice) Name() string {
	return "headless"
}

func (d *headlessDevice) NewBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil, ErrDeviceReleased
	}
	return &headlessBuffer{label: label, usage: usage, data: make([]byte, size)}, nil
}

func (d *headlessDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	hb, ok := buf.(*headlessBuffer)
	if !ok {
		return fmt.Errorf("headless: foreign buffer %T", buf)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	size := uint64(len(hb.data))
	if offset > size || uint64(len(data)) > size-offset {
		return fmt.Errorf("%w: %d bytes at offset %d in %q of %d bytes", ErrOutOfBounds, len(data), offset, hb.label, size)
	}
	end := offset + uint64(len(data))
	for _, p := range d.reads {
		if p.buf == hb && offset < p.end && end > p.start {
			d.hazards++
			common.Logger().Warn("write overlaps pending GPU read",
				"buffer", hb.label, "offset", offset, "size", len(data), "reader", p.owner.label)
			break
		}
	}
	copy(hb.data[offset:end], data)
	return nil
}

func (d *headlessDevice) NewTexture(label string, data common.TextureStagingData) (Texture, error) {
	if uint64(len(data.Pixels)) != uint64(data.Width)*uint64(data.Height)*4 {
		return nil, fmt.Errorf("headless: texture %q has %d bytes for %dx%d", label, len(data.Pixels), data.Width, data.Height)
	}
	return &headlessTexture{label: label, width: data.Width, height: data.Height}, nil
}

func (d *headlessDevice) NewPipeline(desc PipelineDescriptor) (Pipeline, error) {
	return &headlessPipeline{desc: desc}, nil
}

func (d *headlessDevice) NewArgumentBuffer(desc ArgumentBufferDescriptor) (ArgumentBuffer, error) {
	if desc.Uniforms == nil || desc.Texture == nil {
		return nil, fmt.Errorf("headless: argument buffer %q needs uniforms and texture", desc.Label)
	}
	return &headlessArgumentBuffer{desc: desc}, nil
}

func (d *headlessDevice) CommandQueue() CommandQueue {
	return d.queue
}

func (d *headlessDevice) Surface() Surface {
	return d.surface
}

func (d *headlessDevice) DepthFormat() PixelFormat {
	return PixelFormatDepth24Plus
}

func (d *headlessDevice) UniformAlignment() uint64 {
	return d.alignment
}

func (d *headlessDevice) WaitIdle(ctx context.Context) error {
	for {
		d.mu.Lock()
		if d.pending == 0 {
			d.mu.Unlock()
			return nil
		}
		ch := d.idle
		d.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *headlessDevice) Release() {
	d.once.Do(func() {
		d.submitMu.Lock()
		d.mu.Lock()
		d.released = true
		d.mu.Unlock()
		if !d.immediate {
			close(d.work)
		}
		d.submitMu.Unlock()
		d.wg.Wait()
	})
}

func (d *headlessDevice) Executed() []ExecutionRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ExecutionRecord, len(d.executed))
	copy(out, d.executed)
	return out
}

func (d *headlessDevice) Hazards() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hazards
}

func (d *headlessDevice) Presented() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presented
}

func (d *headlessDevice) Discarded() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.discarded
}

func (d *headlessDevice) AcquiredDrawables() int {
	d.surface.mu.Lock()
	defer d.surface.mu.Unlock()
	return d.surface.acquired
}

func (d *headlessDevice) PendingReads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.reads)
}

func (d *headlessDevice) FailNextCommandBuffers(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = n
}

type headlessQueue struct {
	device *headlessDevice
}

func (q *headlessQueue) NewCommandBuffer(label string) (CommandBuffer, error) {
	d := q.device
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil, ErrDeviceReleased
	}
	if d.failNext > 0 {
		d.failNext--
		return nil, fmt.Errorf("%w: command buffer %q", ErrResourceExhausted, label)
	}
	return &headlessCommandBuffer{device: d, label: label}, nil
}

type headlessCommandBuffer struct {
	device    *headlessDevice
	label     string
	seq       uint64
	committed bool
	discarded bool
	handlers  []func(error)
	target    Drawable
	drawable  Drawable
	ranges    []readRange
	draws     int
	instances int
}

func (cb *headlessCommandBuffer) Label() string {
	return cb.label
}

func (cb *headlessCommandBuffer) BeginRenderPass(target Drawable, clear [4]float64) (RenderEncoder, error) {
	cb.device.mu.Lock()
	defer cb.device.mu.Unlock()
	switch {
	case cb.committed:
		return nil, ErrAlreadyCommitted
	case cb.discarded:
		return nil, ErrDiscarded
	case target == nil:
		return nil, ErrNoDrawable
	}
	cb.target = target
	return &headlessEncoder{cb: cb}, nil
}

func (cb *headlessCommandBuffer) PresentDrawable(d Drawable) {
	cb.drawable = d
}

func (cb *headlessCommandBuffer) AddCompletedHandler(fn func(err error)) {
	cb.device.mu.Lock()
	defer cb.device.mu.Unlock()
	if cb.committed {
		common.Logger().Error("completed handler added after commit", "label", cb.label)
		return
	}
	cb.handlers = append(cb.handlers, fn)
}

func (cb *headlessCommandBuffer) Commit() error {
	return cb.device.submit(cb)
}

func (cb *headlessCommandBuffer) Discard() {
	d := cb.device
	d.mu.Lock()
	if cb.committed || cb.discarded {
		d.mu.Unlock()
		return
	}
	cb.discarded = true
	d.discarded++
	drawables := []Drawable{cb.target, cb.drawable}
	d.mu.Unlock()

	for _, dr := range drawables {
		if dr != nil {
			dr.Discard()
		}
	}
}

type headlessEncoder struct {
	cb       *headlessCommandBuffer
	pipeline *headlessPipeline
	ended    bool
}

func (e *headlessEncoder) SetPipeline(p Pipeline) {
	if hp, ok := p.(*headlessPipeline); ok {
		e.pipeline = hp
	}
}

func (e *headlessEncoder) SetVertexBuffer(slot uint32, buf Buffer) {}

func (e *headlessEncoder) SetUniforms(binding UniformBinding) {
	hb, ok := binding.Buffer.(*headlessBuffer)
	if !ok || e.pipeline == nil {
		return
	}
	e.recordRead(hb, binding.VertexOffset, e.pipeline.desc.VertexUniformSize)
	e.recordRead(hb, binding.FragmentOffset, e.pipeline.desc.FragmentUniformSize)
}

func (e *headlessEncoder) SetTexture(tex Texture) {}

func (e *headlessEncoder) SetArgumentBuffer(ab ArgumentBuffer, binding UniformBinding) {
	if binding.Buffer == nil && ab != nil {
		binding.Buffer = ab.Uniforms()
	}
	e.SetUniforms(binding)
}

func (e *headlessEncoder) recordRead(buf *headlessBuffer, offset, size uint64) {
	if size == 0 || offset >= uint64(len(buf.data)) {
		return
	}
	end := min(offset+size, uint64(len(buf.data)))
	e.cb.ranges = append(e.cb.ranges, readRange{buf: buf, start: offset, end: end})
}

func (e *headlessEncoder) Draw(vertexCount, instanceCount, firstInstance uint32) {
	if e.ended {
		return
	}
	e.cb.draws++
	e.cb.instances += int(instanceCount)
}

func (e *headlessEncoder) End() {
	e.ended = true
}

type headlessBuffer struct {
	label string
	usage BufferUsage
	data  []byte
}

func (b *headlessBuffer) Label() string { return b.label }
func (b *headlessBuffer) Size() uint64  { return uint64(len(b.data)) }
func (b *headlessBuffer) Release()      {}

type headlessTexture struct {
	label         string
	width, height uint32
}

func (t *headlessTexture) Label() string  { return t.label }
func (t *headlessTexture) Width() uint32  { return t.width }
func (t *headlessTexture) Height() uint32 { return t.height }
func (t *headlessTexture) Release()       {}

type headlessPipeline struct {
	desc PipelineDescriptor
}

func (p *headlessPipeline) Label() string                  { return p.desc.Label }
func (p *headlessPipeline) Descriptor() PipelineDescriptor { return p.desc }
func (p *headlessPipeline) Release()                       {}

type headlessArgumentBuffer struct {
	desc ArgumentBufferDescriptor
}

func (a *headlessArgumentBuffer) Label() string    { return a.desc.Label }
func (a *headlessArgumentBuffer) Uniforms() Buffer { return a.desc.Uniforms }
func (a *headlessArgumentBuffer) Release()         {}

type headlessSurface struct {
	mu       *sync.Mutex
	size     common.Size
	format   PixelFormat
	acquired int
}

func (s *headlessSurface) Format() PixelFormat {
	return s.format
}

func (s *headlessSurface) Size() common.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *headlessSurface) Resize(size common.Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = size
	return nil
}

func (s *headlessSurface) NextDrawable() (Drawable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size.Empty() {
		return nil, ErrNoDrawable
	}
	s.acquired++
	return &headlessDrawable{surface: s, size: s.size, format: s.format}, nil
}

type headlessDrawable struct {
	surface *headlessSurface
	size    common.Size
	format  PixelFormat
	done    bool
}

func (d *headlessDrawable) Size() common.Size   { return d.size }
func (d *headlessDrawable) Format() PixelFormat { return d.format }
func (d *headlessDrawable) Discard()            { d.finish() }

// finish hands the drawable back to its surface once, after presentation or discard.
func (d *headlessDrawable) finish() {
	d.surface.mu.Lock()
	defer d.surface.mu.Unlock()
	if d.done {
		return
	}
	d.done = true
	d.surface.acquired--
}
