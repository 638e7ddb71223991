// Package uniform_pool provides the ring of per-frame uniform regions shared by the CPU and GPU.
package uniform_pool

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
)

var (
	// ErrIndexOutOfRange is returned when a slot index is not in [0, Count).
	ErrIndexOutOfRange = errors.New("uniform_pool: slot index out of range")

	// ErrRegionOverflow is returned when a write does not fit inside its slot.
	ErrRegionOverflow = errors.New("uniform_pool: write overflows slot")
)

// UniformSlot is one per-frame region of the pool buffer.
type UniformSlot struct {
	Index      int
	ByteOffset uint64
	SizeBytes  uint64
}

// UniformBufferPool is a fixed ring of N uniform regions inside one device buffer.
//
// The pool performs no synchronization of its own. A caller may only write slot i after
// the frame that last read slot i has completed on the GPU, which the renderer guarantees
// by pairing every Advance with exactly one frame slot acquisition.
type UniformBufferPool interface {
	// Count returns N, the number of slots.
	Count() int

	// SlotSize returns the aligned byte size of one slot.
	SlotSize() uint64

	// CurrentIndex returns the slot index of the current frame. Before the first Advance it is N-1.
	CurrentIndex() int

	// Advance steps the ring to the next slot and returns its index, the frame sequence number mod N.
	Advance() int

	// Slot describes slot i.
	//
	// Parameters:
	//   - index: the slot index
	//
	// Returns:
	//   - UniformSlot: the slot layout
	//   - error: ErrIndexOutOfRange for a bad index
	Slot(index int) (UniformSlot, error)

	// WriteRegion copies data into slot index at the given offset relative to the slot start.
	//
	// Parameters:
	//   - index: the slot index
	//   - offset: byte offset inside the slot
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: ErrIndexOutOfRange, ErrRegionOverflow, or a device write error
	WriteRegion(index int, offset uint64, data []byte) error

	// Buffer returns the backing device buffer.
	Buffer() backend.Buffer

	// Release frees the backing device buffer.
	Release()
}

type uniformBufferPool struct {
	device   backend.Device
	buffer   backend.Buffer
	label    string
	count    int
	slotSize uint64
	seq      *atomic.Uint64
}

var _ UniformBufferPool = &uniformBufferPool{}

// AlignUp rounds size up to the next multiple of alignment. An alignment of 0 returns size unchanged.
func AlignUp(size, alignment uint64) uint64 {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}

// NewUniformBufferPool allocates count slots of slotSize bytes, each rounded up to the
// device uniform alignment, in one uniform buffer.
//
// Parameters:
//   - device: the device that owns the buffer
//   - count: the number of slots, equal to the number of frames in flight
//   - slotSize: the minimum byte size of one slot
//   - options: variadic list of UniformBufferPoolBuilderOption functions
//
// Returns:
//   - UniformBufferPool: the new pool
//   - error: an error if the arguments are invalid or the buffer could not be created
func NewUniformBufferPool(device backend.Device, count int, slotSize uint64, options ...UniformBufferPoolBuilderOption) (UniformBufferPool, error) {
	if count < 1 {
		return nil, fmt.Errorf("uniform_pool: count must be at least 1, got %d", count)
	}
	if slotSize == 0 {
		return nil, errors.New("uniform_pool: slot size must be positive")
	}

	p := &uniformBufferPool{
		device:   device,
		label:    "Uniform Buffer Pool",
		count:    count,
		slotSize: AlignUp(slotSize, device.UniformAlignment()),
		seq:      &atomic.Uint64{},
	}
	for _, opt := range options {
		opt(p)
	}

	buf, err := device.NewBuffer(p.label, p.slotSize*uint64(count), backend.BufferUsageUniform)
	if err != nil {
		return nil, fmt.Errorf("uniform_pool: allocate %d slots: %w", count, err)
	}
	p.buffer = buf
	return p, nil
}

func (p *uniformBufferPool) Count() int {
	return p.count
}

func (p *uniformBufferPool) SlotSize() uint64 {
	return p.slotSize
}

func (p *uniformBufferPool) CurrentIndex() int {
	seq := p.seq.Load()
	if seq == 0 {
		return p.count - 1
	}
	return int((seq - 1) % uint64(p.count))
}

func (p *uniformBufferPool) Advance() int {
	return int((p.seq.Add(1) - 1) % uint64(p.count))
}

func (p *uniformBufferPool) Slot(index int) (UniformSlot, error) {
	if index < 0 || index >= p.count {
		return UniformSlot{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, p.count)
	}
	return UniformSlot{
		Index:      index,
		ByteOffset: uint64(index) * p.slotSize,
		SizeBytes:  p.slotSize,
	}, nil
}

func (p *uniformBufferPool) WriteRegion(index int, offset uint64, data []byte) error {
	slot, err := p.Slot(index)
	if err != nil {
		return err
	}
	size := uint64(len(data))
	if offset > slot.SizeBytes || size > slot.SizeBytes-offset {
		return fmt.Errorf("%w: %d bytes at offset %d in slot of %d bytes", ErrRegionOverflow, size, offset, slot.SizeBytes)
	}
	return p.device.WriteBuffer(p.buffer, slot.ByteOffset+offset, data)
}

func (p *uniformBufferPool) Buffer() backend.Buffer {
	return p.buffer
}

func (p *uniformBufferPool) Release() {
	p.buffer.Release()
}
