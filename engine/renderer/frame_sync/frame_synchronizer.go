// Package frame_sync bounds the number of frames that may be in flight between the CPU and the GPU.
package frame_sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrDeviceLost is returned by Acquire when no slot became free within the acquire timeout.
	ErrDeviceLost = errors.New("frame_sync: device lost")

	// ErrInvalidCapacity is returned when a synchronizer is created with fewer than one slot.
	ErrInvalidCapacity = errors.New("frame_sync: capacity must be at least 1")
)

// FrameToken is permission to use one uniform slot and one GPU execution context for one frame.
// The zero FrameToken is not valid.
type FrameToken struct {
	// Frame is the 1-based admission sequence number of the token.
	Frame uint64

	state *tokenState
}

type tokenState struct {
	owner    *frameSynchronizer
	released atomic.Bool
}

// Valid reports whether the token was produced by Acquire or TryAcquire.
func (t FrameToken) Valid() bool {
	return t.state != nil
}

// Released reports whether Release has been called for the token.
func (t FrameToken) Released() bool {
	return t.state != nil && t.state.released.Load()
}

// FrameSynchronizer is a counting gate over N frame slots.
type FrameSynchronizer interface {
	// Capacity returns N, the maximum number of outstanding tokens.
	Capacity() int

	// Acquire blocks until fewer than N tokens are outstanding and returns a new token.
	// It is the only intentional suspension point of the frame loop.
	//
	// Parameters:
	//   - ctx: cancels the wait
	//
	// Returns:
	//   - FrameToken: the acquired token
	//   - error: ctx.Err() on cancellation, ErrDeviceLost if the acquire timeout elapsed
	Acquire(ctx context.Context) (FrameToken, error)

	// TryAcquire returns a token only if one is immediately available.
	//
	// Returns:
	//   - FrameToken: the acquired token, zero if none was available
	//   - bool: true if a token was acquired
	TryAcquire() (FrameToken, bool)

	// Release returns the token's slot to the gate. It must be called exactly once per
	// token, normally from a GPU completion handler. Releasing a zero token or releasing
	// a token twice panics.
	//
	// Parameters:
	//   - token: the token to release
	Release(token FrameToken)

	// Outstanding returns the number of acquired and not yet released tokens.
	Outstanding() int

	// HighWatermark returns the largest value Outstanding has reached.
	HighWatermark() int

	// Stalls returns how many acquisitions had to wait for a release.
	Stalls() uint64
}

type frameSynchronizer struct {
	sem      *semaphore.Weighted
	capacity int
	timeout  time.Duration

	outstanding *atomic.Int64
	high        *atomic.Int64
	stalls      *atomic.Uint64
	frames      *atomic.Uint64
}

var _ FrameSynchronizer = &frameSynchronizer{}

// NewFrameSynchronizer creates a gate admitting at most n frames at once.
//
// Parameters:
//   - n: the number of frames that may be in flight, typically 2 or 3
//   - options: variadic list of FrameSynchronizerBuilderOption functions
//
// Returns:
//   - FrameSynchronizer: the new synchronizer
//   - error: ErrInvalidCapacity if n < 1
func NewFrameSynchronizer(n int, options ...FrameSynchronizerBuilderOption) (FrameSynchronizer, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, n)
	}
	s := &frameSynchronizer{
		sem:         semaphore.NewWeighted(int64(n)),
		capacity:    n,
		outstanding: &atomic.Int64{},
		high:        &atomic.Int64{},
		stalls:      &atomic.Uint64{},
		frames:      &atomic.Uint64{},
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *frameSynchronizer) Capacity() int {
	return s.capacity
}

func (s *frameSynchronizer) Acquire(ctx context.Context) (FrameToken, error) {
	if s.sem.TryAcquire(1) {
		return s.grant(), nil
	}
	s.stalls.Add(1)

	waitCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return FrameToken{}, fmt.Errorf("%w: no frame completed within %s", ErrDeviceLost, s.timeout)
		}
		return FrameToken{}, err
	}
	return s.grant(), nil
}

func (s *frameSynchronizer) TryAcquire() (FrameToken, bool) {
	if !s.sem.TryAcquire(1) {
		return FrameToken{}, false
	}
	return s.grant(), true
}

func (s *frameSynchronizer) grant() FrameToken {
	n := s.outstanding.Add(1)
	for {
		h := s.high.Load()
		if n <= h || s.high.CompareAndSwap(h, n) {
			break
		}
	}
	return FrameToken{Frame: s.frames.Add(1), state: &tokenState{owner: s}}
}

func (s *frameSynchronizer) Release(token FrameToken) {
	if token.state == nil {
		panic("frame_sync: release of a zero FrameToken")
	}
	if token.state.owner != s {
		panic(fmt.Sprintf("frame_sync: frame %d released to a synchronizer that did not grant it", token.Frame))
	}
	if !token.state.released.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("frame_sync: frame %d released twice", token.Frame))
	}
	if s.outstanding.Add(-1) < 0 {
		panic("frame_sync: released more frames than were acquired")
	}
	s.sem.Release(1)
}

func (s *frameSynchronizer) Outstanding() int {
	return int(s.outstanding.Load())
}

func (s *frameSynchronizer) HighWatermark() int {
	return int(s.high.Load())
}

func (s *frameSynchronizer) Stalls() uint64 {
	return s.stalls.Load()
}
