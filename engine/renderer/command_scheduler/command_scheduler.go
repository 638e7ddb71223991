// Package command_scheduler creates, submits and retires the command buffers of each frame.
package command_scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/frame_sync"
)

var (
	// ErrFrameSkipped is returned when the frame's command buffer could not be created or
	// committed. The frame slot is still released, after every earlier frame completes.
	ErrFrameSkipped = errors.New("command_scheduler: frame skipped")

	// ErrFrameOpen is returned by BeginFrame while a previous frame has not been ended or aborted.
	ErrFrameOpen = errors.New("command_scheduler: frame already open")

	// ErrUnknownBuffer is returned by EndFrame for a buffer that is not the open frame buffer.
	ErrUnknownBuffer = errors.New("command_scheduler: buffer is not the open frame buffer")
)

// Stats counts scheduler activity since construction.
type Stats struct {
	Submitted uint64
	Completed uint64
	Skipped   uint64
	Auxiliary uint64
	InFlight  int
}

// CommandScheduler pairs each frame slot with one frame-boundary command buffer and
// releases the slot when the device reports that buffer complete.
//
// BeginFrame, CreateBuffer, ScheduleForExecution, EndFrame and AbortFrame must be called
// from the single frame loop goroutine. AfterInFlight, InFlight, Drain and Stats are safe
// from any goroutine.
type CommandScheduler interface {
	// BeginFrame creates the frame-boundary command buffer for a just acquired token.
	// If the buffer cannot be created the frame is skipped: the error wraps ErrFrameSkipped
	// and the token is released in order.
	//
	// Parameters:
	//   - token: the frame token acquired for this frame
	//
	// Returns:
	//   - backend.CommandBuffer: the frame buffer
	//   - error: ErrFrameOpen or ErrFrameSkipped
	BeginFrame(token frame_sync.FrameToken) (backend.CommandBuffer, error)

	// CreateBuffer returns an additional command buffer that can be submitted independently
	// of the frame-boundary buffer, for example for an auxiliary pass.
	//
	// Parameters:
	//   - label: a label for the buffer
	//
	// Returns:
	//   - backend.CommandBuffer: the new buffer
	//   - error: an error if the device could not create it
	CreateBuffer(label string) (backend.CommandBuffer, error)

	// ScheduleForExecution commits an auxiliary buffer without presenting anything.
	//
	// Parameters:
	//   - cb: a buffer from CreateBuffer
	//
	// Returns:
	//   - error: an error if the commit failed
	ScheduleForExecution(cb backend.CommandBuffer) error

	// EndFrame attaches presentation of drawable and the completion handler that releases
	// the frame token, then commits the frame-boundary buffer.
	//
	// Parameters:
	//   - cb: the buffer returned by BeginFrame
	//   - drawable: the drawable to present, or nil
	//
	// Returns:
	//   - error: ErrUnknownBuffer, or ErrFrameSkipped if the commit failed
	EndFrame(cb backend.CommandBuffer, drawable backend.Drawable) error

	// AbortFrame abandons the open frame without submitting it. Its buffer is discarded and the
	// token is released in order.
	AbortFrame()

	// AfterInFlight runs fn once every buffer submitted so far has completed. With nothing
	// in flight fn runs immediately on the calling goroutine; otherwise it runs on the
	// completion context and must not block.
	//
	// Parameters:
	//   - fn: the deferred function
	AfterInFlight(fn func())

	// InFlight returns the number of submitted buffers that have not completed.
	InFlight() int

	// Drain blocks until no buffers are in flight or ctx is done.
	//
	// Parameters:
	//   - ctx: cancels the wait
	//
	// Returns:
	//   - error: ctx.Err() if ctx ended first
	Drain(ctx context.Context) error

	// Stats returns a snapshot of the scheduler counters.
	Stats() Stats
}

type record struct {
	label string
	token frame_sync.FrameToken
	hooks []func()
	once  *sync.Once
}

type openFrame struct {
	token frame_sync.FrameToken
	cb    backend.CommandBuffer
}

type commandScheduler struct {
	mu           *sync.Mutex
	queue        backend.CommandQueue
	synchronizer frame_sync.FrameSynchronizer
	observer     func(label string, err error)

	open       *openFrame
	inFlight   []*record
	completing int
	idle       chan struct{}
	stats      Stats
}

var _ CommandScheduler = &commandScheduler{}

// NewCommandScheduler creates a scheduler submitting to queue and releasing tokens of sync.
//
// Parameters:
//   - queue: the device command queue
//   - synchronizer: the synchronizer that issued the frame tokens
//   - options: variadic list of CommandSchedulerBuilderOption functions
//
// Returns:
//   - CommandScheduler: the new scheduler
func NewCommandScheduler(queue backend.CommandQueue, synchronizer frame_sync.FrameSynchronizer, options ...CommandSchedulerBuilderOption) CommandScheduler {
	s := &commandScheduler{
		mu:           &sync.Mutex{},
		queue:        queue,
		synchronizer: synchronizer,
		idle:         make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *commandScheduler) BeginFrame(token frame_sync.FrameToken) (backend.CommandBuffer, error) {
	s.mu.Lock()
	if s.open != nil {
		s.mu.Unlock()
		return nil, ErrFrameOpen
	}
	s.mu.Unlock()

	label := fmt.Sprintf("frame %d", token.Frame)
	cb, err := s.queue.NewCommandBuffer(label)
	if err != nil {
		common.Logger().Warn("frame skipped", "frame", token.Frame, "err", err)
		s.skip(token, nil)
		return nil, fmt.Errorf("%w: %w", ErrFrameSkipped, err)
	}

	s.mu.Lock()
	s.open = &openFrame{token: token, cb: cb}
	s.mu.Unlock()
	return cb, nil
}

func (s *commandScheduler) CreateBuffer(label string) (backend.CommandBuffer, error) {
	s.mu.Lock()
	if s.open != nil {
		label = fmt.Sprintf("frame %d %s", s.open.token.Frame, label)
	}
	s.mu.Unlock()

	cb, err := s.queue.NewCommandBuffer(label)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", label, err)
	}
	return cb, nil
}

func (s *commandScheduler) ScheduleForExecution(cb backend.CommandBuffer) error {
	rec := &record{label: cb.Label(), once: &sync.Once{}}
	cb.AddCompletedHandler(func(err error) {
		s.complete(rec, err)
	})

	s.mu.Lock()
	s.inFlight = append(s.inFlight, rec)
	s.stats.Auxiliary++
	s.mu.Unlock()

	if err := cb.Commit(); err != nil {
		s.abandon(rec)
		return fmt.Errorf("commit %q: %w", rec.label, err)
	}
	return nil
}

func (s *commandScheduler) EndFrame(cb backend.CommandBuffer, drawable backend.Drawable) error {
	s.mu.Lock()
	if s.open == nil || s.open.cb != cb {
		s.mu.Unlock()
		return ErrUnknownBuffer
	}
	rec := &record{label: cb.Label(), token: s.open.token, once: &sync.Once{}}
	s.open = nil
	s.mu.Unlock()

	if drawable != nil {
		cb.PresentDrawable(drawable)
	}
	cb.AddCompletedHandler(func(err error) {
		s.complete(rec, err)
	})

	// The record must be queued before Commit; a device may complete the buffer before Commit returns.
	s.mu.Lock()
	s.inFlight = append(s.inFlight, rec)
	s.stats.Submitted++
	s.mu.Unlock()

	if err := cb.Commit(); err != nil {
		common.Logger().Warn("frame skipped", "frame", rec.token.Frame, "err", err)
		s.abandon(rec)
		return fmt.Errorf("%w: %w", ErrFrameSkipped, err)
	}
	return nil
}

func (s *commandScheduler) AbortFrame() {
	s.mu.Lock()
	open := s.open
	s.open = nil
	s.mu.Unlock()

	if open == nil {
		return
	}
	open.cb.Discard()
	common.Logger().Warn("frame aborted", "frame", open.token.Frame)
	s.skip(open.token, nil)
}

// skip counts a skipped frame and releases its token in order.
func (s *commandScheduler) skip(token frame_sync.FrameToken, hooks []func()) {
	s.mu.Lock()
	s.stats.Skipped++
	s.mu.Unlock()
	s.releaseInOrder(token, hooks)
}

// releaseInOrder releases token, then runs hooks, behind the newest in-flight buffer so
// that tokens return to the synchronizer in acquisition order. Releasing early would let
// a later frame reuse the uniform slot of a frame that is still executing.
func (s *commandScheduler) releaseInOrder(token frame_sync.FrameToken, hooks []func()) {
	release := func() {
		if token.Valid() {
			s.synchronizer.Release(token)
		}
		for _, h := range hooks {
			h()
		}
	}

	s.mu.Lock()
	if n := len(s.inFlight); n > 0 {
		last := s.inFlight[n-1]
		last.hooks = append(last.hooks, release)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	release()
}

// abandon removes a record whose buffer never reached the device and hands its obligations
// to the in-flight buffer submitted before it.
func (s *commandScheduler) abandon(rec *record) {
	claimed := false
	rec.once.Do(func() { claimed = true })
	if !claimed {
		return
	}

	s.mu.Lock()
	for i, r := range s.inFlight {
		if r == rec {
			s.inFlight = append(s.inFlight[:i], s.inFlight[i+1:]...)
			break
		}
	}
	if rec.token.Valid() {
		s.stats.Submitted--
		s.stats.Skipped++
	} else {
		s.stats.Auxiliary--
	}
	hooks := rec.hooks
	rec.hooks = nil
	s.signalIdleLocked()
	s.mu.Unlock()

	s.releaseInOrder(rec.token, hooks)
}

func (s *commandScheduler) complete(rec *record, err error) {
	rec.once.Do(func() {
		s.mu.Lock()
		if len(s.inFlight) > 0 && s.inFlight[0] != rec {
			common.Logger().Error("command buffer completed out of order", "label", rec.label, "expected", s.inFlight[0].label)
		}
		for i, r := range s.inFlight {
			if r == rec {
				s.inFlight = append(s.inFlight[:i], s.inFlight[i+1:]...)
				break
			}
		}
		s.stats.Completed++
		s.completing++
		hooks := rec.hooks
		rec.hooks = nil
		s.mu.Unlock()

		if err != nil {
			common.Logger().Error("command buffer failed", "label", rec.label, "err", err)
		}
		if rec.token.Valid() {
			s.synchronizer.Release(rec.token)
		}
		for _, h := range hooks {
			h()
		}
		if s.observer != nil {
			s.observer(rec.label, err)
		}

		s.mu.Lock()
		s.completing--
		s.signalIdleLocked()
		s.mu.Unlock()
	})
}

func (s *commandScheduler) idleLocked() bool {
	return len(s.inFlight) == 0 && s.completing == 0
}

func (s *commandScheduler) signalIdleLocked() {
	if s.idleLocked() {
		close(s.idle)
		s.idle = make(chan struct{})
	}
}

func (s *commandScheduler) AfterInFlight(fn func()) {
	s.mu.Lock()
	if n := len(s.inFlight); n > 0 {
		last := s.inFlight[n-1]
		last.hooks = append(last.hooks, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

func (s *commandScheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

func (s *commandScheduler) Drain(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.idleLocked() {
			s.mu.Unlock()
			return nil
		}
		ch := s.idle
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *commandScheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.InFlight = len(s.inFlight)
	return st
}
