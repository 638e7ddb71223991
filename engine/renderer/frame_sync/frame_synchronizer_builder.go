package frame_sync

import "time"

// FrameSynchronizerBuilderOption is a functional option applied to a synchronizer during construction via NewFrameSynchronizer.
type FrameSynchronizerBuilderOption func(*frameSynchronizer)

// WithAcquireTimeout bounds how long Acquire may wait for a slot. A wait that exceeds d
// returns ErrDeviceLost, on the assumption that a GPU which has not completed any of N
// frames in that time will never do so. Zero (the default) waits forever.
//
// Parameters:
//   - d: the maximum time to wait for a slot
//
// Returns:
//   - FrameSynchronizerBuilderOption: a function that applies the timeout to a synchronizer
func WithAcquireTimeout(d time.Duration) FrameSynchronizerBuilderOption {
	return func(s *frameSynchronizer) {
		s.timeout = d
	}
}
