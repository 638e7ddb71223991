package backend

import (
	"time"

	"github.com/Carmen-Shannon/oxy-pacer/common"
)

// HeadlessDeviceBuilderOption is a functional option applied to a headless device during construction via NewHeadlessDevice.
type HeadlessDeviceBuilderOption func(*headlessDevice)

// WithLatency delays the completion of every command buffer by d after it reaches the head of the queue.
//
// Parameters:
//   - d: simulated execution time per command buffer
//
// Returns:
//   - HeadlessDeviceBuilderOption: a function that applies the latency option to a headless device
func WithLatency(d time.Duration) HeadlessDeviceBuilderOption {
	return func(h *headlessDevice) {
		h.latency = func(uint64, string) time.Duration { return d }
	}
}

// WithLatencyFunc computes the simulated execution time per command buffer from its
// submission sequence number and label.
//
// Parameters:
//   - fn: the latency function
//
// Returns:
//   - HeadlessDeviceBuilderOption: a function that applies the latency function to a headless device
func WithLatencyFunc(fn func(seq uint64, label string) time.Duration) HeadlessDeviceBuilderOption {
	return func(h *headlessDevice) {
		h.latency = fn
	}
}

// WithImmediateCompletion executes each command buffer synchronously inside Commit, so
// completion handlers have already run when Commit returns. Latency options are ignored.
//
// Returns:
//   - HeadlessDeviceBuilderOption: a function that enables immediate completion
func WithImmediateCompletion() HeadlessDeviceBuilderOption {
	return func(h *headlessDevice) {
		h.immediate = true
	}
}

// WithExecutionHook calls fn on the execution goroutine before each command buffer
// executes. Blocking inside fn stalls the simulated queue.
//
// Parameters:
//   - fn: the hook, receiving the command buffer label
//
// Returns:
//   - HeadlessDeviceBuilderOption: a function that applies the hook to a headless device
func WithExecutionHook(fn func(label string)) HeadlessDeviceBuilderOption {
	return func(h *headlessDevice) {
		h.hook = fn
	}
}

// WithSurfaceSize sets the initial drawable size of the headless surface.
//
// Parameters:
//   - size: the drawable size in pixels
//
// Returns:
//   - HeadlessDeviceBuilderOption: a function that applies the size to a headless device
func WithSurfaceSize(size common.Size) HeadlessDeviceBuilderOption {
	return func(h *headlessDevice) {
		h.surface.size = size
	}
}

// WithUniformAlignment overrides the reported uniform offset alignment (default 256).
//
// Parameters:
//   - alignment: alignment in bytes, must be a power of two
//
// Returns:
//   - HeadlessDeviceBuilderOption: a function that applies the alignment to a headless device
func WithUniformAlignment(alignment uint64) HeadlessDeviceBuilderOption {
	return func(h *headlessDevice) {
		h.alignment = alignment
	}
}
