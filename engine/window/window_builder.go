package window

import "github.com/Carmen-Shannon/oxy-pacer/common"

// WindowBuilderOption configures an engineWindow before the platform window is created.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested framebuffer size. High-DPI platforms may report a larger
// framebuffer once the window exists.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.size = common.Size{Width: float32(width), Height: float32(height)}
	}
}

// WithSizeLimits bounds interactive resizing. A zero dimension leaves that bound unlimited.
//
// Parameters:
//   - minSize: smallest allowed size
//   - maxSize: largest allowed size
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minSize, maxSize common.Size) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minSize = minSize
		w.maxSize = maxSize
	}
}

// WithEscapeQuits controls whether Escape closes the window instead of reaching the key callbacks.
// Enabled by default.
func WithEscapeQuits(enabled bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.escapeQuits = enabled
	}
}
