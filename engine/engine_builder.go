package engine

import (
	"github.com/Carmen-Shannon/oxy-pacer/engine/config"
	"github.com/Carmen-Shannon/oxy-pacer/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pacer/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default profiler, which reports renderer stats once a second.
//
// Parameters:
//   - p: the profiler ticked once per presented frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithWindow sets the window whose input and resize events drive the renderer.
// Without a window the engine runs headless until Quit, ctx or the frame limit stops it.
//
// Parameters:
//   - w: a spawned Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScenes registers scene factories in index order.
//
// Parameters:
//   - factories: the scene factories
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScenes(factories ...SceneFactory) EngineBuilderOption {
	return func(e *engine) {
		e.scenes = append(e.scenes, factories...)
	}
}

// WithStartScene selects the scene shown first.
//
// Parameters:
//   - index: the scene index
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStartScene(index int) EngineBuilderOption {
	return func(e *engine) {
		e.startScene = index
	}
}

// WithFrameRate caps the frame loop in frames per second.
// Pass 0 to uncap the frame loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetFrameRate(fps)
	}
}

// WithMaxFrames stops the engine after n presented frames. Zero runs until stopped.
//
// Parameters:
//   - n: the frame limit
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}

// WithConfigWatch reloads the configuration file while running. onChange, if not nil, receives
// every reloaded config first and may adjust it; the engine then applies the frame rate and
// profiling settings.
//
// Parameters:
//   - path: the configuration file
//   - onChange: optional callback for the remaining settings
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigWatch(path string, onChange func(*config.Config)) EngineBuilderOption {
	return func(e *engine) {
		e.configPath = path
		e.onConfig = onChange
	}
}
