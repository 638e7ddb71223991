package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/config"
	"github.com/Carmen-Shannon/oxy-pacer/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pacer/engine/window"
)

var (
	// ErrNoScenes is returned by Run when no scene factory was registered.
	ErrNoScenes = errors.New("engine: no scenes registered")

	// ErrUnknownScene is returned by SwitchScene for an index with no registered factory.
	ErrUnknownScene = errors.New("engine: unknown scene")
)

const (
	closeTimeout = 5 * time.Second

	// skipBackoff is the shortest frame duration after a skipped frame, so a minimized
	// window or exhausted device does not spin the render goroutine when uncapped.
	skipBackoff = 10 * time.Millisecond
)

// SceneFactory builds a fresh scene. Scenes cannot be set up twice, so every switch builds a new one.
type SceneFactory func() renderer.Scene

// engine implements the Engine interface.
// Coordinates the render loop, the config watcher and the window message loop.
type engine struct {
	mu *sync.Mutex

	renderer renderer.Renderer
	window   window.Window

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	scenes        []SceneFactory
	current       atomic.Int32
	startScene    int
	sceneRequests chan int

	frameInterval atomic.Int64 // minimum frame duration in nanoseconds; 0 = uncapped
	maxFrames     uint64
	frames        atomic.Uint64

	configPath string
	onConfig   func(*config.Config)

	quitChannel chan struct{}
	quitOnce    sync.Once
}

// Engine is the main entry point for the engine.
// It owns the frame loop that drives the renderer, switches scenes on number keys, and forwards
// window input and resize events to the renderer.
type Engine interface {
	// Renderer returns the renderer driven by the frame loop.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Window returns the host window, or nil for a windowless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetFrameRate caps the frame loop at fps frames per second. Pass 0 to uncap it.
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetFrameRate(fps float64)

	// AddScene registers a scene factory. Factory i is selected by number key i+1.
	//
	// Parameters:
	//   - factory: builds the scene each time it is selected
	//
	// Returns:
	//   - int: the index of the scene
	AddScene(factory SceneFactory) int

	// SwitchScene requests the scene at index. The switch happens on the frame loop before its
	// next frame; a newer request replaces one that has not been applied yet.
	//
	// Parameters:
	//   - index: the scene index
	//
	// Returns:
	//   - error: ErrUnknownScene for an index with no factory
	SwitchScene(index int) error

	// CurrentScene returns the index of the scene most recently handed to the renderer.
	//
	// Returns:
	//   - int: the scene index, or -1 before the first scene is set
	CurrentScene() int

	// KeyDown handles a key press. Number keys switch scenes; every other key goes to the renderer.
	//
	// Parameters:
	//   - code: the virtual key code
	KeyDown(code uint32)

	// KeyUp forwards a key release to the renderer.
	//
	// Parameters:
	//   - code: the virtual key code
	KeyUp(code uint32)

	// Resize forwards a new drawable size to the renderer.
	//
	// Parameters:
	//   - size: the framebuffer size in pixels
	Resize(size common.Size)

	// Frames returns the number of frames presented by Run.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Run starts the frame loop and blocks until the window closes, ctx is done, Quit is called
	// or the frame limit is reached. With a window, Run must be called from the goroutine that
	// created it. The renderer is closed before Run returns.
	//
	// Parameters:
	//   - ctx: cancels the engine
	//
	// Returns:
	//   - error: the error that stopped the frame loop, joined with any close error
	Run(ctx context.Context) error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine around r with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - r: the renderer driven by the frame loop
//   - options: functional options for engine configuration (window, scenes, profiling, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(r renderer.Renderer, options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:            &sync.Mutex{},
		renderer:      r,
		sceneRequests: make(chan int, 1),
		quitChannel:   make(chan struct{}),
	}
	e.current.Store(-1)

	for _, opt := range options {
		opt(e)
	}

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithStatsSource(r.Stats))
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.Resize)
		e.window.SetKeyDownCallback(e.KeyDown)
		e.window.SetKeyUpCallback(e.KeyUp)
	}

	return e
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Window() window.Window {
	return e.window
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) SetFrameRate(fps float64) {
	if fps <= 0 {
		e.frameInterval.Store(0)
		return
	}
	e.frameInterval.Store(int64(float64(time.Second) / fps))
}

func (e *engine) AddScene(factory SceneFactory) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes = append(e.scenes, factory)
	return len(e.scenes) - 1
}

func (e *engine) SwitchScene(index int) error {
	e.mu.Lock()
	n := len(e.scenes)
	e.mu.Unlock()
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d of %d", ErrUnknownScene, index, n)
	}

	// Latest request wins.
	for {
		select {
		case e.sceneRequests <- index:
			return nil
		default:
			select {
			case <-e.sceneRequests:
			default:
			}
		}
	}
}

func (e *engine) CurrentScene() int {
	return int(e.current.Load())
}

func (e *engine) KeyDown(code uint32) {
	if index, ok := common.SceneIndexForKey(code); ok {
		if err := e.SwitchScene(index); err != nil {
			common.Logger().Debug("scene key ignored", "key", code, "err", err)
		}
		return
	}
	e.renderer.KeyDown(code)
}

func (e *engine) KeyUp(code uint32) {
	if _, ok := common.SceneIndexForKey(code); ok {
		return
	}
	e.renderer.KeyUp(code)
}

func (e *engine) Resize(size common.Size) {
	e.renderer.DrawableResized(size)
}

func (e *engine) Frames() uint64 {
	return e.frames.Load()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Run(ctx context.Context) (err error) {
	e.mu.Lock()
	n := len(e.scenes)
	e.mu.Unlock()
	if n == 0 {
		return ErrNoScenes
	}
	if err := e.SwitchScene(e.startScene); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.handleRender(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-e.quitChannel:
			cancel()
		}
		return nil
	})
	if e.configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, e.configPath, e.applyConfig)
		})
	}

	if e.window != nil {
		e.window.ProcessMessages(gctx)
		cancel()
	}
	err = g.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
	defer closeCancel()
	if cerr := e.renderer.Close(closeCtx); cerr != nil {
		err = errors.Join(err, fmt.Errorf("engine: close renderer: %w", cerr))
	}
	if e.window != nil {
		if werr := e.window.Close(); werr != nil {
			err = errors.Join(err, fmt.Errorf("engine: close window: %w", werr))
		}
	}
	common.Logger().Info("engine stopped", "frames", e.frames.Load(), "err", err)
	return err
}

// handleRender runs the frame loop until ctx is done or the frame limit is reached.
// Skipped frames are paced like presented ones, with a floor of skipBackoff.
// Recovers from panics to avoid crashing the process and reports them as the loop's error.
func (e *engine) handleRender(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			err = fmt.Errorf("engine: render loop panic: %v", r)
		}
	}()

	lastRender := time.Now()
	for ctx.Err() == nil {
		select {
		case index := <-e.sceneRequests:
			e.setScene(index)
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if err := e.renderer.DrawWithCommandQueue(ctx, dt); err != nil {
			switch {
			case errors.Is(err, renderer.ErrFrameSkipped):
				common.Logger().Debug("frame skipped", "err", err)
				if !e.pace(ctx, now, skipBackoff) {
					return nil
				}
				continue
			case ctx.Err() != nil:
				return nil
			default:
				return fmt.Errorf("engine: frame: %w", err)
			}
		}

		frames := e.frames.Add(1)
		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}
		if e.maxFrames > 0 && frames >= e.maxFrames {
			e.Quit()
			return nil
		}

		if !e.pace(ctx, now, 0) {
			return nil
		}
	}
	return nil
}

// pace waits out the rest of the frame interval measured from start, and at least
// minWait when the frame rate is uncapped.
//
// Parameters:
//   - ctx: cancels the wait
//   - start: when the frame began
//   - minWait: lower bound on the frame duration
//
// Returns:
//   - bool: false if ctx was cancelled while waiting
func (e *engine) pace(ctx context.Context, start time.Time, minWait time.Duration) bool {
	interval := max(time.Duration(e.frameInterval.Load()), minWait)
	if interval <= 0 {
		return ctx.Err() == nil
	}
	remaining := interval - time.Since(start)
	if remaining <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(remaining):
		return true
	}
}

func (e *engine) setScene(index int) {
	e.mu.Lock()
	factory := e.scenes[index]
	e.mu.Unlock()

	s := factory()
	if err := e.renderer.SetScene(s); err != nil {
		common.Logger().Error("scene switch failed", "index", index, "scene", s.Name(), "err", err)
		return
	}
	e.current.Store(int32(index))
}

// applyConfig applies the settings that can change while running. onConfig sees the reloaded
// config first and may adjust it.
func (e *engine) applyConfig(cfg *config.Config) {
	if e.onConfig != nil {
		e.onConfig(cfg)
	}
	e.SetFrameRate(float64(cfg.Engine.FrameRate))
	if cfg.Engine.Profile {
		e.EnableProfiler()
	} else {
		e.DisableProfiler()
	}
}
