// Command oxy-pacer runs the frame pacing demo: textured cubes drawn through a bounded ring of
// frames in flight, either in a window through WebGPU or headless against the simulated device.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine"
	"github.com/Carmen-Shannon/oxy-pacer/engine/camera"
	"github.com/Carmen-Shannon/oxy-pacer/engine/config"
	"github.com/Carmen-Shannon/oxy-pacer/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-pacer/engine/scene"
	"github.com/Carmen-Shannon/oxy-pacer/engine/window"
)

// GLFW must run on the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintln(os.Stderr, "oxy-pacer:", err)
		os.Exit(1)
	}
}

// options are the command line flags. Empty or zero values leave the config untouched.
type options struct {
	configPath string
	watch      bool
	backend    string
	logLevel   string
	frames     uint64
	frameRate  int
	inFlight   int
	scene      int
	instanced  bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	o := &options{}
	fs := pflag.NewFlagSet("oxy-pacer", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVarP(&o.configPath, "config", "c", "", "TOML or YAML configuration file")
	fs.BoolVarP(&o.watch, "watch", "w", false, "reload the configuration file when it changes")
	fs.StringVarP(&o.backend, "backend", "b", "", "device backend: wgpu or headless")
	fs.StringVarP(&o.logLevel, "log-level", "l", "", "log level: debug, info, warn or error")
	fs.Uint64VarP(&o.frames, "frames", "n", 0, "stop after this many frames")
	fs.IntVar(&o.frameRate, "fps", 0, "cap the frame rate")
	fs.IntVarP(&o.inFlight, "frames-in-flight", "f", 0, "maximum frames in flight")
	fs.IntVarP(&o.scene, "scene", "s", 0, "start scene, 1-based")
	fs.BoolVar(&o.instanced, "instanced", false, "draw the forward lighting cubes with one instanced draw")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.watch && o.configPath == "" {
		return nil, errors.New("--watch needs --config")
	}
	return o, nil
}

// loadConfig loads the configured file, or the defaults, and applies the flag overrides.
func loadConfig(o *options) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	o.override(cfg)
	return cfg, cfg.Validate()
}

// override applies the flags to cfg. Reloaded configs go through it too, so flags keep
// precedence over the file while watching.
func (o *options) override(cfg *config.Config) {
	cfg.Backend = common.Coalesce(o.backend, cfg.Backend)
	cfg.Log.Level = common.Coalesce(o.logLevel, cfg.Log.Level)
	cfg.Engine.MaxFrames = common.Coalesce(o.frames, cfg.Engine.MaxFrames)
	cfg.Engine.FrameRate = common.Coalesce(o.frameRate, cfg.Engine.FrameRate)
	cfg.Renderer.MaxFramesInFlight = common.Coalesce(o.inFlight, cfg.Renderer.MaxFramesInFlight)
	if o.scene > 0 {
		cfg.Engine.StartScene = o.scene - 1
	}
	if o.instanced {
		cfg.Engine.InstanceIndex = true
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	level := &slog.LevelVar{}
	lvl, _ := config.ParseLevel(cfg.Log.Level)
	level.Set(lvl)
	common.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	size := common.Size{Width: float32(cfg.Window.Width), Height: float32(cfg.Window.Height)}
	var win window.Window
	var dev backend.Device
	switch cfg.Backend {
	case "headless":
		dev = backend.NewHeadlessDevice(backend.WithSurfaceSize(size))
	default:
		win, err = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
		if err != nil {
			return err
		}
		mode, _ := backend.ParsePresentMode(cfg.Renderer.PresentMode)
		dev, err = backend.NewWGPUDevice(win.SurfaceDescriptor(), win.Size(), backend.WithPresentMode(mode))
		if err != nil {
			_ = win.Close()
			return err
		}
	}
	defer dev.Release()

	textures := make([]common.ImportedTexture, 0, len(cfg.Renderer.Textures))
	for name, path := range cfg.Renderer.Textures {
		textures = append(textures, common.ImportedTexture{Name: name, Path: path})
	}
	r, err := renderer.NewRenderer(dev,
		renderer.WithMaxFramesInFlight(cfg.Renderer.MaxFramesInFlight),
		renderer.WithUniformSlotSize(uint64(cfg.Renderer.UniformSlotSize)),
		renderer.WithAcquireTimeout(cfg.AcquireTimeout()),
		renderer.WithRetireWorkers(cfg.Renderer.RetireWorkers),
		renderer.WithClearColor(cfg.Renderer.ClearColor),
		renderer.WithTextures(textures...),
	)
	if err != nil {
		if win != nil {
			_ = win.Close()
		}
		return err
	}

	engineOptions := []engine.EngineBuilderOption{
		engine.WithScenes(sceneFactories(cfg)...),
		engine.WithStartScene(cfg.Engine.StartScene),
		engine.WithFrameRate(float64(cfg.Engine.FrameRate)),
		engine.WithMaxFrames(cfg.Engine.MaxFrames),
		engine.WithProfiling(cfg.Engine.Profile),
		engine.WithProfiler(profiler.NewProfiler(
			profiler.WithUpdateInterval(cfg.ProfileInterval()),
			profiler.WithStatsSource(r.Stats),
		)),
	}
	if win != nil {
		engineOptions = append(engineOptions, engine.WithWindow(win))
	}
	if o.watch {
		engineOptions = append(engineOptions, engine.WithConfigWatch(o.configPath, reloadHandler(o, level)))
	}

	common.Logger().Info("starting",
		"backend", cfg.Backend,
		"frames_in_flight", cfg.Renderer.MaxFramesInFlight,
		"max_frames", cfg.Engine.MaxFrames,
	)
	return engine.NewEngine(r, engineOptions...).Run(ctx)
}

// reloadHandler re-applies the flag overrides to a reloaded config and updates the log level.
func reloadHandler(o *options, level *slog.LevelVar) func(*config.Config) {
	return func(c *config.Config) {
		o.override(c)
		if l, err := config.ParseLevel(c.Log.Level); err == nil {
			level.Set(l)
		}
	}
}

// sceneFactories returns the scenes selectable with the number keys, in key order.
func sceneFactories(cfg *config.Config) []engine.SceneFactory {
	newCamera := func() camera.Camera {
		cam := camera.NewCamera(
			camera.WithFov(cfg.FovRadians()),
			camera.WithNear(cfg.Camera.Near),
			camera.WithFar(cfg.Camera.Far),
			camera.WithZOffset(8),
		)
		cam.SetRotation([3]float32{0.35, 0, 0})
		return cam
	}
	return []engine.SceneFactory{
		func() renderer.Scene {
			return scene.NewForwardLightingScene(
				scene.WithCamera(newCamera()),
				scene.WithInstanceIndex(cfg.Engine.InstanceIndex),
			)
		},
		func() renderer.Scene {
			return scene.NewArgumentBuffersScene(scene.WithCamera(newCamera()))
		},
		func() renderer.Scene {
			return scene.NewForwardLightingScene(
				scene.WithCamera(newCamera()),
				scene.WithArgumentBuffer(true),
			)
		},
	}
}
