package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-pacer/engine/model"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// replaceFile swaps the file in with a rename so the watcher never observes a half-written file.
func replaceFile(dir, name, body string) error {
	tmp := filepath.Join(dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, name))
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Renderer.MaxFramesInFlight)
	assert.Equal(t, model.UniformSlotSize, cfg.Renderer.UniformSlotSize)
	assert.Equal(t, 2*time.Second, cfg.AcquireTimeout())
	assert.InDelta(t, 1.134464, float64(cfg.FovRadians()), 1e-5)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pacer.toml", `
backend = "headless"

[renderer]
max_frames_in_flight = 2
acquire_timeout_ms = 0
clear_color = [0.0, 0.5, 1.0, 1.0]
present_mode = "uncapped"

[renderer.textures]
rock1 = "assets/rock.png"

[camera]
fov_degrees = 90.0

[log]
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "headless", cfg.Backend)
	assert.Equal(t, 2, cfg.Renderer.MaxFramesInFlight)
	assert.Zero(t, cfg.AcquireTimeout())
	assert.Equal(t, [4]float64{0, 0.5, 1, 1}, cfg.Renderer.ClearColor)
	assert.Equal(t, "uncapped", cfg.Renderer.PresentMode)
	assert.Equal(t, map[string]string{"rock1": "assets/rock.png"}, cfg.Renderer.Textures)
	assert.Equal(t, float32(90), cfg.Camera.FovDegrees)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep their defaults
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, float32(100), cfg.Camera.Far)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pacer.yml", `
window:
  title: demo
  width: 1280
  height: 720
engine:
  max_frames: 120
  frame_rate: 30
  start_scene: 1
  instance_index: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, uint64(120), cfg.Engine.MaxFrames)
	assert.Equal(t, 30, cfg.Engine.FrameRate)
	assert.Equal(t, 1, cfg.Engine.StartScene)
	assert.True(t, cfg.Engine.InstanceIndex)
	assert.Equal(t, "wgpu", cfg.Backend)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(writeFile(t, dir, "pacer.json", `{}`))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, dir, "broken.toml", `renderer = [`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "invalid.yaml", "renderer:\n  max_frames_in_flight: 17\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero frames":       func(c *Config) { c.Renderer.MaxFramesInFlight = 0 },
		"too many frames":   func(c *Config) { c.Renderer.MaxFramesInFlight = MaxFramesInFlightLimit + 1 },
		"zero slot":         func(c *Config) { c.Renderer.UniformSlotSize = 0 },
		"negative timeout":  func(c *Config) { c.Renderer.AcquireTimeoutMS = -1 },
		"no retire workers": func(c *Config) { c.Renderer.RetireWorkers = 0 },
		"near beyond far":   func(c *Config) { c.Camera.Near, c.Camera.Far = 10, 1 },
		"zero near":         func(c *Config) { c.Camera.Near = 0 },
		"flat fov":          func(c *Config) { c.Camera.FovDegrees = 180 },
		"empty window":      func(c *Config) { c.Window.Height = 0 },
		"negative rate":     func(c *Config) { c.Engine.FrameRate = -1 },
		"negative scene":    func(c *Config) { c.Engine.StartScene = -1 },
		"unknown backend":   func(c *Config) { c.Backend = "metal" },
		"unknown level":     func(c *Config) { c.Log.Level = "loud" },
		"unknown present":   func(c *Config) { c.Renderer.PresentMode = "mailbox" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default()
	cfg.Renderer.MaxFramesInFlight = MaxFramesInFlightLimit
	assert.NoError(t, cfg.Validate())
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestWatchReloadsValidEdits(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pacer.toml", "[renderer]\nmax_frames_in_flight = 2\n")

	ctx, cancel := context.WithCancel(context.Background())
	var latest atomic.Pointer[Config]
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { latest.Store(c) })
	}()

	require.Eventually(t, func() bool {
		_ = replaceFile(dir, "pacer.toml", "[renderer]\nmax_frames_in_flight = 5\n")
		c := latest.Load()
		return c != nil && c.Renderer.MaxFramesInFlight == 5
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, replaceFile(dir, "pacer.toml", "[renderer]\nmax_frames_in_flight = 99\n"))
	require.NoError(t, replaceFile(dir, "other.toml", "[renderer]\nmax_frames_in_flight = 4\n"))
	assert.Never(t, func() bool {
		return latest.Load().Renderer.MaxFramesInFlight != 5
	}, 200*time.Millisecond, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
