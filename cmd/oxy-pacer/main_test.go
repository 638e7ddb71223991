package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-pacer/engine/config"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-b", "headless", "-n", "30", "--fps", "60", "-f", "2", "-s", "2", "--instanced"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "headless", o.backend)
	assert.Equal(t, uint64(30), o.frames)
	assert.Equal(t, 60, o.frameRate)
	assert.Equal(t, 2, o.inFlight)
	assert.Equal(t, 2, o.scene)
	assert.True(t, o.instanced)

	_, err = parseFlags([]string{"--watch"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = parseFlags([]string{"--help"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("renderer:\n  max_frames_in_flight: 4\nengine:\n  frame_rate: 30\n"), 0o644))

	cfg, err := loadConfig(&options{configPath: path, backend: "headless", scene: 2})
	require.NoError(t, err)
	assert.Equal(t, "headless", cfg.Backend)
	assert.Equal(t, 4, cfg.Renderer.MaxFramesInFlight)
	assert.Equal(t, 30, cfg.Engine.FrameRate)
	assert.Equal(t, 1, cfg.Engine.StartScene)

	cfg, err = loadConfig(&options{configPath: path, inFlight: 2, frameRate: 90})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Renderer.MaxFramesInFlight)
	assert.Equal(t, 90, cfg.Engine.FrameRate)

	_, err = loadConfig(&options{inFlight: 40})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestReloadKeepsFlagOverrides(t *testing.T) {
	level := &slog.LevelVar{}
	reload := reloadHandler(&options{frameRate: 90, logLevel: "debug"}, level)

	cfg := config.Default()
	cfg.Engine.FrameRate = 30
	cfg.Log.Level = "error"
	reload(cfg)
	assert.Equal(t, 90, cfg.Engine.FrameRate)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, slog.LevelDebug, level.Level())

	// without flags the file wins
	cfg.Log.Level = "warn"
	reloadHandler(&options{}, level)(cfg)
	assert.Equal(t, slog.LevelWarn, level.Level())
}

func TestRunHeadless(t *testing.T) {
	for _, sceneFlag := range []string{"1", "2", "3"} {
		t.Run("scene "+sceneFlag, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var logs bytes.Buffer
			err := run(ctx, []string{"-b", "headless", "-n", "12", "-s", sceneFlag, "-l", "debug"}, &logs)
			require.NoError(t, err)
			assert.Contains(t, logs.String(), "engine stopped")
			assert.Contains(t, logs.String(), "frames=12")
		})
	}
}

func TestSceneFactoriesBuildFreshScenes(t *testing.T) {
	factories := sceneFactories(config.Default())
	require.Len(t, factories, 3)
	for _, f := range factories {
		a, b := f(), f()
		assert.NotSame(t, a, b)
	}
}
