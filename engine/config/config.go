// Package config loads the host configuration from TOML or YAML files and watches them for edits.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chewxy/math32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/oxy-pacer/engine/model"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
)

var (
	// ErrUnsupportedFormat is returned by Load for files that are neither TOML nor YAML.
	ErrUnsupportedFormat = errors.New("config: unsupported file format")

	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("config: invalid")
)

// MaxFramesInFlightLimit bounds renderer.max_frames_in_flight.
const MaxFramesInFlightLimit = 16

// Config is the complete host configuration.
type Config struct {
	Backend  string         `toml:"backend" yaml:"backend"`
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Camera   CameraConfig   `toml:"camera" yaml:"camera"`
	Engine   EngineConfig   `toml:"engine" yaml:"engine"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

// WindowConfig describes the host window.
type WindowConfig struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

// RendererConfig mirrors the renderer builder options. Textures maps a texture name such as
// "rock1" to an image file replacing the generated one.
type RendererConfig struct {
	MaxFramesInFlight int               `toml:"max_frames_in_flight" yaml:"max_frames_in_flight"`
	UniformSlotSize   int               `toml:"uniform_slot_size" yaml:"uniform_slot_size"`
	AcquireTimeoutMS  int               `toml:"acquire_timeout_ms" yaml:"acquire_timeout_ms"`
	RetireWorkers     int               `toml:"retire_workers" yaml:"retire_workers"`
	ClearColor        [4]float64        `toml:"clear_color" yaml:"clear_color"`
	PresentMode       string            `toml:"present_mode" yaml:"present_mode"`
	Textures          map[string]string `toml:"textures" yaml:"textures"`
}

// CameraConfig holds the projection parameters applied to every scene camera.
type CameraConfig struct {
	FovDegrees float32 `toml:"fov_degrees" yaml:"fov_degrees"`
	Near       float32 `toml:"near" yaml:"near"`
	Far        float32 `toml:"far" yaml:"far"`
}

// EngineConfig controls the host loop. FrameRate caps frames per second, zero leaves the loop
// uncapped. MaxFrames stops the host after that many presented frames, zero runs until closed.
type EngineConfig struct {
	FrameRate       int    `toml:"frame_rate" yaml:"frame_rate"`
	MaxFrames       uint64 `toml:"max_frames" yaml:"max_frames"`
	StartScene      int    `toml:"start_scene" yaml:"start_scene"`
	InstanceIndex   bool   `toml:"instance_index" yaml:"instance_index"`
	Profile         bool   `toml:"profile" yaml:"profile"`
	ProfileInterval int    `toml:"profile_interval_ms" yaml:"profile_interval_ms"`
}

// LogConfig selects the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - *Config: a valid configuration
func Default() *Config {
	return &Config{
		Backend: "wgpu",
		Window: WindowConfig{
			Title:  "oxy-pacer",
			Width:  800,
			Height: 600,
		},
		Renderer: RendererConfig{
			MaxFramesInFlight: 3,
			UniformSlotSize:   model.UniformSlotSize,
			AcquireTimeoutMS:  2000,
			RetireWorkers:     1,
			ClearColor:        [4]float64{0.1, 0.1, 0.12, 1},
			PresentMode:       "vsync",
		},
		Camera: CameraConfig{
			FovDegrees: 65,
			Near:       0.1,
			Far:        100,
		},
		Engine: EngineConfig{
			Profile:         true,
			ProfileInterval: 1000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the file at path on top of Default and validates the result. The codec is chosen by
// extension: .toml, or .yaml and .yml.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - *Config: the loaded configuration
//   - error: ErrUnsupportedFormat, a decode error, or a validation error wrapping ErrInvalid
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value against the range the engine accepts.
//
// Returns:
//   - error: the first violation wrapped in ErrInvalid, or nil
func (c *Config) Validate() error {
	switch {
	case c.Backend != "wgpu" && c.Backend != "headless":
		return fmt.Errorf("%w: backend %q", ErrInvalid, c.Backend)
	case c.Renderer.MaxFramesInFlight < 1 || c.Renderer.MaxFramesInFlight > MaxFramesInFlightLimit:
		return fmt.Errorf("%w: max_frames_in_flight %d not in [1, %d]", ErrInvalid, c.Renderer.MaxFramesInFlight, MaxFramesInFlightLimit)
	case c.Renderer.UniformSlotSize <= 0:
		return fmt.Errorf("%w: uniform_slot_size %d", ErrInvalid, c.Renderer.UniformSlotSize)
	case c.Renderer.AcquireTimeoutMS < 0:
		return fmt.Errorf("%w: acquire_timeout_ms %d", ErrInvalid, c.Renderer.AcquireTimeoutMS)
	case c.Renderer.RetireWorkers < 1:
		return fmt.Errorf("%w: retire_workers %d", ErrInvalid, c.Renderer.RetireWorkers)
	case c.Camera.Near <= 0 || c.Camera.Near >= c.Camera.Far:
		return fmt.Errorf("%w: near %g must be positive and below far %g", ErrInvalid, c.Camera.Near, c.Camera.Far)
	case c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180:
		return fmt.Errorf("%w: fov_degrees %g not in (0, 180)", ErrInvalid, c.Camera.FovDegrees)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Engine.FrameRate < 0:
		return fmt.Errorf("%w: frame_rate %d", ErrInvalid, c.Engine.FrameRate)
	case c.Engine.ProfileInterval < 0:
		return fmt.Errorf("%w: profile_interval_ms %d", ErrInvalid, c.Engine.ProfileInterval)
	case c.Engine.StartScene < 0:
		return fmt.Errorf("%w: start_scene %d", ErrInvalid, c.Engine.StartScene)
	}
	if _, err := backend.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// AcquireTimeout returns the frame acquire timeout; zero waits forever.
func (c *Config) AcquireTimeout() time.Duration {
	return time.Duration(c.Renderer.AcquireTimeoutMS) * time.Millisecond
}

// ProfileInterval returns how often the profiler reports.
func (c *Config) ProfileInterval() time.Duration {
	return time.Duration(c.Engine.ProfileInterval) * time.Millisecond
}

// FovRadians returns the vertical field of view in radians.
func (c *Config) FovRadians() float32 {
	return c.Camera.FovDegrees * math32.Pi / 180
}
