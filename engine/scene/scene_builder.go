package scene

import (
	"github.com/Carmen-Shannon/oxy-pacer/engine/camera"
)

// SceneBuilderOption is a functional option for configuring a scene variant.
type SceneBuilderOption func(*texturedScene)

// WithCamera replaces the default camera.
//
// Parameters:
//   - cam: the camera to view the scene through
//
// Returns:
//   - SceneBuilderOption: a function that applies the camera option
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *texturedScene) {
		s.cam = cam
	}
}

// WithAutoRotation configures whether the scene rotates on its own and how fast.
//
// Parameters:
//   - enabled: true to rotate every Update
//   - rate: rotation speed in radians per second
//
// Returns:
//   - SceneBuilderOption: a function that applies the rotation option
func WithAutoRotation(enabled bool, rate float32) SceneBuilderOption {
	return func(s *texturedScene) {
		s.autoRotate = enabled
		s.rotationRate = rate
	}
}

// WithMoveSpeed sets how far the camera moves per second while a movement key is held.
//
// Parameters:
//   - unitsPerSecond: movement speed in world units
//
// Returns:
//   - SceneBuilderOption: a function that applies the speed option
func WithMoveSpeed(unitsPerSecond float32) SceneBuilderOption {
	return func(s *texturedScene) {
		s.moveSpeed = unitsPerSecond
	}
}

// WithAmbient sets the ambient light term.
//
// Parameters:
//   - r, g, b: the ambient color
//
// Returns:
//   - SceneBuilderOption: a function that applies the ambient option
func WithAmbient(r, g, b float32) SceneBuilderOption {
	return func(s *texturedScene) {
		s.ambient = [3]float32{r, g, b}
	}
}

// WithInstanceIndex draws every cube with a single instanced draw call. The vertex stage then
// selects each cube's transforms by instance index. Ignored when argument buffers are in use.
//
// Parameters:
//   - enabled: true to draw instanced
//
// Returns:
//   - SceneBuilderOption: a function that applies the instancing option
func WithInstanceIndex(enabled bool) SceneBuilderOption {
	return func(s *texturedScene) {
		s.useInstanceIndex = enabled
	}
}

// WithArgumentBuffer binds uniforms, texture and sampler through one argument buffer per texture.
//
// Parameters:
//   - enabled: true to bind through argument buffers
//
// Returns:
//   - SceneBuilderOption: a function that applies the binding option
func WithArgumentBuffer(enabled bool) SceneBuilderOption {
	return func(s *texturedScene) {
		s.useArgumentBuffer = enabled
	}
}

// WithTextures sets the texture names assigned to the cubes in order, cycling when there are
// fewer names than cubes.
func WithTextures(names ...string) SceneBuilderOption {
	return func(s *texturedScene) {
		if len(names) > 0 {
			s.textureNames = names
		}
	}
}

// WithModelCount sets how many cubes are drawn, between 1 and model.MaxInstances.
func WithModelCount(n int) SceneBuilderOption {
	return func(s *texturedScene) {
		s.modelCount = n
	}
}
