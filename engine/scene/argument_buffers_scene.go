package scene

import (
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer"
)

const argumentBuffersSpacing = 2.5

// ArgumentBuffersScene draws a row of spinning cubes under two fixed lights. Each cube binds
// its uniforms, texture and sampler through a single argument buffer unless the option is
// turned off.
type ArgumentBuffersScene struct {
	*texturedScene
}

var _ renderer.Scene = &ArgumentBuffersScene{}

// NewArgumentBuffersScene creates the argument buffers scene. Argument buffers are enabled by
// default; pass WithArgumentBuffer(false) to bind resources individually.
//
// Parameters:
//   - options: variadic SceneBuilderOption functions
//
// Returns:
//   - *ArgumentBuffersScene: the scene, not yet set up
func NewArgumentBuffersScene(options ...SceneBuilderOption) *ArgumentBuffersScene {
	options = append([]SceneBuilderOption{WithArgumentBuffer(true)}, options...)
	s := &ArgumentBuffersScene{
		texturedScene: newTexturedScene("argument buffers",
			[]string{renderer.TextureWood2, renderer.TextureGrass2, renderer.TextureRock2, renderer.TextureWood1},
			options...),
	}
	s.lights[0].SetPosition(-3, 3, 3)
	s.lights[1].SetPosition(3, 3, 3)
	s.animate = s.place
	s.place(s.rotation)
	return s
}

func (s *ArgumentBuffersScene) place(rotation float32) {
	offset := float32(len(s.models)-1) / 2
	for i, m := range s.models {
		m.SetPosition([3]float32{(float32(i) - offset) * argumentBuffersSpacing, 0, 0})
		m.SetRotation([3]float32{0, rotation * float32(i+1), 0})
	}
}
