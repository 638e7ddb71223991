package scene

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer"
)

const (
	forwardLightingRingRadius  = 2.5
	forwardLightingLightOrbit  = 4.5
	forwardLightingLightHeight = 2
)

// ForwardLightingScene draws a ring of textured cubes circling the origin while two point
// lights orbit around them in opposite directions.
type ForwardLightingScene struct {
	*texturedScene
}

var _ renderer.Scene = &ForwardLightingScene{}

// NewForwardLightingScene creates the forward lighting scene.
//
// Parameters:
//   - options: variadic SceneBuilderOption functions
//
// Returns:
//   - *ForwardLightingScene: the scene, not yet set up
func NewForwardLightingScene(options ...SceneBuilderOption) *ForwardLightingScene {
	s := &ForwardLightingScene{
		texturedScene: newTexturedScene("forward lighting",
			[]string{renderer.TextureRock1, renderer.TextureGrass1, renderer.TextureWood1, renderer.TextureRock2},
			options...),
	}
	s.animate = s.place
	s.place(s.rotation)
	return s
}

// place positions every cube and light for the given scene rotation. Cube spins use whole
// multiples of the rotation so a full turn restores the starting pose.
func (s *ForwardLightingScene) place(rotation float32) {
	n := float32(len(s.models))
	for i, m := range s.models {
		angle := rotation + float32(i)*common.FullTurn/n
		sin, cos := math32.Sincos(angle)
		m.SetPosition([3]float32{cos * forwardLightingRingRadius, 0, sin * forwardLightingRingRadius})
		k := float32(i + 1)
		m.SetRotation([3]float32{rotation * k, rotation * (k + 1), 0})
	}

	s.lights[0].Orbit([3]float32{0, forwardLightingLightHeight, 0}, forwardLightingLightOrbit, rotation)
	s.lights[1].Orbit([3]float32{0, forwardLightingLightHeight, 0}, forwardLightingLightOrbit, common.FullTurn/2-rotation)
}
