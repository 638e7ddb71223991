// Package scene holds the demo scenes drawn by the renderer. Every scene draws textured cubes
// lit by two point lights; they differ in layout, animation and how resources are bound.
package scene

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/camera"
	"github.com/Carmen-Shannon/oxy-pacer/engine/light"
	"github.com/Carmen-Shannon/oxy-pacer/engine/model"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
)

const (
	defaultZOffset      = 8
	defaultCameraTilt   = 0.35
	defaultMoveSpeed    = 3
	defaultZoomSpeed    = 4
	defaultRotationRate = 0.5
	minZOffset          = 1
)

// texturedScene is the shared implementation behind every scene variant. The whole animated
// state is a function of one accumulated rotation angle, kept within one turn.
type texturedScene struct {
	renderer.BaseScene

	ctx    *renderer.Context
	cam    camera.Camera
	models []model.Model
	lights [model.NumLights]light.Light

	ambient      [3]float32
	autoRotate   bool
	rotationRate float32
	rotation     float32
	moveSpeed    float32
	zoomSpeed    float32
	held         map[uint32]bool

	useArgumentBuffer bool
	useInstanceIndex  bool
	textureNames      []string
	modelCount        int

	pipeline   backend.Pipeline
	vertices   backend.Buffer
	textures   []backend.Texture
	argBuffers map[string]backend.ArgumentBuffer

	animate  func(rotation float32)
	vertex   [model.MaxInstances]model.GPUVertexUniforms
	uniforms []byte
}

func newTexturedScene(name string, textures []string, options ...SceneBuilderOption) *texturedScene {
	s := &texturedScene{
		BaseScene:    renderer.NewBaseScene(name),
		ambient:      [3]float32{0.15, 0.15, 0.18},
		autoRotate:   true,
		rotationRate: defaultRotationRate,
		moveSpeed:    defaultMoveSpeed,
		zoomSpeed:    defaultZoomSpeed,
		held:         make(map[uint32]bool),
		textureNames: textures,
		modelCount:   model.MaxInstances,
		argBuffers:   make(map[string]backend.ArgumentBuffer),
		uniforms:     make([]byte, model.UniformSlotSize),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.cam == nil {
		s.cam = camera.NewCamera(camera.WithZOffset(defaultZOffset))
		s.cam.SetRotation([3]float32{defaultCameraTilt, 0, 0})
	}
	if s.modelCount < 1 || s.modelCount > model.MaxInstances {
		s.modelCount = model.MaxInstances
	}

	cube := model.CubeMesh()
	for i := 0; i < s.modelCount; i++ {
		s.models = append(s.models, model.NewModel(cube,
			model.WithName(fmt.Sprintf("%s cube %d", name, i)),
			model.WithTexture(s.textureNames[i%len(s.textureNames)]),
		))
	}
	s.lights = [model.NumLights]light.Light{
		light.NewLight(light.WithColor(1.0, 0.85, 0.6), light.WithRadius(12)),
		light.NewLight(light.WithColor(0.5, 0.6, 1.0), light.WithRadius(12)),
	}
	return s
}

// Camera returns the scene camera.
func (s *texturedScene) Camera() camera.Camera {
	return s.cam
}

// Models returns the cubes drawn by the scene.
func (s *texturedScene) Models() []model.Model {
	return s.models
}

// Lights returns the scene's point lights.
func (s *texturedScene) Lights() [model.NumLights]light.Light {
	return s.lights
}

// Rotation returns the accumulated scene rotation in radians, within [0, 2π).
func (s *texturedScene) Rotation() float32 {
	return s.rotation
}

// AutoRotate reports whether the scene rotates on its own.
func (s *texturedScene) AutoRotate() bool {
	return s.autoRotate
}

// UsesArgumentBuffer reports whether draws bind their resources through argument buffers.
func (s *texturedScene) UsesArgumentBuffer() bool {
	return s.useArgumentBuffer
}

// UsesInstanceIndex reports whether all cubes are drawn by one instanced draw call.
func (s *texturedScene) UsesInstanceIndex() bool {
	return s.useInstanceIndex
}

func (s *texturedScene) Setup(ctx *renderer.Context) error {
	technique := backend.TechniqueTexturedMesh
	if s.useArgumentBuffer {
		technique = backend.TechniqueArgumentedTexturedMesh
	}
	s.pipeline = ctx.Pipeline(technique)
	if s.pipeline == nil {
		return fmt.Errorf("scene %s: no %s pipeline", s.Name(), technique)
	}
	s.vertices = ctx.CubeVertices()
	if s.vertices == nil {
		return errors.New("scene: context has no cube vertices")
	}

	s.textures = s.textures[:0]
	for _, m := range s.models {
		s.textures = append(s.textures, ctx.Texture(m.Texture()))
	}

	if s.useArgumentBuffer {
		for i, m := range s.models {
			if _, ok := s.argBuffers[m.Texture()]; ok {
				continue
			}
			ab, err := ctx.Device().NewArgumentBuffer(backend.ArgumentBufferDescriptor{
				Label:    m.Texture() + " arguments",
				Pipeline: s.pipeline,
				Uniforms: ctx.UniformBuffer(),
				Texture:  s.textures[i],
			})
			if err != nil {
				s.releaseArgumentBuffers()
				return fmt.Errorf("scene %s: argument buffer %q: %w", s.Name(), m.Texture(), err)
			}
			s.argBuffers[m.Texture()] = ab
		}
	}
	s.ctx = ctx
	return nil
}

func (s *texturedScene) DrawableResized(size common.Size) {
	s.cam.Resize(size)
}

func (s *texturedScene) KeyDown(code uint32) {
	s.held[code] = true
	switch code {
	case common.KeyR:
		s.autoRotate = !s.autoRotate
	case common.KeySpace:
		s.reset()
	}
}

func (s *texturedScene) KeyUp(code uint32) {
	delete(s.held, code)
}

func (s *texturedScene) reset() {
	s.cam.SetPosition([3]float32{})
	s.cam.SetRotation([3]float32{defaultCameraTilt, 0, 0})
	s.cam.SetZOffset(defaultZOffset)
	s.rotation = 0
	s.animate(s.rotation)
}

func (s *texturedScene) Update(timeElapsed float32) {
	var d [3]float32
	step := s.moveSpeed * timeElapsed
	if s.held[common.KeyA] {
		d[0] -= step
	}
	if s.held[common.KeyD] {
		d[0] += step
	}
	if s.held[common.KeyW] {
		d[2] -= step
	}
	if s.held[common.KeyS] {
		d[2] += step
	}
	if d != [3]float32{} {
		s.cam.Translate(d)
	}

	zoom := s.zoomSpeed * timeElapsed
	if s.held[common.KeyQ] {
		s.cam.SetZOffset(max(s.cam.ZOffset()-zoom, minZOffset))
	}
	if s.held[common.KeyE] {
		s.cam.SetZOffset(s.cam.ZOffset() + zoom)
	}

	if s.autoRotate {
		s.rotation = common.WrapAngle(s.rotation + s.rotationRate*timeElapsed)
	}
	s.animate(s.rotation)
}

// Uniforms returns the slot contents. The returned slice is reused by the next call.
func (s *texturedScene) Uniforms() []byte {
	view := s.cam.ViewMatrix()
	projection := s.cam.ProjectionMatrix()
	for i, m := range s.models {
		s.vertex[i] = model.NewGPUVertexUniforms(m.ModelMatrix(), view, projection)
		s.vertex[i].MarshalInto(s.uniforms[model.VertexBlockOffset+i*model.VertexUniformsSize:])
	}

	fragment := model.GPUFragmentUniforms{Ambient: s.ambient}
	for i, l := range s.lights {
		fragment.Lights[i] = l.GPU()
	}
	copy(s.uniforms[model.FragmentBlockOffset:], fragment.Marshal())
	return s.uniforms
}

func (s *texturedScene) Encode(enc backend.RenderEncoder, binding backend.UniformBinding) {
	enc.SetPipeline(s.pipeline)
	enc.SetVertexBuffer(0, s.vertices)
	count := uint32(len(s.models))
	vertexCount := s.models[0].Mesh().VertexCount()

	if s.useArgumentBuffer {
		for i, m := range s.models {
			enc.SetArgumentBuffer(s.argBuffers[m.Texture()], binding)
			enc.Draw(vertexCount, 1, uint32(i))
		}
		return
	}

	enc.SetUniforms(binding)
	if s.useInstanceIndex {
		enc.SetTexture(s.textures[0])
		enc.Draw(vertexCount, count, 0)
		return
	}
	for i := range s.models {
		enc.SetTexture(s.textures[i])
		enc.Draw(vertexCount, 1, uint32(i))
	}
}

func (s *texturedScene) Teardown() {
	s.releaseArgumentBuffers()
	s.ctx = nil
}

func (s *texturedScene) releaseArgumentBuffers() {
	for name, ab := range s.argBuffers {
		ab.Release()
		delete(s.argBuffers, name)
	}
}
