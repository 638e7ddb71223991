package renderer

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/model"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
)

// PlaceholderTexture is the name of the texture returned for unknown texture names.
const PlaceholderTexture = "placeholder"

// Default texture names available to every scene.
const (
	TextureRock1  = "rock1"
	TextureRock2  = "rock2"
	TextureGrass1 = "grass1"
	TextureGrass2 = "grass2"
	TextureWood1  = "wood1"
	TextureWood2  = "wood2"
)

type checker struct {
	cell uint32
	a, b [4]uint8
}

var defaultTextures = map[string]checker{
	TextureRock1:       {cell: 8, a: [4]uint8{120, 118, 112, 255}, b: [4]uint8{86, 84, 80, 255}},
	TextureRock2:       {cell: 16, a: [4]uint8{140, 128, 116, 255}, b: [4]uint8{98, 90, 82, 255}},
	TextureGrass1:      {cell: 8, a: [4]uint8{72, 140, 56, 255}, b: [4]uint8{48, 104, 40, 255}},
	TextureGrass2:      {cell: 4, a: [4]uint8{96, 160, 64, 255}, b: [4]uint8{60, 120, 44, 255}},
	TextureWood1:       {cell: 16, a: [4]uint8{150, 104, 60, 255}, b: [4]uint8{118, 80, 44, 255}},
	TextureWood2:       {cell: 32, a: [4]uint8{170, 124, 76, 255}, b: [4]uint8{132, 92, 54, 255}},
	PlaceholderTexture: {cell: 4, a: [4]uint8{255, 0, 255, 255}, b: [4]uint8{0, 0, 0, 255}},
}

const defaultTextureSize = 64

// Context is the renderer state shared by every scene: the device, the surface formats, the
// default pipelines, the named textures and the cube vertex buffer. Scenes receive it in Setup
// and keep it as a non-owning reference; the renderer releases it on Close.
type Context struct {
	device      backend.Device
	colorFormat backend.PixelFormat
	depthFormat backend.PixelFormat
	numBuffers  int

	uniforms  backend.Buffer
	pipelines map[backend.Technique]backend.Pipeline
	textures  map[string]backend.Texture

	cube         *model.Mesh
	cubeVertices backend.Buffer
}

// newContext creates the shared resources. Imported textures override the generated defaults
// with the same name; a texture that fails to decode is logged and skipped.
func newContext(device backend.Device, uniforms backend.Buffer, numBuffers int, imported []common.ImportedTexture) (*Context, error) {
	c := &Context{
		device:      device,
		colorFormat: device.Surface().Format(),
		depthFormat: device.DepthFormat(),
		numBuffers:  numBuffers,
		uniforms:    uniforms,
		pipelines:   make(map[backend.Technique]backend.Pipeline),
		textures:    make(map[string]backend.Texture),
		cube:        model.CubeMesh(),
	}

	for _, technique := range []backend.Technique{backend.TechniqueTexturedMesh, backend.TechniqueArgumentedTexturedMesh} {
		p, err := device.NewPipeline(backend.PipelineDescriptor{
			Label:               technique.String(),
			Technique:           technique,
			ColorFormat:         c.colorFormat,
			DepthFormat:         c.depthFormat,
			VertexStride:        model.GPUVertexSize,
			VertexUniformSize:   model.VertexBlockSize,
			FragmentUniformSize: model.FragmentUniformsSize,
		})
		if err != nil {
			c.Release()
			return nil, fmt.Errorf("renderer: pipeline %s: %w", technique, err)
		}
		c.pipelines[technique] = p
	}

	staging := make(map[string]common.TextureStagingData, len(defaultTextures)+len(imported))
	for name, ch := range defaultTextures {
		staging[name] = common.Checkerboard(defaultTextureSize, ch.cell, ch.a, ch.b)
	}
	for i := range imported {
		data, err := imported[i].Decode()
		if err != nil {
			common.Logger().Warn("texture skipped", "name", imported[i].Name, "err", err)
			continue
		}
		staging[imported[i].Name] = data
	}
	for name, data := range staging {
		tex, err := device.NewTexture(name, data)
		if err != nil {
			c.Release()
			return nil, fmt.Errorf("renderer: texture %q: %w", name, err)
		}
		c.textures[name] = tex
	}

	vertices := c.cube.Bytes()
	buf, err := device.NewBuffer("cube vertices", uint64(len(vertices)), backend.BufferUsageVertex)
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("renderer: cube vertices: %w", err)
	}
	if err := device.WriteBuffer(buf, 0, vertices); err != nil {
		buf.Release()
		c.Release()
		return nil, fmt.Errorf("renderer: upload cube vertices: %w", err)
	}
	c.cubeVertices = buf
	return c, nil
}

// Device returns the graphics device.
func (c *Context) Device() backend.Device {
	return c.device
}

// ColorFormat returns the pixel format of the presentation surface.
func (c *Context) ColorFormat() backend.PixelFormat {
	return c.colorFormat
}

// DepthFormat returns the pixel format of the depth attachment.
func (c *Context) DepthFormat() backend.PixelFormat {
	return c.depthFormat
}

// NumDynamicBuffers returns the number of uniform slots, which is also the maximum number of
// frames in flight.
func (c *Context) NumDynamicBuffers() int {
	return c.numBuffers
}

// UniformBuffer returns the device buffer backing every uniform slot. Argument buffers bind it
// once and select the slot with per-draw offsets.
func (c *Context) UniformBuffer() backend.Buffer {
	return c.uniforms
}

// Pipeline returns the default pipeline for a technique, or nil.
//
// Parameters:
//   - technique: the draw technique
//
// Returns:
//   - backend.Pipeline: the pipeline
func (c *Context) Pipeline(technique backend.Technique) backend.Pipeline {
	return c.pipelines[technique]
}

// Texture returns the texture registered under name, or the placeholder texture.
//
// Parameters:
//   - name: the texture name
//
// Returns:
//   - backend.Texture: the texture
func (c *Context) Texture(name string) backend.Texture {
	if tex, ok := c.textures[name]; ok {
		return tex
	}
	return c.textures[PlaceholderTexture]
}

// TextureNames returns the registered texture names in sorted order.
func (c *Context) TextureNames() []string {
	names := make([]string, 0, len(c.textures))
	for name := range c.textures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cube returns the shared cube mesh.
func (c *Context) Cube() *model.Mesh {
	return c.cube
}

// CubeVertices returns the vertex buffer holding the cube mesh.
func (c *Context) CubeVertices() backend.Buffer {
	return c.cubeVertices
}

// Release releases every resource the context created.
func (c *Context) Release() {
	for _, p := range c.pipelines {
		p.Release()
	}
	for _, t := range c.textures {
		t.Release()
	}
	if c.cubeVertices != nil {
		c.cubeVertices.Release()
	}
	c.pipelines = map[backend.Technique]backend.Pipeline{}
	c.textures = map[string]backend.Texture{}
	c.cubeVertices = nil
}
