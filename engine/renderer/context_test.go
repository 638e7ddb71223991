package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/model"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextDefaults(t *testing.T) {
	dev := backend.NewHeadlessDevice(backend.WithImmediateCompletion())
	defer dev.Release()
	uniforms, err := dev.NewBuffer("uniforms", 4096, backend.BufferUsageUniform)
	require.NoError(t, err)

	c, err := newContext(dev, uniforms, 3, []common.ImportedTexture{
		{Name: "broken", Data: []byte("not an image")},
	})
	require.NoError(t, err)
	defer c.Release()

	assert.Equal(t, 3, c.NumDynamicBuffers())
	assert.Equal(t, backend.PixelFormatBGRA8Unorm, c.ColorFormat())
	assert.Equal(t, dev.DepthFormat(), c.DepthFormat())
	assert.Same(t, uniforms, c.UniformBuffer())
	assert.Equal(t, []string{
		TextureGrass1, TextureGrass2,
		PlaceholderTexture,
		TextureRock1, TextureRock2,
		TextureWood1, TextureWood2,
	}, c.TextureNames())

	assert.Equal(t, TextureWood2, c.Texture(TextureWood2).Label())
	assert.Equal(t, PlaceholderTexture, c.Texture("broken").Label())
	assert.Equal(t, PlaceholderTexture, c.Texture("missing").Label())

	for _, technique := range []backend.Technique{backend.TechniqueTexturedMesh, backend.TechniqueArgumentedTexturedMesh} {
		p := c.Pipeline(technique)
		require.NotNil(t, p)
		desc := p.Descriptor()
		assert.Equal(t, technique.String(), desc.Label)
		assert.Equal(t, uint64(model.VertexBlockSize), desc.VertexUniformSize)
		assert.Equal(t, uint64(model.FragmentUniformsSize), desc.FragmentUniformSize)
		assert.Equal(t, uint64(model.GPUVertexSize), desc.VertexStride)
	}

	require.NotNil(t, c.CubeVertices())
	assert.Equal(t, uint64(36*model.GPUVertexSize), c.CubeVertices().Size())
	assert.Equal(t, uint32(36), c.Cube().VertexCount())
}
