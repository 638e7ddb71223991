package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatAt(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

func TestLayoutConstants(t *testing.T) {
	var v GPUVertexUniforms
	assert.Equal(t, VertexUniformsSize, v.Size())
	var vert GPUVertex
	assert.Equal(t, GPUVertexSize, vert.Size())
	assert.Equal(t, 1472, VertexBlockSize)
	assert.Zero(t, FragmentBlockOffset%256)
	assert.GreaterOrEqual(t, FragmentBlockOffset, VertexBlockSize)
}

func TestCubeMesh(t *testing.T) {
	m := CubeMesh()
	require.Equal(t, uint32(36), m.VertexCount())
	assert.Len(t, m.Bytes(), 36*GPUVertexSize)

	for i := 0; i < 36; i += 3 {
		a, b, c := m.Vertices[i].Position, m.Vertices[i+1].Position, m.Vertices[i+2].Position
		e1 := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		e2 := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		cross := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		n := m.Vertices[i].Normal
		dot := cross[0]*n[0] + cross[1]*n[1] + cross[2]*n[2]
		assert.Greater(t, dot, float32(0), "triangle %d wound clockwise", i/3)
	}
}

func TestVertexUniformsOffsets(t *testing.T) {
	var view, projection [16]float32
	common.Translation(view[:], 0, 0, -5)
	common.Perspective(projection[:], 1, 16.0/9.0, 0.1, 100)

	m := NewModel(CubeMesh(), WithPosition([3]float32{1, 2, 3}))
	u := NewGPUVertexUniforms(m.ModelMatrix(), view, projection)
	buf := u.Marshal()
	require.Len(t, buf, VertexUniformsSize)

	// model translation column
	assert.Equal(t, float32(1), floatAt(buf, 48+48))
	assert.Equal(t, float32(3), floatAt(buf, 48+56))
	// view translation z
	assert.Equal(t, float32(-5), floatAt(buf, 112+56))
	// projection[0] and [5]
	assert.Equal(t, projection[0], floatAt(buf, 176))
	assert.Equal(t, projection[5], floatAt(buf, 176+20))
	// modelView translation z is -5 + 3
	assert.InDelta(t, -2.0, float64(floatAt(buf, 240+56)), 1e-6)
	// identity rotation gives an identity normal matrix
	assert.InDelta(t, 1.0, float64(floatAt(buf, 0)), 1e-6)
	assert.InDelta(t, 1.0, float64(floatAt(buf, 20)), 1e-6)
	assert.InDelta(t, 1.0, float64(floatAt(buf, 40)), 1e-6)
}

func TestVertexBlockPacksInstances(t *testing.T) {
	var id [16]float32
	common.Identity(id[:])
	uniforms := make([]GPUVertexUniforms, MaxInstances+1)
	for i := range uniforms {
		var mm [16]float32
		common.Translation(mm[:], float32(i), 0, 0)
		uniforms[i] = NewGPUVertexUniforms(mm, id, id)
	}

	buf := VertexBlock(uniforms)
	require.Len(t, buf, VertexBlockSize)
	for i := 0; i < MaxInstances; i++ {
		assert.Equal(t, float32(i), floatAt(buf, i*VertexUniformsSize+48+48))
	}
}

func TestFragmentUniformsLayout(t *testing.T) {
	f := GPUFragmentUniforms{
		Lights: [NumLights]light.GPUPointLight{
			{Location: [3]float32{1, 0, 0}, Color: [3]float32{1, 0, 0}, Radius: 4},
			{Location: [3]float32{0, 1, 0}, Color: [3]float32{0, 0, 1}, Radius: 8},
		},
		Ambient: [3]float32{0.1, 0.2, 0.3},
	}
	buf := f.Marshal()
	require.Len(t, buf, FragmentUniformsSize)
	assert.Equal(t, float32(4), floatAt(buf, 28))
	assert.Equal(t, float32(1), floatAt(buf, 32+4))
	assert.Equal(t, float32(8), floatAt(buf, 32+28))
	assert.Equal(t, float32(0.1), floatAt(buf, 64))
	assert.Equal(t, float32(0.3), floatAt(buf, 72))
}

func TestRotateWraps(t *testing.T) {
	m := NewModel(CubeMesh())
	for i := 0; i < 1000; i++ {
		m.Rotate([3]float32{0.1, 0.2, 0.3})
	}
	for _, a := range m.Rotation() {
		assert.GreaterOrEqual(t, a, float32(0))
		assert.Less(t, a, common.FullTurn)
	}
}

func TestModelMatrixScale(t *testing.T) {
	m := NewModel(CubeMesh(), WithScale([3]float32{2, 3, 4}), WithTexture("rock1"), WithName("box"))
	mm := m.ModelMatrix()
	assert.Equal(t, float32(2), mm[0])
	assert.Equal(t, float32(3), mm[5])
	assert.Equal(t, float32(4), mm[10])
	assert.Equal(t, "rock1", m.Texture())
	assert.Equal(t, "box", m.Name())
}
