package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/light"
)

const (
	// MaxInstances is the number of VertexUniforms entries in one uniform slot, and so the
	// largest number of models a single draw call (or a single frame) can address.
	MaxInstances = 4

	// NumLights is the number of point lights in the fragment uniform block.
	NumLights = 2

	// VertexUniformsSize is the byte size of one WGSL VertexUniforms struct.
	VertexUniformsSize = 368

	// VertexBlockSize is the byte size of array<VertexUniforms, MaxInstances>.
	VertexBlockSize = VertexUniformsSize * MaxInstances

	// FragmentUniformsSize is the byte size of the WGSL FragmentUniforms struct.
	FragmentUniformsSize = 80

	// VertexBlockOffset is the offset of the vertex block within a uniform slot.
	VertexBlockOffset = 0

	// FragmentBlockOffset is the offset of the fragment block within a uniform slot. It sits on
	// the next 256-byte boundary after the vertex block so both blocks can be bound with
	// dynamic offsets.
	FragmentBlockOffset = 1536

	// UniformSlotSize is the unaligned byte size of one frame's uniform slot.
	UniformSlotSize = FragmentBlockOffset + FragmentUniformsSize
)

// GPUVertexSize is the byte stride of GPUVertex.
const GPUVertexSize = 32

// GPUVertex is the GPU-aligned representation of a textured mesh vertex.
// Matches the WGSL VertexInput locations 0..2.
// Size: 32 bytes, tightly packed.
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, GPUVertexSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Normal[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Normal[1]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Normal[2]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.TexCoord[0]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.TexCoord[1]))
	return buf
}

// GPUVertexUniforms is the per-instance transform block read by the vertex stage.
// Matches the WGSL VertexUniforms struct:
//
//	offset   0: normal     mat3x3<f32> (three vec4-padded columns, 48 bytes)
//	offset  48: model      mat4x4<f32>
//	offset 112: view       mat4x4<f32>
//	offset 176: projection mat4x4<f32>
//	offset 240: modelView  mat4x4<f32>
//	offset 304: mvp        mat4x4<f32>
//
// Size: 368 bytes.
type GPUVertexUniforms struct {
	Normal     [12]float32
	Model      [16]float32
	View       [16]float32
	Projection [16]float32
	ModelView  [16]float32
	MVP        [16]float32
}

// NewGPUVertexUniforms derives the full transform block from model, view and projection.
//
// Parameters:
//   - modelMatrix: model-to-world transform
//   - view: world-to-view transform
//   - projection: view-to-clip transform
//
// Returns:
//   - GPUVertexUniforms: the populated block
func NewGPUVertexUniforms(modelMatrix, view, projection [16]float32) GPUVertexUniforms {
	u := GPUVertexUniforms{
		Normal:     common.NormalMatrix(modelMatrix[:]),
		Model:      modelMatrix,
		View:       view,
		Projection: projection,
	}
	common.Mul4(u.ModelView[:], view[:], modelMatrix[:])
	common.Mul4(u.MVP[:], projection[:], u.ModelView[:])
	return u
}

// Size returns the size of the GPUVertexUniforms struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertexUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto writes the block into buf, which must hold at least VertexUniformsSize bytes.
//
// Parameters:
//   - buf: destination buffer
func (g *GPUVertexUniforms) MarshalInto(buf []byte) {
	_ = buf[VertexUniformsSize-1]
	off := putFloats(buf, 0, g.Normal[:])
	off = putFloats(buf, off, g.Model[:])
	off = putFloats(buf, off, g.View[:])
	off = putFloats(buf, off, g.Projection[:])
	off = putFloats(buf, off, g.ModelView[:])
	putFloats(buf, off, g.MVP[:])
}

// Marshal serializes the GPUVertexUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 368-byte buffer ready for GPU upload.
func (g *GPUVertexUniforms) Marshal() []byte {
	buf := make([]byte, VertexUniformsSize)
	g.MarshalInto(buf)
	return buf
}

// GPUFragmentUniforms is the lighting block read by the fragment stage.
// Matches the WGSL FragmentUniforms struct: two 32-byte PointLights followed by a vec3 ambient
// term padded to 16 bytes.
// Size: 80 bytes.
type GPUFragmentUniforms struct {
	Lights  [NumLights]light.GPUPointLight
	Ambient [3]float32
}

// Marshal serializes the GPUFragmentUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUFragmentUniforms) Marshal() []byte {
	buf := make([]byte, FragmentUniformsSize)
	for i := range g.Lights {
		g.Lights[i].MarshalInto(buf[i*light.GPUPointLightSize:])
	}
	putFloats(buf, NumLights*light.GPUPointLightSize, g.Ambient[:])
	return buf
}

// VertexBlock packs up to MaxInstances transform blocks into one VertexBlockSize buffer.
// Unused entries are left zeroed.
//
// Parameters:
//   - uniforms: the per-instance blocks, at most MaxInstances
//
// Returns:
//   - []byte: VertexBlockSize bytes ready for upload at VertexBlockOffset
func VertexBlock(uniforms []GPUVertexUniforms) []byte {
	buf := make([]byte, VertexBlockSize)
	for i := range uniforms {
		if i >= MaxInstances {
			break
		}
		uniforms[i].MarshalInto(buf[i*VertexUniformsSize:])
	}
	return buf
}

func putFloats(buf []byte, off int, values []float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return off
}
