package light

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUPointLightSize is the byte size of one PointLight in the fragment uniform block.
const GPUPointLightSize = 32

// GPUPointLight is the GPU-aligned representation of a point light.
// Matches the WGSL PointLight struct (uniform address space):
//
//	struct PointLight {
//	    location: vec3<f32>,
//	    color: vec3<f32>,
//	    radius: f32,
//	}
//
// Size: 32 bytes.
type GPUPointLight struct {
	Location [3]float32 // offset  0
	_pad0    float32    // offset 12: vec3 alignment
	Color    [3]float32 // offset 16
	Radius   float32    // offset 28: packs into the tail of color
}

// Size returns the size of the GPUPointLight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUPointLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto writes the light into buf, which must hold at least 32 bytes.
//
// Parameters:
//   - buf: destination buffer
func (g *GPUPointLight) MarshalInto(buf []byte) {
	_ = buf[GPUPointLightSize-1]
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Location[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Location[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Location[2]))
	binary.LittleEndian.PutUint32(buf[12:16], 0) // padding
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Radius))
}

// Marshal serializes the GPUPointLight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUPointLight) Marshal() []byte {
	buf := make([]byte, GPUPointLightSize)
	g.MarshalInto(buf)
	return buf
}
