package model

// Mesh is an immutable, non-indexed triangle list.
type Mesh struct {
	// Name is the mesh identifier.
	Name string

	// Vertices are the triangle list vertices, three per triangle.
	Vertices []GPUVertex
}

// VertexCount returns the number of vertices drawn for this mesh.
//
// Returns:
//   - uint32: the vertex count
func (m *Mesh) VertexCount() uint32 {
	return uint32(len(m.Vertices))
}

// Bytes returns the mesh vertices packed at GPUVertexSize stride.
//
// Returns:
//   - []byte: the vertex buffer contents
func (m *Mesh) Bytes() []byte {
	buf := make([]byte, 0, len(m.Vertices)*GPUVertexSize)
	for i := range m.Vertices {
		buf = append(buf, m.Vertices[i].Marshal()...)
	}
	return buf
}

type cubeFace struct {
	normal  [3]float32
	corners [4][3]float32
}

// cube faces wound counter-clockwise when viewed from outside
var cubeFaces = [6]cubeFace{
	{normal: [3]float32{0, 0, 1}, corners: [4][3]float32{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
	{normal: [3]float32{0, 0, -1}, corners: [4][3]float32{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}},
	{normal: [3]float32{1, 0, 0}, corners: [4][3]float32{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},
	{normal: [3]float32{-1, 0, 0}, corners: [4][3]float32{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
	{normal: [3]float32{0, 1, 0}, corners: [4][3]float32{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},
	{normal: [3]float32{0, -1, 0}, corners: [4][3]float32{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
}

var cornerUVs = [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

// CubeMesh builds a unit cube spanning [-1, 1] on every axis as 36 vertices with per-face
// normals and UVs.
//
// Returns:
//   - *Mesh: the cube mesh
func CubeMesh() *Mesh {
	m := &Mesh{Name: "cube", Vertices: make([]GPUVertex, 0, 36)}
	for _, face := range cubeFaces {
		for _, c := range [6]int{0, 1, 2, 0, 2, 3} {
			m.Vertices = append(m.Vertices, GPUVertex{
				Position: face.corners[c],
				Normal:   face.normal,
				TexCoord: cornerUVs[c],
			})
		}
	}
	return m
}
