package model

import (
	"github.com/Carmen-Shannon/oxy-pacer/common"
)

// model is the implementation of the Model interface.
type model struct {
	name     string
	mesh     *Mesh
	texture  string
	position [3]float32
	rotation [3]float32
	scale    [3]float32
}

// Model is a placed instance of a mesh: the mesh itself, the name of the texture it samples,
// and a translate-rotate-scale transform.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Mesh retrieves the mesh drawn for this model.
	//
	// Returns:
	//   - *Mesh: the mesh
	Mesh() *Mesh

	// Texture returns the name of the texture this model samples.
	//
	// Returns:
	//   - string: the texture name
	Texture() string

	// Position returns the world-space translation.
	//
	// Returns:
	//   - [3]float32: the position
	Position() [3]float32

	// Rotation returns the Euler rotation in radians, each component within [0, 2π).
	//
	// Returns:
	//   - [3]float32: rotation about X, Y and Z
	Rotation() [3]float32

	// Scale returns the per-axis scale.
	//
	// Returns:
	//   - [3]float32: the scale
	Scale() [3]float32

	// SetPosition sets the world-space translation.
	//
	// Parameters:
	//   - p: the position
	SetPosition(p [3]float32)

	// SetRotation sets the Euler rotation. Each angle is wrapped into [0, 2π).
	//
	// Parameters:
	//   - r: rotation about X, Y and Z in radians
	SetRotation(r [3]float32)

	// Rotate adds delta to the current rotation, wrapping each angle into [0, 2π).
	//
	// Parameters:
	//   - delta: rotation increment about X, Y and Z in radians
	Rotate(delta [3]float32)

	// SetScale sets the per-axis scale.
	//
	// Parameters:
	//   - s: the scale
	SetScale(s [3]float32)

	// ModelMatrix returns T * Rx * Ry * Rz * S.
	//
	// Returns:
	//   - [16]float32: the model-to-world matrix (column-major)
	ModelMatrix() [16]float32
}

var _ Model = &model{}

// NewModel creates a new Model drawing mesh with identity transform and any provided options applied.
//
// Parameters:
//   - mesh: the mesh to draw
//   - options: variadic ModelBuilderOption functions
//
// Returns:
//   - Model: the new model
func NewModel(mesh *Mesh, options ...ModelBuilderOption) Model {
	m := &model{
		name:  mesh.Name,
		mesh:  mesh,
		scale: [3]float32{1, 1, 1},
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Mesh() *Mesh {
	return m.mesh
}

func (m *model) Texture() string {
	return m.texture
}

func (m *model) Position() [3]float32 {
	return m.position
}

func (m *model) Rotation() [3]float32 {
	return m.rotation
}

func (m *model) Scale() [3]float32 {
	return m.scale
}

func (m *model) SetPosition(p [3]float32) {
	m.position = p
}

func (m *model) SetRotation(r [3]float32) {
	for i := range r {
		m.rotation[i] = common.WrapAngle(r[i])
	}
}

func (m *model) Rotate(delta [3]float32) {
	for i := range delta {
		m.rotation[i] = common.WrapAngle(m.rotation[i] + delta[i])
	}
}

func (m *model) SetScale(s [3]float32) {
	m.scale = s
}

func (m *model) ModelMatrix() [16]float32 {
	var out, t, rx, ry, rz, s [16]float32
	common.Translation(t[:], m.position[0], m.position[1], m.position[2])
	common.Rotation(rx[:], m.rotation[0], [3]float32{1, 0, 0})
	common.Rotation(ry[:], m.rotation[1], [3]float32{0, 1, 0})
	common.Rotation(rz[:], m.rotation[2], [3]float32{0, 0, 1})
	common.Scale(s[:], m.scale[0], m.scale[1], m.scale[2])

	common.Mul4(out[:], t[:], rx[:])
	common.Mul4(out[:], out[:], ry[:])
	common.Mul4(out[:], out[:], rz[:])
	common.Mul4(out[:], out[:], s[:])
	return out
}
