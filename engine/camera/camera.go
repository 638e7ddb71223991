package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/chewxy/math32"
)

type cameraImpl struct {
	mu *sync.Mutex

	position [3]float32
	rotation [3]float32
	zOffset  float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewDirty       bool
	projectionDirty bool

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32
}

// Camera holds the scene camera state and lazily derives its view, projection and
// view-projection matrices. Setters only mark the affected matrices dirty; the matrices
// are recomputed on the next read.
//
// The view transform places the camera at Position, rotated by Rotation (Euler angles in
// radians, applied Z then Y then X), then pulled back ZOffset units along its own view axis.
type Camera interface {
	// Position returns the camera position in world space.
	//
	// Returns:
	//   - [3]float32: the position
	Position() [3]float32

	// Rotation returns the camera Euler rotation in radians.
	//
	// Returns:
	//   - [3]float32: rotation about X, Y and Z
	Rotation() [3]float32

	// ZOffset returns the distance the camera is pulled back along its view axis.
	//
	// Returns:
	//   - float32: the offset
	ZOffset() float32

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current right-handed perspective projection as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// SetPosition sets the camera position in world space.
	//
	// Parameters:
	//   - p: the position
	SetPosition(p [3]float32)

	// Translate moves the camera by d in world space.
	//
	// Parameters:
	//   - d: the translation
	Translate(d [3]float32)

	// SetRotation sets the camera Euler rotation in radians. Each angle is wrapped into one turn.
	//
	// Parameters:
	//   - r: rotation about X, Y and Z
	SetRotation(r [3]float32)

	// SetZOffset sets the pull-back distance along the view axis.
	//
	// Parameters:
	//   - z: the offset
	SetZOffset(z float32)

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetNear sets the near clipping plane distance.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// Resize derives the aspect ratio from a drawable size. It is the only way the aspect
	// ratio changes after construction. Empty sizes are ignored.
	//
	// Parameters:
	//   - size: the drawable size in pixels
	Resize(size common.Size)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings: 65 degree field of view,
// aspect 1, near 0.1, far 100, placed at the origin with a zOffset of 5.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:              &sync.Mutex{},
		zOffset:         5,
		fov:             65.0 * (math32.Pi / 180.0),
		aspect:          1.0,
		near:            0.1,
		far:             100.0,
		viewDirty:       true,
		projectionDirty: true,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Rotation() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

func (c *cameraImpl) ZOffset() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zOffset
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) SetPosition(p [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
	c.viewDirty = true
}

func (c *cameraImpl) Translate(d [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range d {
		c.position[i] += d[i]
	}
	c.viewDirty = true
}

func (c *cameraImpl) SetRotation(r [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range r {
		c.rotation[i] = common.WrapAngle(r[i])
	}
	c.viewDirty = true
}

func (c *cameraImpl) SetZOffset(z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zOffset = z
	c.viewDirty = true
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.projectionDirty = true
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.projectionDirty = true
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.projectionDirty = true
}

func (c *cameraImpl) Resize(size common.Size) {
	if size.Empty() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = size.Aspect()
	c.projectionDirty = true
}

// updateMatrices recomputes whichever matrices are dirty. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if !c.viewDirty && !c.projectionDirty {
		return
	}

	if c.viewDirty {
		var pullBack, rx, ry, rz, toOrigin, tmp [16]float32
		common.Translation(pullBack[:], 0, 0, -c.zOffset)
		common.Rotation(rx[:], c.rotation[0], [3]float32{1, 0, 0})
		common.Rotation(ry[:], c.rotation[1], [3]float32{0, 1, 0})
		common.Rotation(rz[:], c.rotation[2], [3]float32{0, 0, 1})
		common.Translation(toOrigin[:], -c.position[0], -c.position[1], -c.position[2])

		common.Mul4(tmp[:], pullBack[:], rx[:])
		common.Mul4(tmp[:], tmp[:], ry[:])
		common.Mul4(tmp[:], tmp[:], rz[:])
		common.Mul4(c.viewMatrix[:], tmp[:], toOrigin[:])
		c.viewDirty = false
	}

	if c.projectionDirty {
		common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
		c.projectionDirty = false
	}

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
