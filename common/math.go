package common

import "github.com/chewxy/math32"

// FullTurn is one complete revolution in radians.
const FullTurn = 2 * math32.Pi

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (WebGPU convention).
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// Perspective creates a right-handed perspective projection matrix mapping depth into
// the WebGPU clip range [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	ys := 1 / math32.Tan(fovY*0.5)
	xs := ys / aspect
	zs := far / (near - far)

	Identity(out)
	out[0] = xs
	out[5] = ys
	out[10] = zs
	out[11] = -1
	out[14] = near * zs
	out[15] = 0
}

// Translation writes a translation matrix.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - x, y, z: translation along each axis
func Translation(out []float32, x, y, z float32) {
	Identity(out)
	out[12] = x
	out[13] = y
	out[14] = z
}

// Scale writes a non-uniform scale matrix.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - x, y, z: scale factors along each axis
func Scale(out []float32, x, y, z float32) {
	Identity(out)
	out[0] = x
	out[5] = y
	out[10] = z
}

// Rotation writes a rotation of angle radians about an arbitrary axis. The axis does not
// need to be normalized; a zero axis produces the identity.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - angle: rotation in radians, counter-clockwise looking down the axis
//   - axis: the rotation axis
func Rotation(out []float32, angle float32, axis [3]float32) {
	length := math32.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if length == 0 {
		Identity(out)
		return
	}
	x, y, z := axis[0]/length, axis[1]/length, axis[2]/length

	c := math32.Cos(angle)
	s := math32.Sin(angle)
	ci := 1 - c

	out[0] = c + x*x*ci
	out[1] = y*x*ci + z*s
	out[2] = z*x*ci - y*s
	out[3] = 0

	out[4] = x*y*ci - z*s
	out[5] = c + y*y*ci
	out[6] = z*y*ci + x*s
	out[7] = 0

	out[8] = x*z*ci + y*s
	out[9] = y*z*ci - x*s
	out[10] = c + z*z*ci
	out[11] = 0

	out[12], out[13], out[14], out[15] = 0, 0, 0, 1
}

// WrapAngle folds an angle into [0, FullTurn) so accumulated rotations never grow without bound.
func WrapAngle(a float32) float32 {
	a = math32.Mod(a, FullTurn)
	if a < 0 {
		a += FullTurn
	}
	if a >= FullTurn {
		a = 0
	}
	return a
}

// Invert4 computes the inverse of a 4x4 column-major matrix using the Laplace
// expansion (cofactor) method. If the matrix is singular (determinant ≈ 0) the
// output is left unchanged and the function returns false.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements, column-major)
//
// Returns:
//   - bool: true if the matrix was successfully inverted, false if singular
func Invert4(out, m []float32) bool {
	// 2x2 sub-determinants of the upper-left and lower-right quadrants.
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return false
	}

	invDet := 1.0 / det

	out[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * invDet
	out[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * invDet
	out[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * invDet
	out[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * invDet

	out[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * invDet
	out[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * invDet
	out[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * invDet
	out[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * invDet

	out[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * invDet
	out[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * invDet
	out[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * invDet
	out[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * invDet

	out[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * invDet
	out[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * invDet
	out[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * invDet
	out[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * invDet

	return true
}

// NormalMatrix returns the inverse-transpose of the upper 3x3 of m, laid out as three
// vec4-padded columns to match a WGSL mat3x3<f32>. A singular m yields its own upper 3x3.
//
// Parameters:
//   - m: source matrix (16 elements, column-major)
//
// Returns:
//   - [12]float32: the padded normal matrix
func NormalMatrix(m []float32) [12]float32 {
	var out [12]float32
	var inv [16]float32
	if !Invert4(inv[:], m) {
		for col := 0; col < 3; col++ {
			copy(out[col*4:col*4+3], m[col*4:col*4+3])
		}
		return out
	}

	// element (row, col) of the transpose is inv(col, row)
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			out[col*4+row] = inv[row*4+col]
		}
	}
	return out
}
