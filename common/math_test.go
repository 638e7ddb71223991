package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-6

func assertMatrixInDelta(t *testing.T, want, got []float32, delta float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDeltaf(t, want[i], got[i], delta, "element %d", i)
	}
}

func TestPerspectiveAspect(t *testing.T) {
	cases := []struct {
		name string
		size Size
	}{
		{"4:3", Size{Width: 800, Height: 600}},
		{"16:9", Size{Width: 1920, Height: 1080}},
		{"portrait", Size{Width: 600, Height: 1200}},
		{"square", Size{Width: 512, Height: 512}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := make([]float32, 16)
			Perspective(m, math32.Pi/3, c.size.Aspect(), 0.1, 100)
			assert.InDelta(t, float64(c.size.Width/c.size.Height), float64(m[5]/m[0]), tol)
			assert.Equal(t, float32(-1), m[11])
			assert.Equal(t, float32(0), m[15])
		})
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	m := make([]float32, 16)
	near, far := float32(0.5), float32(50)
	Perspective(m, math32.Pi/4, 1, near, far)

	// z_ndc = (m10*z + m14) / -z
	ndc := func(z float32) float32 { return (m[10]*z + m[14]) / -z }
	assert.InDelta(t, 0.0, float64(ndc(-near)), tol)
	assert.InDelta(t, 1.0, float64(ndc(-far)), 1e-5)
}

func TestRotationFullTurnIsIdempotent(t *testing.T) {
	axis := [3]float32{1, 1, 0}
	before := make([]float32, 16)
	after := make([]float32, 16)

	for _, angle := range []float32{0, 0.3, 1.7, 4.2} {
		Rotation(before, angle, axis)
		Rotation(after, WrapAngle(angle+FullTurn), axis)
		assertMatrixInDelta(t, before, after, 1e-5)
	}
}

func TestRotationZeroAxis(t *testing.T) {
	m := make([]float32, 16)
	Rotation(m, 1, [3]float32{})
	id := make([]float32, 16)
	Identity(id)
	assert.Equal(t, id, m)
}

func TestRotationQuarterTurnAboutY(t *testing.T) {
	m := make([]float32, 16)
	Rotation(m, math32.Pi/2, [3]float32{0, 1, 0})
	// +X rotates onto -Z
	x := m[0]*1 + m[4]*0 + m[8]*0
	z := m[2]*1 + m[6]*0 + m[10]*0
	assert.InDelta(t, 0.0, float64(x), tol)
	assert.InDelta(t, -1.0, float64(z), tol)
}

func TestWrapAngle(t *testing.T) {
	cases := []struct {
		in, want float32
	}{
		{0, 0},
		{1, 1},
		{FullTurn, 0},
		{FullTurn + 0.5, 0.5},
		{-0.5, FullTurn - 0.5},
		{3*FullTurn + 1, 1},
	}
	for _, c := range cases {
		got := WrapAngle(c.in)
		assert.InDelta(t, float64(c.want), float64(got), 1e-4, "WrapAngle(%v)", c.in)
		assert.GreaterOrEqual(t, got, float32(0))
		assert.Less(t, got, float32(FullTurn))
	}
}

func TestMul4Identity(t *testing.T) {
	id := make([]float32, 16)
	Identity(id)
	tr := make([]float32, 16)
	Translation(tr, 1, 2, 3)

	out := make([]float32, 16)
	Mul4(out, id, tr)
	assert.Equal(t, tr, out)
	Mul4(out, tr, id)
	assert.Equal(t, tr, out)
}

func TestMul4Composition(t *testing.T) {
	tr := make([]float32, 16)
	sc := make([]float32, 16)
	Translation(tr, 5, 0, 0)
	Scale(sc, 2, 2, 2)

	// T*S applied to (1,0,0,1) -> (7,0,0,1)
	m := make([]float32, 16)
	Mul4(m, tr, sc)
	assert.InDelta(t, 7.0, float64(m[0]*1+m[12]), tol)
}

func TestInvert4(t *testing.T) {
	m := make([]float32, 16)
	Rotation(m, 0.7, [3]float32{0, 0, 1})
	m[12], m[13], m[14] = 3, -2, 1

	inv := make([]float32, 16)
	require.True(t, Invert4(inv, m))

	prod := make([]float32, 16)
	Mul4(prod, m, inv)
	id := make([]float32, 16)
	Identity(id)
	assertMatrixInDelta(t, id, prod, 1e-5)

	singular := make([]float32, 16)
	assert.False(t, Invert4(inv, singular))
}

func TestNormalMatrix(t *testing.T) {
	t.Run("rotation is its own normal matrix", func(t *testing.T) {
		m := make([]float32, 16)
		Rotation(m, 1.1, [3]float32{0, 1, 0})
		n := NormalMatrix(m)
		for col := 0; col < 3; col++ {
			for row := 0; row < 3; row++ {
				assert.InDelta(t, float64(m[col*4+row]), float64(n[col*4+row]), 1e-5)
			}
			assert.Equal(t, float32(0), n[col*4+3])
		}
	})

	t.Run("scale inverts", func(t *testing.T) {
		m := make([]float32, 16)
		Scale(m, 2, 4, 8)
		n := NormalMatrix(m)
		assert.InDelta(t, 0.5, float64(n[0]), tol)
		assert.InDelta(t, 0.25, float64(n[5]), tol)
		assert.InDelta(t, 0.125, float64(n[10]), tol)
	})
}

func TestCheckerboard(t *testing.T) {
	black := [4]uint8{0, 0, 0, 255}
	white := [4]uint8{255, 255, 255, 255}
	tex := Checkerboard(4, 2, black, white)

	require.Len(t, tex.Pixels, 4*4*4)
	assert.Equal(t, uint32(4), tex.Width)
	assert.Equal(t, black[:], tex.Pixels[0:4])
	// pixel (2,0) is in the second cell
	assert.Equal(t, white[:], tex.Pixels[2*4:2*4+4])
}

func TestSceneIndexForKey(t *testing.T) {
	idx, ok := SceneIndexForKey(Key1)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = SceneIndexForKey(Key9)
	assert.True(t, ok)
	assert.Equal(t, 8, idx)

	_, ok = SceneIndexForKey(Key0)
	assert.False(t, ok)
	_, ok = SceneIndexForKey(KeyW)
	assert.False(t, ok)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
}
