package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFloat(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

func TestGPUPointLightLayout(t *testing.T) {
	l := NewLight(WithPosition(1, 2, 3), WithColor(0.5, 0.25, 0.125), WithRadius(7))
	g := l.GPU()
	buf := g.Marshal()

	require.Len(t, buf, GPUPointLightSize)
	assert.Equal(t, GPUPointLightSize, g.Size())
	assert.Equal(t, float32(1), readFloat(buf, 0))
	assert.Equal(t, float32(3), readFloat(buf, 8))
	assert.Equal(t, float32(0.5), readFloat(buf, 16))
	assert.Equal(t, float32(0.125), readFloat(buf, 24))
	assert.Equal(t, float32(7), readFloat(buf, 28))
}

func TestDisabledLightIsBlack(t *testing.T) {
	l := NewLight(WithColor(1, 1, 1), WithEnabled(false))
	g := l.GPU()
	assert.Equal(t, [3]float32{}, g.Color)
	assert.Zero(t, g.Radius)
}

func TestOrbit(t *testing.T) {
	l := NewLight()
	l.Orbit([3]float32{0, 2, 0}, 3, 0)
	p := l.Position()
	assert.InDelta(t, 3.0, float64(p[0]), 1e-6)
	assert.InDelta(t, 2.0, float64(p[1]), 1e-6)
	assert.InDelta(t, 0.0, float64(p[2]), 1e-6)

	l.Orbit([3]float32{0, 0, 0}, 3, math.Pi/2)
	p = l.Position()
	assert.InDelta(t, 0.0, float64(p[0]), 1e-5)
	assert.InDelta(t, 3.0, float64(p[2]), 1e-5)
}

func TestWithOrbitMatchesOrbit(t *testing.T) {
	center := [3]float32{1, 4, -2}
	built := NewLight(WithOrbit(center, 2.5, 1.2))
	moved := NewLight()
	moved.Orbit(center, 2.5, 1.2)
	assert.Equal(t, moved.Position(), built.Position())
}
