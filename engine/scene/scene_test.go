package scene

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/model"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
)

func newTestRenderer(t *testing.T, options ...backend.HeadlessDeviceBuilderOption) (renderer.Renderer, backend.HeadlessDevice) {
	t.Helper()
	dev := backend.NewHeadlessDevice(options...)
	t.Cleanup(dev.Release)

	r, err := renderer.NewRenderer(dev)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, r.Close(ctx))
	})
	return r, dev
}

func floatsOf(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func snapshot(s renderer.Scene) []float32 {
	return floatsOf(s.Uniforms())
}

func TestFullTurnLeavesUniformsUnchanged(t *testing.T) {
	scenes := map[string]*texturedScene{
		"forward":   NewForwardLightingScene(WithAutoRotation(true, common.FullTurn)).texturedScene,
		"arguments": NewArgumentBuffersScene(WithAutoRotation(true, common.FullTurn)).texturedScene,
	}
	for name, s := range scenes {
		t.Run(name, func(t *testing.T) {
			s.DrawableResized(common.Size{Width: 800, Height: 600})
			s.Update(0.3)
			before := snapshot(s)

			s.Update(1)
			after := snapshot(s)

			require.Len(t, after, len(before))
			for i := range before {
				assert.InDelta(t, before[i], after[i], 1e-3, "float %d", i)
			}
		})
	}
}

func TestRotationStaysWithinOneTurn(t *testing.T) {
	s := NewForwardLightingScene(WithAutoRotation(true, 7))
	for i := 0; i < 10000; i++ {
		s.Update(1.0 / 60)
		require.GreaterOrEqual(t, s.Rotation(), float32(0))
		require.Less(t, s.Rotation(), float32(common.FullTurn))
	}
	for _, m := range s.Models() {
		for _, a := range m.Rotation() {
			assert.Less(t, a, float32(common.FullTurn))
		}
	}
}

func TestUniformsLayout(t *testing.T) {
	s := NewForwardLightingScene(WithAmbient(0.1, 0.2, 0.3))
	s.DrawableResized(common.Size{Width: 1600, Height: 900})
	buf := s.Uniforms()
	require.Len(t, buf, model.UniformSlotSize)

	f := floatsOf(buf)
	projection := (model.VertexBlockOffset + 176) / 4
	assert.InDelta(t, 1600.0/900.0, f[projection+5]/f[projection], 1e-4)

	ambient := (model.FragmentBlockOffset + 64) / 4
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, f[ambient:ambient+3])

	light0 := model.FragmentBlockOffset / 4
	assert.Equal(t, s.Lights()[0].Color(), [3]float32{f[light0+4], f[light0+5], f[light0+6]})
}

func TestLightsOrbitWithRotation(t *testing.T) {
	s := NewForwardLightingScene(WithAutoRotation(true, 1))
	start := s.Lights()[0].Position()
	s.Update(0.5)
	moved := s.Lights()[0].Position()
	assert.NotEqual(t, start, moved)
	assert.InDelta(t, float64(forwardLightingLightHeight), float64(moved[1]), 1e-6)
}

func TestKeysMoveCamera(t *testing.T) {
	s := NewForwardLightingScene(WithMoveSpeed(2), WithAutoRotation(false, 0))

	s.KeyDown(common.KeyD)
	s.Update(1)
	assert.InDelta(t, 2.0, float64(s.Camera().Position()[0]), 1e-6)

	s.KeyUp(common.KeyD)
	s.Update(1)
	assert.InDelta(t, 2.0, float64(s.Camera().Position()[0]), 1e-6)

	s.KeyDown(common.KeyW)
	s.Update(0.5)
	s.KeyUp(common.KeyW)
	assert.InDelta(t, -1.0, float64(s.Camera().Position()[2]), 1e-6)

	z := s.Camera().ZOffset()
	s.KeyDown(common.KeyE)
	s.Update(0.25)
	s.KeyUp(common.KeyE)
	assert.Greater(t, s.Camera().ZOffset(), z)

	s.KeyDown(common.KeyQ)
	s.Update(100)
	s.KeyUp(common.KeyQ)
	assert.Equal(t, float32(minZOffset), s.Camera().ZOffset())
}

func TestKeysToggleRotationAndReset(t *testing.T) {
	s := NewArgumentBuffersScene(WithAutoRotation(true, 1))
	s.Update(0.5)
	require.NotZero(t, s.Rotation())

	s.KeyDown(common.KeyR)
	s.KeyUp(common.KeyR)
	assert.False(t, s.AutoRotate())
	r := s.Rotation()
	s.Update(0.5)
	assert.Equal(t, r, s.Rotation())

	s.Camera().Translate([3]float32{1, 2, 3})
	s.KeyDown(common.KeySpace)
	s.KeyUp(common.KeySpace)
	assert.Zero(t, s.Rotation())
	assert.Equal(t, [3]float32{}, s.Camera().Position())
	assert.Equal(t, float32(defaultZOffset), s.Camera().ZOffset())
}

func TestModelCountAndTextures(t *testing.T) {
	s := NewForwardLightingScene(WithModelCount(2), WithTextures(renderer.TextureWood1))
	require.Len(t, s.Models(), 2)
	for _, m := range s.Models() {
		assert.Equal(t, renderer.TextureWood1, m.Texture())
	}

	s = NewForwardLightingScene(WithModelCount(9))
	assert.Len(t, s.Models(), model.MaxInstances)
}

func TestDrawCallsPerBindingMode(t *testing.T) {
	cases := []struct {
		name      string
		scene     func() renderer.Scene
		draws     int
		instances int
	}{
		{"instanced", func() renderer.Scene { return NewForwardLightingScene(WithInstanceIndex(true)) }, 1, 4},
		{"per model", func() renderer.Scene { return NewForwardLightingScene() }, 4, 4},
		{"argument buffers", func() renderer.Scene { return NewArgumentBuffersScene() }, 4, 4},
		{"argument buffers off", func() renderer.Scene { return NewArgumentBuffersScene(WithArgumentBuffer(false)) }, 4, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, dev := newTestRenderer(t, backend.WithImmediateCompletion())
			require.NoError(t, r.SetScene(tc.scene()))
			require.NoError(t, r.DrawWithCommandQueue(context.Background(), 1.0/60))

			executed := dev.Executed()
			require.Len(t, executed, 1)
			assert.Equal(t, tc.draws, executed[0].Draws)
			assert.Equal(t, tc.instances, executed[0].Instances)
			assert.True(t, executed[0].Presented)
		})
	}
}

func TestArgumentBuffersNeverOverwritePendingUniforms(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mu := &sync.Mutex{}
	latency := backend.WithLatencyFunc(func(uint64, string) time.Duration {
		mu.Lock()
		defer mu.Unlock()
		return time.Duration(rng.Intn(3000)) * time.Microsecond
	})
	r, dev := newTestRenderer(t, latency)

	s := NewArgumentBuffersScene()
	require.NoError(t, r.SetScene(s))
	require.Len(t, s.argBuffers, 4)

	for i := 0; i < 30; i++ {
		require.NoError(t, r.DrawWithCommandQueue(context.Background(), 1.0/60))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Scheduler().Drain(ctx))

	assert.Zero(t, dev.Hazards())
	executed := dev.Executed()
	require.Len(t, executed, 30)
	for _, rec := range executed {
		assert.Len(t, rec.Reads, 8)
	}
}

func TestSceneSwitchReleasesArgumentBuffers(t *testing.T) {
	r, _ := newTestRenderer(t, backend.WithImmediateCompletion())

	first := NewArgumentBuffersScene()
	require.NoError(t, r.SetScene(first))
	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))

	require.NoError(t, r.SetScene(NewForwardLightingScene()))
	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))

	require.Eventually(t, func() bool {
		return first.Lifecycle().State() == renderer.SceneStateTornDown
	}, time.Second, time.Millisecond)
	assert.Empty(t, first.argBuffers)
}
