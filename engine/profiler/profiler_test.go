package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestTickReportsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithUpdateInterval(time.Second))

	for i := 0; i < 59; i++ {
		clock.t = clock.t.Add(time.Second / 60)
		_, logged := p.Tick()
		require.False(t, logged, "tick %d", i)
	}
	clock.t = time.Unix(1, 0)
	r, logged := p.Tick()
	require.True(t, logged)
	assert.InDelta(t, 60.0, r.FPS, 1e-9)

	_, logged = p.Tick()
	assert.False(t, logged)
}

func TestTickReportsRendererDeltas(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	st := renderer.Stats{Frames: 10, Skipped: 1, Stalls: 2}
	p := NewProfiler(
		WithClock(clock.now),
		WithUpdateInterval(time.Second),
		WithStatsSource(func() renderer.Stats { return st }),
	)

	st = renderer.Stats{Frames: 70, Skipped: 1, Stalls: 5, InFlight: 2, HighWatermark: 3}
	clock.t = clock.t.Add(2 * time.Second)
	r, logged := p.Tick()
	require.True(t, logged)
	assert.Equal(t, uint64(60), r.Frames)
	assert.Zero(t, r.Skipped)
	assert.Equal(t, uint64(3), r.Stalls)
	assert.Equal(t, 2, r.InFlight)
	assert.Equal(t, 3, r.HighWater)
	assert.InDelta(t, 0.5, r.FPS, 1e-9)
}

func TestWithUpdateIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(0))
	assert.Equal(t, time.Second, p.updateInterval)
}
