package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often stats are logged.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithStatsSource adds renderer pacing counters to every report.
//
// Parameters:
//   - stats: usually Renderer.Stats
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the source option
func WithStatsSource(stats func() renderer.Stats) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.stats = stats
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
