package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer"
)

// Report is one interval's worth of frame pacing and memory statistics.
type Report struct {
	FPS         float64
	Frames      uint64
	Skipped     uint64
	Stalls      uint64
	InFlight    int
	HighWater   int
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	SysMB       float64
}

// Profiler tracks frame rate, renderer pacing and memory statistics.
// Outputs stats to the package logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	stats          func() renderer.Stats
	lastStats      renderer.Stats
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with default settings and any provided options applied.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	if p.stats != nil {
		p.lastStats = p.stats()
	}
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed. Renderer counters are
// reported as deltas over the interval, except the in-flight count and high watermark.
//
// Returns:
//   - Report: the statistics for the interval that just ended
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() (Report, bool) {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return Report{}, false
	}

	r := Report{FPS: float64(p.frameCount) / elapsed.Seconds()}

	if p.stats != nil {
		st := p.stats()
		r.Frames = st.Frames - p.lastStats.Frames
		r.Skipped = st.Skipped - p.lastStats.Skipped
		r.Stalls = st.Stalls - p.lastStats.Stalls
		r.InFlight = st.InFlight
		r.HighWater = st.HighWatermark
		p.lastStats = st
	}

	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	r.GCCount = p.memStats.NumGC
	if r.GCCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(r.GCCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if r.GCCount-startIdx > 256 {
			startIdx = r.GCCount - 256
		}
		for i := startIdx; i < r.GCCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	level := common.Logger().Info
	if r.Skipped > 0 || r.Stalls > 0 {
		level = common.Logger().Warn
	}
	level("frame stats",
		"fps", r.FPS,
		"frames", r.Frames,
		"skipped", r.Skipped,
		"stalls", r.Stalls,
		"in_flight", r.InFlight,
		"high_watermark", r.HighWater,
		"heap_mb", r.HeapMB,
		"alloc_rate_mb", r.AllocRateMB,
		"gc", r.GCCount,
		"gc_last_us", r.LastPauseUs,
		"gc_max_us", r.MaxPauseUs,
		"sys_mb", r.SysMB,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return r, true
}
