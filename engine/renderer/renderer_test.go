package renderer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-pacer/common"
	"github.com/Carmen-Shannon/oxy-pacer/engine/camera"
	"github.com/Carmen-Shannon/oxy-pacer/engine/model"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/uniform_pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingScene draws one cube and writes its frame number into the ambient term, so each
// executed frame shows which frame's uniforms the GPU actually read.
type recordingScene struct {
	BaseScene

	mu       *sync.Mutex
	calls    []string
	keys     []uint32
	setupErr error

	cam      camera.Camera
	pipeline backend.Pipeline
	frames   int
	torn     *atomic.Bool
}

func newRecordingScene(name string) *recordingScene {
	return &recordingScene{
		BaseScene: NewBaseScene(name),
		mu:        &sync.Mutex{},
		cam:       camera.NewCamera(),
		torn:      &atomic.Bool{},
	}
}

func (s *recordingScene) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingScene) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *recordingScene) Keys() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.keys...)
}

func (s *recordingScene) Setup(ctx *Context) error {
	s.record("setup")
	if s.setupErr != nil {
		return s.setupErr
	}
	s.pipeline = ctx.Pipeline(backend.TechniqueTexturedMesh)
	return nil
}

func (s *recordingScene) DrawableResized(size common.Size) {
	s.record("resized")
	s.cam.Resize(size)
}

func (s *recordingScene) KeyDown(code uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, code)
}

func (s *recordingScene) KeyUp(code uint32) {}

func (s *recordingScene) Update(timeElapsed float32) {
	s.record("update")
	s.frames++
}

func (s *recordingScene) Uniforms() []byte {
	var identity [16]float32
	common.Identity(identity[:])
	vu := model.NewGPUVertexUniforms(identity, s.cam.ViewMatrix(), s.cam.ProjectionMatrix())
	fu := model.GPUFragmentUniforms{Ambient: [3]float32{float32(s.frames), 0, 0}}

	buf := make([]byte, model.UniformSlotSize)
	copy(buf[model.VertexBlockOffset:], model.VertexBlock([]model.GPUVertexUniforms{vu}))
	copy(buf[model.FragmentBlockOffset:], fu.Marshal())
	return buf
}

func (s *recordingScene) Encode(enc backend.RenderEncoder, binding backend.UniformBinding) {
	enc.SetPipeline(s.pipeline)
	enc.SetUniforms(binding)
	enc.Draw(36, 1, 0)
}

func (s *recordingScene) Teardown() {
	s.record("teardown")
	s.torn.Store(true)
}

func floatAt(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

// projectionAspect recovers width/height from the projection matrix the GPU read.
func projectionAspect(t *testing.T, rec backend.ExecutionRecord) float64 {
	t.Helper()
	require.NotEmpty(t, rec.Reads)
	vertex := rec.Reads[0].Data
	return float64(floatAt(vertex, 176+20)) / float64(floatAt(vertex, 176))
}

// ambientFrame returns the frame number the scene wrote into the fragment block.
func ambientFrame(t *testing.T, rec backend.ExecutionRecord) int {
	t.Helper()
	require.Len(t, rec.Reads, 2)
	return int(floatAt(rec.Reads[1].Data, 64))
}

func gateHook(label string) (backend.HeadlessDeviceBuilderOption, func()) {
	ch := make(chan struct{})
	once := &sync.Once{}
	hook := backend.WithExecutionHook(func(l string) {
		if l == label {
			<-ch
		}
	})
	return hook, func() { once.Do(func() { close(ch) }) }
}

func newTestRenderer(t *testing.T, n int, options ...backend.HeadlessDeviceBuilderOption) (Renderer, backend.HeadlessDevice) {
	t.Helper()
	dev := backend.NewHeadlessDevice(options...)
	t.Cleanup(dev.Release)

	r, err := NewRenderer(dev, WithMaxFramesInFlight(n))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, r.Close(ctx))
	})
	return r, dev
}

func TestTenFramesWithoutLatencyNeverStall(t *testing.T) {
	r, dev := newTestRenderer(t, 3, backend.WithImmediateCompletion())
	require.NoError(t, r.SetScene(newRecordingScene("a")))

	for i := 0; i < 10; i++ {
		require.NoError(t, r.DrawWithCommandQueue(context.Background(), 1.0/60))
	}

	st := r.Stats()
	assert.Equal(t, uint64(10), st.Frames)
	assert.Equal(t, uint64(10), st.Completed)
	assert.Zero(t, st.Stalls)
	assert.Zero(t, st.Outstanding)
	assert.Len(t, dev.Executed(), 10)
	assert.Equal(t, uint64(10), dev.Presented())
}

func TestSlowFirstFrameBlocksThirdFrame(t *testing.T) {
	hook, release := gateHook("frame 1")
	r, _ := newTestRenderer(t, 2, hook)
	t.Cleanup(release)
	require.NoError(t, r.SetScene(newRecordingScene("a")))

	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))
	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))

	done := make(chan error, 1)
	go func() {
		done <- r.DrawWithCommandQueue(context.Background(), 0)
	}()

	require.Eventually(t, func() bool { return r.Stats().Stalls == 1 }, time.Second, time.Millisecond)
	assert.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 2, r.Stats().Outstanding)

	release()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("third frame never acquired a slot")
	}
	assert.LessOrEqual(t, r.Stats().HighWatermark, 2)
}

func TestResizeAppliesAtNextFrame(t *testing.T) {
	r, dev := newTestRenderer(t, 3, backend.WithImmediateCompletion(), backend.WithSurfaceSize(common.Size{Width: 800, Height: 600}))
	require.NoError(t, r.SetScene(newRecordingScene("a")))

	for i := 0; i < 5; i++ {
		require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))
	}
	r.DrawableResized(common.Size{Width: 1920, Height: 1080})
	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))

	exec := dev.Executed()
	require.Len(t, exec, 6)
	assert.InDelta(t, 800.0/600.0, projectionAspect(t, exec[4]), 1e-6)
	assert.InDelta(t, 1920.0/1080.0, projectionAspect(t, exec[5]), 1e-6)
	assert.Equal(t, common.Size{Width: 1920, Height: 1080}, dev.Surface().Size())
}

func TestUniformSlotsAreNeverOverwrittenInFlight(t *testing.T) {
	const frames = 60
	r, dev := newTestRenderer(t, 3, backend.WithLatencyFunc(func(seq uint64, label string) time.Duration {
		return time.Duration(rand.IntN(2000)) * time.Microsecond
	}))
	require.NoError(t, r.SetScene(newRecordingScene("a")))

	for i := 0; i < frames; i++ {
		require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))
		assert.LessOrEqual(t, r.Stats().Outstanding, 3)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Scheduler().Drain(ctx))

	assert.Zero(t, dev.Hazards())
	exec := dev.Executed()
	require.Len(t, exec, frames)
	slotSize := uniform_pool.AlignUp(model.UniformSlotSize, dev.UniformAlignment())
	for i, rec := range exec {
		assert.Equal(t, fmt.Sprintf("frame %d", i+1), rec.Label)
		assert.Equal(t, i+1, ambientFrame(t, rec), "frame %d read another frame's uniforms", i+1)
		assert.Equal(t, uint64(i%3)*slotSize, rec.Reads[0].Offset)
	}
	assert.LessOrEqual(t, r.Stats().HighWatermark, 3)
}

func TestSceneSwitchDefersTeardown(t *testing.T) {
	hook, release := gateHook("frame 1")
	r, _ := newTestRenderer(t, 3, hook)
	t.Cleanup(release)

	a := newRecordingScene("a")
	b := newRecordingScene("b")
	require.NoError(t, r.SetScene(a))
	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))

	require.NoError(t, r.SetScene(b))
	assert.Equal(t, SceneStateReady, b.State())
	assert.Equal(t, []string{"setup"}, b.Calls())

	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))
	assert.Same(t, b, r.Scene())
	assert.Equal(t, []string{"setup", "resized", "update"}, b.Calls())

	assert.Never(t, a.torn.Load, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, SceneStateReady, a.State())

	release()
	require.Eventually(t, a.torn.Load, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return a.State() == SceneStateTornDown }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(2), r.Stats().SceneSwitches)
}

func TestSetSceneValidatesState(t *testing.T) {
	r, _ := newTestRenderer(t, 2, backend.WithImmediateCompletion())

	failing := newRecordingScene("failing")
	failing.setupErr = errors.New("boom")
	err := r.SetScene(failing)
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, SceneStateTornDown, failing.State())

	s := newRecordingScene("a")
	require.NoError(t, r.SetScene(s))
	assert.ErrorIs(t, r.SetScene(s), ErrSceneState)
}

func TestFrameSkipRecovers(t *testing.T) {
	r, dev := newTestRenderer(t, 2, backend.WithImmediateCompletion())
	require.NoError(t, r.SetScene(newRecordingScene("a")))

	dev.FailNextCommandBuffers(1)
	err := r.DrawWithCommandQueue(context.Background(), 0)
	require.ErrorIs(t, err, ErrFrameSkipped)
	assert.ErrorIs(t, err, backend.ErrResourceExhausted)
	assert.Zero(t, r.Stats().Outstanding)
	assert.Equal(t, uint64(1), r.Stats().Skipped)

	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))
	exec := dev.Executed()
	require.Len(t, exec, 1)
	assert.Equal(t, "frame 2", exec[0].Label)
	assert.Equal(t, uint64(1792), exec[0].Reads[0].Offset)
}

func TestNoDrawableSkipsFrame(t *testing.T) {
	r, dev := newTestRenderer(t, 2, backend.WithImmediateCompletion())
	require.NoError(t, r.SetScene(newRecordingScene("a")))

	r.DrawableResized(common.Size{})
	err := r.DrawWithCommandQueue(context.Background(), 0)
	require.ErrorIs(t, err, ErrFrameSkipped)
	assert.ErrorIs(t, err, backend.ErrNoDrawable)
	assert.Zero(t, r.Stats().Outstanding)

	r.DrawableResized(common.Size{Width: 640, Height: 480})
	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))
	assert.Len(t, dev.Executed(), 1)
}

func TestKeysReachSceneAtFrameBoundary(t *testing.T) {
	r, _ := newTestRenderer(t, 2, backend.WithImmediateCompletion())
	s := newRecordingScene("a")
	require.NoError(t, r.SetScene(s))
	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))

	r.KeyDown(common.KeyW)
	assert.Empty(t, s.Keys())

	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))
	assert.Equal(t, []uint32{common.KeyW}, s.Keys())
}

func TestBeginFrameWithoutScene(t *testing.T) {
	r, _ := newTestRenderer(t, 2, backend.WithImmediateCompletion())
	_, err := r.BeginFrame(context.Background())
	assert.ErrorIs(t, err, ErrNoScene)
	assert.Zero(t, r.Stats().Outstanding)
}

func TestDrawWithEncoder(t *testing.T) {
	r, dev := newTestRenderer(t, 2, backend.WithImmediateCompletion())
	s := newRecordingScene("a")
	require.NoError(t, r.SetScene(s))

	frame, err := r.BeginFrame(context.Background())
	require.NoError(t, err)
	_, err = r.BeginFrame(context.Background())
	require.ErrorIs(t, err, ErrFrameOpen)

	enc, err := frame.Buffer.BeginRenderPass(frame.Drawable, [4]float64{})
	require.NoError(t, err)
	require.NoError(t, r.DrawWithEncoder(frame, enc, 0.5))
	enc.End()
	assert.Equal(t, SceneStateReady, s.State())
	require.NoError(t, r.EndFrame(frame))
	assert.ErrorIs(t, r.EndFrame(frame), ErrUnknownFrame)

	exec := dev.Executed()
	require.Len(t, exec, 1)
	assert.Equal(t, 1, exec[0].Draws)
	assert.True(t, exec[0].Presented)
}

func TestAbortFrameReleasesSlot(t *testing.T) {
	r, dev := newTestRenderer(t, 1, backend.WithImmediateCompletion())
	require.NoError(t, r.SetScene(newRecordingScene("a")))

	frame, err := r.BeginFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Stats().Outstanding)
	assert.Equal(t, 1, dev.AcquiredDrawables())
	r.AbortFrame(frame)
	assert.Zero(t, r.Stats().Outstanding)
	assert.Zero(t, dev.AcquiredDrawables())
	assert.Equal(t, uint64(1), dev.Discarded())

	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))
	assert.Len(t, dev.Executed(), 1)
	assert.Zero(t, dev.AcquiredDrawables())
}

func TestAbortAfterRenderPassDiscardsBuffer(t *testing.T) {
	r, dev := newTestRenderer(t, 2, backend.WithImmediateCompletion())
	require.NoError(t, r.SetScene(newRecordingScene("a")))

	frame, err := r.BeginFrame(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.DrawWithCommandBuffer(frame, 0))
	r.AbortFrame(frame)

	assert.Zero(t, dev.AcquiredDrawables())
	assert.Equal(t, uint64(1), dev.Discarded())
	assert.Empty(t, dev.Executed())
	assert.Zero(t, dev.PendingReads())
	assert.ErrorIs(t, frame.Buffer.Commit(), backend.ErrDiscarded)
}

func TestCloseTearsDownScenes(t *testing.T) {
	dev := backend.NewHeadlessDevice(backend.WithImmediateCompletion())
	defer dev.Release()
	r, err := NewRenderer(dev)
	require.NoError(t, err)

	active := newRecordingScene("active")
	require.NoError(t, r.SetScene(active))
	require.NoError(t, r.DrawWithCommandQueue(context.Background(), 0))
	pending := newRecordingScene("pending")
	require.NoError(t, r.SetScene(pending))

	require.NoError(t, r.Close(context.Background()))
	assert.Equal(t, SceneStateTornDown, active.State())
	assert.Equal(t, SceneStateTornDown, pending.State())

	_, err = r.BeginFrame(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.SetScene(newRecordingScene("late")), ErrClosed)
}
