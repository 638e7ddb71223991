package window

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-pacer/common"
)

type recorder struct {
	down    []uint32
	up      []uint32
	resizes []common.Size
}

func newRecordingWindow(options ...WindowBuilderOption) (*engineWindow, *recorder) {
	rec := &recorder{}
	w := newEngineWindow(options...)
	w.SetKeyDownCallback(func(code uint32) { rec.down = append(rec.down, code) })
	w.SetKeyUpCallback(func(code uint32) { rec.up = append(rec.up, code) })
	w.SetResizeCallback(func(size common.Size) { rec.resizes = append(rec.resizes, size) })
	return w, rec
}

func TestDefaultsAndOptions(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, "oxy-pacer", w.title)
	assert.Equal(t, common.Size{Width: 800, Height: 600}, w.Size())
	assert.True(t, w.escapeQuits)

	w = newEngineWindow(
		WithTitle("pacer"),
		WithSize(1280, 720),
		WithSizeLimits(common.Size{Width: 640, Height: 360}, common.Size{}),
		WithEscapeQuits(false),
	)
	assert.Equal(t, "pacer", w.title)
	assert.Equal(t, common.Size{Width: 1280, Height: 720}, w.Size())
	assert.Equal(t, common.Size{Width: 640, Height: 360}, w.minSize)
	assert.Equal(t, common.Size{}, w.maxSize)
	assert.False(t, w.escapeQuits)
}

func TestKeyRepeatsAreDropped(t *testing.T) {
	w, rec := newRecordingWindow()

	assert.False(t, w.handleKey(common.KeyW, keyPressed))
	w.handleKey(common.KeyW, keyRepeated)
	w.handleKey(common.KeyW, keyPressed)
	w.handleKey(common.KeyW, keyReleased)
	w.handleKey(common.KeyW, keyReleased)

	assert.Equal(t, []uint32{common.KeyW}, rec.down)
	assert.Equal(t, []uint32{common.KeyW}, rec.up)
}

func TestEscape(t *testing.T) {
	w, rec := newRecordingWindow()
	assert.True(t, w.handleKey(common.KeyEsc, keyPressed))
	assert.False(t, w.handleKey(common.KeyEsc, keyReleased))
	assert.Empty(t, rec.down)

	w, rec = newRecordingWindow(WithEscapeQuits(false))
	assert.False(t, w.handleKey(common.KeyEsc, keyPressed))
	assert.Equal(t, []uint32{common.KeyEsc}, rec.down)
}

func TestFocusLossReleasesHeldKeys(t *testing.T) {
	w, rec := newRecordingWindow()
	w.handleKey(common.KeyW, keyPressed)
	w.handleKey(common.KeyA, keyPressed)
	w.handleKey(common.KeyS, keyPressed)
	w.handleKey(common.KeyS, keyReleased)

	w.handleFocus(true)
	assert.Equal(t, []uint32{common.KeyS}, rec.up)

	w.handleFocus(false)
	assert.Equal(t, []uint32{common.KeyS, common.KeyA, common.KeyW}, rec.up)
	assert.Zero(t, w.keys.count())

	// The platform release that arrives after refocus is not reported twice.
	w.handleKey(common.KeyW, keyReleased)
	assert.Len(t, rec.up, 3)
}

func TestResizeReportsChangesOnly(t *testing.T) {
	w, rec := newRecordingWindow()

	w.handleResize(800, 600)
	assert.Empty(t, rec.resizes)

	w.handleResize(1920, 1080)
	assert.Equal(t, []common.Size{{Width: 1920, Height: 1080}}, rec.resizes)
	assert.Equal(t, common.Size{Width: 1920, Height: 1080}, w.Size())
}

func TestIconifyReportsEmptySize(t *testing.T) {
	w, rec := newRecordingWindow()

	w.handleIconify(true, 0, 0)
	assert.True(t, w.Size().Empty())

	w.handleIconify(false, 800, 600)
	assert.Equal(t, []common.Size{{}, {Width: 800, Height: 600}}, rec.resizes)
}

func TestHeldKeys(t *testing.T) {
	h := newHeldKeys()
	assert.True(t, h.press(3))
	assert.False(t, h.press(3))
	assert.True(t, h.press(1))
	assert.False(t, h.release(2))
	assert.Equal(t, []uint32{1, 3}, h.releaseAll())
	assert.Empty(t, h.releaseAll())
}

func TestUninitializedWindow(t *testing.T) {
	w := newEngineWindow()
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.ErrorIs(t, w.Close(), errNotInitialized)
}
