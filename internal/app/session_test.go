package app

import (
	"bytes"
	"context"
	"errors"
	goimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mask-editor/internal/encode"
	"mask-editor/internal/gesture"
	"mask-editor/internal/mask"
	"mask-editor/internal/render"
	"mask-editor/internal/viewport"
	"mask-editor/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []EventType
	data   []interface{}
}

func (r *recorder) listen(s *Session, types ...EventType) {
	for _, ev := range types {
		ev := ev
		s.On(ev, func(data interface{}) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.data = append(r.data, data)
			r.mu.Unlock()
		})
	}
}

func (r *recorder) count(ev EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

func (r *recorder) last(ev EventType) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i] == ev {
			return r.data[i]
		}
	}
	return nil
}

var allEvents = []EventType{
	EventImageLoaded, EventLoadFailed, EventMaskChanged, EventHistoryChanged,
	EventTransformChanged, EventToolChanged, EventClosed,
}

func photo(w, h int) *goimage.NRGBA {
	img := goimage.NewNRGBA(goimage.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 90, 140, 200, 255
	}
	return img
}

// loaded returns a session with an 800x600 image in a 400x300 viewport.
func loaded(t *testing.T) (*Session, *recorder) {
	t.Helper()
	s := NewSession(DefaultConfig())
	t.Cleanup(s.Close)
	rec := &recorder{}
	rec.listen(s, allEvents...)
	s.Resize(400, 300)
	require.NoError(t, s.Load(photo(800, 600)))
	return s, rec
}

func decodeAlpha(t *testing.T, data []byte, x, y int) uint8 {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.3, cfg.MinZoomFactor)
	assert.Equal(t, 3.0, cfg.MaxZoomFactor)
	assert.Equal(t, 1.1, cfg.ZoomInStep)
	assert.Equal(t, 0.9, cfg.ZoomOutStep)
	assert.Equal(t, 2.0, cfg.DoubleTapZoom)
	assert.Equal(t, 20, cfg.HistoryCapacity)
	assert.Equal(t, 40.0, cfg.BrushDiameter)
	assert.Equal(t, 0.5, cfg.OverlayOpacity)
	assert.Equal(t, 60, cfg.FrameRate)
	assert.Equal(t, 1.0, cfg.PixelDensity)

	assert.Equal(t, cfg, Config{}.normalized())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"historyCapacity": 5, "brushDiameter": 12, "frameRate": -1}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.HistoryCapacity)
	assert.Equal(t, 12.0, cfg.BrushDiameter)
	assert.Equal(t, 60, cfg.FrameRate)
	assert.Equal(t, 3.0, cfg.MaxZoomFactor)

	require.NoError(t, os.WriteFile(path, []byte(`{"historyCapacity": "many"}`), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDisabledBeforeLoad(t *testing.T) {
	s := NewSession(DefaultConfig())
	defer s.Close()
	s.Resize(400, 300)

	assert.False(t, s.Enabled())
	assert.Equal(t, viewport.Identity, s.Transform())
	assert.False(t, s.CanUndo())
	assert.False(t, s.Undo())
	s.SetTool(gesture.ToolBrushAdd)
	s.PointerDown(1, geometry.Pt(10, 10))
	s.PointerUp(1, geometry.Pt(10, 10))
	assert.False(t, s.CanUndo())

	_, ok := s.Outputs(encode.FormatPNG)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Refine(1, 0), ErrNoImage)

	frame, ok := s.RenderFrame()
	require.True(t, ok)
	assert.Equal(t, goimage.Rect(0, 0, 400, 300), frame.Bounds())
}

func TestLoadFitsImage(t *testing.T) {
	s, rec := loaded(t)
	assert.True(t, s.Enabled())
	assert.Equal(t, viewport.Transform{Scale: 0.5}, s.Transform())
	assert.Equal(t, 40.0, s.BrushRadius())
	assert.Equal(t, 1, rec.count(EventImageLoaded))
	assert.Equal(t, geometry.NewSize(800, 600), rec.last(EventImageLoaded))
	assert.Equal(t, HistoryState{}, rec.last(EventHistoryChanged))
}

func TestResizeBeforeAndAfterLoad(t *testing.T) {
	s := NewSession(DefaultConfig())
	defer s.Close()
	require.NoError(t, s.Load(photo(800, 600)))
	s.Resize(400, 300)
	assert.InDelta(t, 0.5, s.Transform().Scale, 1e-12)
	s.Resize(800, 600)
	assert.InDelta(t, 1.0, s.Transform().Scale, 1e-12)
}

func TestPaintUndoRedo(t *testing.T) {
	s, rec := loaded(t)
	s.SetTool(gesture.ToolBrushAdd)
	assert.Equal(t, gesture.ToolBrushAdd, rec.last(EventToolChanged))

	s.PointerDown(1, geometry.Pt(200, 150))
	s.PointerUp(1, geometry.Pt(200, 150))
	assert.True(t, s.CanUndo())
	assert.Equal(t, HistoryState{CanUndo: true}, rec.last(EventHistoryChanged))
	assert.GreaterOrEqual(t, rec.count(EventMaskChanged), 2)

	art, ok := s.Outputs(encode.FormatPNG)
	require.True(t, ok)
	assert.Zero(t, decodeAlpha(t, art.Mask, 400, 300))
	assert.Equal(t, uint8(255), decodeAlpha(t, art.Mask, 10, 10))
	assert.Zero(t, decodeAlpha(t, art.Cutout, 400, 300))

	require.True(t, s.Undo())
	assert.Equal(t, HistoryState{CanRedo: true}, rec.last(EventHistoryChanged))
	snap, ok := s.MaskSnapshot()
	require.True(t, ok)
	assert.True(t, snap.Equal(mask.New(800, 600).Snapshot()))
	art, _ = s.Outputs(encode.FormatPNG)
	assert.Equal(t, uint8(255), decodeAlpha(t, art.Mask, 400, 300))

	require.True(t, s.Redo())
	assert.False(t, s.Redo())
	art, _ = s.Outputs(encode.FormatPNG)
	assert.Zero(t, decodeAlpha(t, art.Mask, 400, 300))
}

func TestZoomButtonsAndReset(t *testing.T) {
	s, rec := loaded(t)
	s.ZoomIn()
	assert.InDelta(t, 0.55, s.Transform().Scale, 1e-12)
	s.ZoomOut()
	assert.InDelta(t, 0.495, s.Transform().Scale, 1e-12)
	s.ResetView()
	assert.Equal(t, viewport.Transform{Scale: 0.5}, s.Transform())
	assert.Equal(t, s.Transform(), rec.last(EventTransformChanged))

	s.Wheel(geometry.Pt(10, 10), -1)
	s.DoubleTap(geometry.Pt(10, 10), gesture.ModShift)
	assert.Equal(t, viewport.Transform{Scale: 0.5}, s.Transform())
}

func TestLoadFailedDisables(t *testing.T) {
	s, rec := loaded(t)
	boom := errors.New("corrupt file")
	s.LoadFailed(boom)
	assert.False(t, s.Enabled())
	assert.Equal(t, boom, rec.last(EventLoadFailed))
	_, ok := s.Outputs(encode.FormatPNG)
	assert.False(t, ok)

	err := s.LoadFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
	assert.Equal(t, 2, rec.count(EventLoadFailed))

	assert.Error(t, s.Load(nil))
	assert.False(t, s.Enabled())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, photo(40, 30)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	s := NewSession(DefaultConfig())
	defer s.Close()
	require.NoError(t, s.LoadFile(path))
	assert.Equal(t, path, s.Source().Path)
	assert.Equal(t, 40, s.Source().Width())
}

func TestRenderFrameEveryRefresh(t *testing.T) {
	s, _ := loaded(t)
	for i := 0; i < 5; i++ {
		frame, ok := s.RenderFrame()
		require.True(t, ok, "frame %d", i)
		assert.Equal(t, goimage.Rect(0, 0, 400, 300), frame.Bounds())
	}

	s.SetPixelDensity(2)
	frame, ok := s.RenderFrame()
	require.True(t, ok)
	assert.Equal(t, goimage.Rect(0, 0, 800, 600), frame.Bounds())
}

func TestOffReleasesListener(t *testing.T) {
	s := NewSession(DefaultConfig())
	defer s.Close()
	calls := 0
	sub := s.On(EventToolChanged, func(interface{}) { calls++ })
	s.SetTool(gesture.ToolBrushAdd)
	s.Off(sub)
	s.SetTool(gesture.ToolPan)
	assert.Equal(t, 1, calls)
}

func TestCloseReleasesEverything(t *testing.T) {
	s, rec := loaded(t)
	s.Close()
	assert.Equal(t, 1, rec.count(EventClosed))
	assert.False(t, s.Enabled())

	s.Emit(EventClosed, nil)
	assert.Equal(t, 1, rec.count(EventClosed), "listeners released")
	_, ok := s.RenderFrame()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Load(photo(4, 4)), ErrClosed)
	s.Close()
}

func TestRenderLoopDeliversFrames(t *testing.T) {
	s, _ := loaded(t)
	frames := make(chan *goimage.RGBA, 4)
	vsync := make(chan struct{})
	sink := render.SinkFunc(func(f *goimage.RGBA) { frames <- f })
	require.NoError(t, s.StartRenderLoop(context.Background(), sink, vsync))
	assert.Error(t, s.StartRenderLoop(context.Background(), sink, vsync))

	// No input between refreshes: every refresh still presents a frame.
	const refreshes = 3
	for i := 0; i < refreshes; i++ {
		vsync <- struct{}{}
		select {
		case f := <-frames:
			assert.Equal(t, goimage.Rect(0, 0, 400, 300), f.Bounds())
		case <-time.After(2 * time.Second):
			t.Fatalf("no frame for refresh %d", i)
		}
	}
	s.Close()
}

func TestRefineAndClearAreUndoable(t *testing.T) {
	s, _ := loaded(t)
	s.SetTool(gesture.ToolBrushAdd)
	s.SetBrushDiameter(4)
	s.PointerDown(1, geometry.Pt(200, 150))
	s.PointerUp(1, geometry.Pt(200, 150))

	before, _ := s.MaskSnapshot()
	require.NoError(t, s.Refine(3, 0))
	after, _ := s.MaskSnapshot()
	assert.False(t, before.Equal(after))

	s.ClearMask()
	cleared, _ := s.MaskSnapshot()
	_, ok := s.Outputs(encode.FormatPNG)
	require.True(t, ok)

	require.True(t, s.Undo())
	restored, _ := s.MaskSnapshot()
	assert.True(t, restored.Equal(after))
	assert.False(t, cleared.Equal(after))
}

func TestEraseLeavesNoMarkedPixels(t *testing.T) {
	s, _ := loaded(t)
	s.SetBrushDiameter(24)
	p := geometry.Pt(100.15, 100.35)
	for _, tool := range []gesture.Tool{gesture.ToolBrushAdd, gesture.ToolBrushRemove} {
		s.SetTool(tool)
		s.PointerDown(1, p)
		s.PointerUp(1, p)
	}

	snap, ok := s.MaskSnapshot()
	require.True(t, ok)
	r := mask.New(snap.Width(), snap.Height())
	require.NoError(t, r.Restore(snap))
	assert.True(t, r.Empty())

	out, ok := s.Outputs(encode.FormatPNG)
	require.True(t, ok)
	img, err := png.Decode(bytes.NewReader(out.Mask))
	require.NoError(t, err)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			require.Equal(t, uint32(0xffff), a, "marked pixel at %d,%d", x, y)
		}
	}
}

func TestDiscardLastEditIsNotRedoable(t *testing.T) {
	s, rec := loaded(t)
	s.SetTool(gesture.ToolBrushAdd)
	s.PointerDown(1, geometry.Pt(200, 150))
	s.PointerUp(1, geometry.Pt(200, 150))
	require.True(t, s.CanUndo())

	require.True(t, s.DiscardLastEdit())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	snap, _ := s.MaskSnapshot()
	r := mask.New(snap.Width(), snap.Height())
	require.NoError(t, r.Restore(snap))
	assert.True(t, r.Empty())
	assert.Equal(t, HistoryState{}, rec.last(EventHistoryChanged))

	assert.False(t, s.DiscardLastEdit())
}
