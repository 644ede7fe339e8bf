// Package app provides the editing session: it owns the loaded image, the
// mask, history, viewport and gesture state, and publishes change events.
package app

import (
	"context"
	"errors"
	"fmt"
	goimage "image"
	"log"
	"sync"

	"mask-editor/internal/encode"
	"mask-editor/internal/gesture"
	"mask-editor/internal/history"
	"mask-editor/internal/image"
	"mask-editor/internal/mask"
	"mask-editor/internal/refine"
	"mask-editor/internal/render"
	"mask-editor/internal/viewport"
	"mask-editor/pkg/geometry"
)

var (
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("no image loaded")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

// Session holds one open image and everything edited on it. Before a
// successful load, and after a failed one, the session is disabled: input
// and editing operations are no-ops and Outputs reports unavailable.
//
// All methods are safe for concurrent use. Listeners run on the caller's
// goroutine after the session lock has been released.
type Session struct {
	mu sync.Mutex

	cfg Config

	// Image state, nil while disabled
	source *image.Source
	raster *mask.Raster
	vp     *viewport.Viewport
	hist   *history.Manager
	gest   *gesture.Recognizer

	// Settings that outlive a load
	tool     gesture.Tool
	diameter float64
	view     geometry.Size
	density  float64

	comp          *render.Compositor
	cursor        geometry.ScreenPoint
	cursorVisible bool
	closed        bool

	loop   *render.Loop
	cancel context.CancelFunc

	lmu       sync.RWMutex
	listeners map[EventType][]subscriber
	nextID    uint64
}

// NewSession creates a disabled session. Unset config fields take their
// defaults.
func NewSession(cfg Config) *Session {
	cfg = cfg.normalized()
	return &Session{
		cfg:       cfg,
		tool:      gesture.ToolPan,
		diameter:  cfg.BrushDiameter,
		density:   cfg.PixelDensity,
		comp:      render.NewCompositor(cfg.style()),
		listeners: make(map[EventType][]subscriber),
	}
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// enabled reports whether an image is loaded. Callers hold s.mu.
func (s *Session) enabled() bool {
	return s.source != nil && !s.closed
}

// Enabled reports whether an image is loaded and the session is open.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled()
}

// LoadFile decodes the image at path and loads it. A decode failure puts the
// session in the disabled state.
func (s *Session) LoadFile(path string) error {
	src, err := image.Load(path)
	if err != nil {
		s.LoadFailed(err)
		return err
	}
	return s.loadSource(src)
}

// Load loads a decoded image, replacing any previous one. Painting and
// history start empty and the view is reset to fit.
func (s *Session) Load(img goimage.Image) error {
	if img == nil || img.Bounds().Empty() {
		s.LoadFailed(image.ErrEmptyImage)
		return image.ErrEmptyImage
	}
	return s.loadSource(&image.Source{Image: img})
}

func (s *Session) loadSource(src *image.Source) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	w, h := src.Width(), src.Height()
	s.source = src
	s.raster = mask.New(w, h)
	s.hist = history.New(s.raster.Snapshot(), s.cfg.HistoryCapacity)
	s.vp = viewport.New(src.Size(), s.view, s.cfg.MinZoomFactor, s.cfg.MaxZoomFactor)
	s.gest = gesture.New(s.vp, s.raster, s.hist, s.cfg.gestureOptions(s.tool, s.diameter))
	t := s.vp.Transform()
	hs := s.historyState()
	s.mu.Unlock()

	if src.Path != "" {
		log.Printf("Session: loaded %s (%dx%d %s)", src.Path, w, h, src.Format)
	} else {
		log.Printf("Session: loaded %dx%d image", w, h)
	}
	s.emitAll([]event{
		{EventImageLoaded, src.Size()},
		{EventTransformChanged, t},
		{EventHistoryChanged, hs},
		{EventMaskChanged, nil},
	})
	return nil
}

// LoadFailed records a decode failure from the host and disables the
// session.
func (s *Session) LoadFailed(err error) {
	if err == nil {
		err = image.ErrEmptyImage
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.disable()
	s.mu.Unlock()

	log.Printf("Session: load failed: %v", err)
	s.Emit(EventLoadFailed, err)
}

// disable drops all image state. Callers hold s.mu.
func (s *Session) disable() {
	s.source = nil
	s.raster = nil
	s.hist = nil
	s.vp = nil
	s.gest = nil
}

// Source returns the loaded image, or nil while disabled.
func (s *Session) Source() *image.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Transform returns the current viewport transform. It returns
// viewport.Identity while disabled.
func (s *Session) Transform() viewport.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled() {
		return viewport.Identity
	}
	return s.vp.Transform()
}

// CanUndo reports whether Undo would change the mask.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled() && s.hist.CanUndo()
}

// CanRedo reports whether Redo would change the mask.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled() && s.hist.CanRedo()
}

// historyState returns the undo/redo flags. Callers hold s.mu.
func (s *Session) historyState() HistoryState {
	if !s.enabled() {
		return HistoryState{}
	}
	return HistoryState{CanUndo: s.hist.CanUndo(), CanRedo: s.hist.CanRedo()}
}

// Tool returns the active tool.
func (s *Session) Tool() gesture.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetTool selects the active tool. The choice is kept across loads.
func (s *Session) SetTool(t gesture.Tool) {
	s.mu.Lock()
	if s.closed || t == s.tool {
		s.mu.Unlock()
		return
	}
	s.tool = t
	var events []event
	if s.enabled() {
		events = s.changeEvents(s.gest.SetTool(t))
	}
	s.mu.Unlock()

	s.emitAll(append(events, event{EventToolChanged, t}))
}

// BrushDiameter returns the on-screen brush diameter.
func (s *Session) BrushDiameter() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diameter
}

// BrushRadius returns the brush radius in image pixels at the current zoom,
// or 0 while disabled.
func (s *Session) BrushRadius() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled() {
		return 0
	}
	return s.gest.BrushRadius()
}

// SetBrushDiameter sets the on-screen brush diameter. Non-positive values
// are ignored.
func (s *Session) SetBrushDiameter(d float64) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diameter = d
	if s.enabled() {
		s.gest.SetBrushDiameter(d)
	}
}

// changeEvents maps a gesture change to the events it implies. Callers hold
// s.mu.
func (s *Session) changeEvents(ch gesture.Change) []event {
	if ch == 0 {
		return nil
	}
	var events []event
	if ch.Has(gesture.ChangeTransform) {
		events = append(events, event{EventTransformChanged, s.vp.Transform()})
	}
	if ch.Has(gesture.ChangeMask) {
		events = append(events, event{EventMaskChanged, nil})
	}
	if ch.Has(gesture.ChangeCommit) {
		events = append(events, event{EventHistoryChanged, s.historyState()})
	}
	return events
}

// apply runs fn against the recognizer while enabled and publishes the
// resulting events.
func (s *Session) apply(fn func(g *gesture.Recognizer) gesture.Change) {
	s.mu.Lock()
	if !s.enabled() {
		s.mu.Unlock()
		return
	}
	events := s.changeEvents(fn(s.gest))
	s.mu.Unlock()
	s.emitAll(events)
}

// PointerDown forwards a pointer press in viewport coordinates.
func (s *Session) PointerDown(id int, p geometry.ScreenPoint) {
	s.apply(func(g *gesture.Recognizer) gesture.Change { return g.PointerDown(id, p) })
}

// PointerMove forwards a pointer move. It also moves the brush cursor.
func (s *Session) PointerMove(id int, p geometry.ScreenPoint) {
	s.Hover(p)
	s.apply(func(g *gesture.Recognizer) gesture.Change { return g.PointerMove(id, p) })
}

// PointerUp forwards a pointer release.
func (s *Session) PointerUp(id int, p geometry.ScreenPoint) {
	s.apply(func(g *gesture.Recognizer) gesture.Change { return g.PointerUp(id, p) })
}

// PointerCancel forwards a cancelled pointer.
func (s *Session) PointerCancel(id int) {
	s.apply(func(g *gesture.Recognizer) gesture.Change { return g.PointerCancel(id) })
}

// Wheel forwards a wheel step at p.
func (s *Session) Wheel(p geometry.ScreenPoint, dy float64) {
	s.apply(func(g *gesture.Recognizer) gesture.Change { return g.Wheel(p, dy) })
}

// DoubleTap forwards a double tap at p.
func (s *Session) DoubleTap(p geometry.ScreenPoint, mods gesture.Modifier) {
	s.apply(func(g *gesture.Recognizer) gesture.Change { return g.DoubleTap(p, mods) })
}

// ZoomIn zooms one step around the viewport centre.
func (s *Session) ZoomIn() {
	s.apply(func(g *gesture.Recognizer) gesture.Change { return g.ZoomStep(true) })
}

// ZoomOut zooms out one step around the viewport centre.
func (s *Session) ZoomOut() {
	s.apply(func(g *gesture.Recognizer) gesture.Change { return g.ZoomStep(false) })
}

// ResetView returns to the fit transform.
func (s *Session) ResetView() {
	s.apply(func(g *gesture.Recognizer) gesture.Change {
		s.vp.Reset()
		return gesture.ChangeTransform
	})
}

// Hover moves the brush cursor ring to p.
func (s *Session) Hover(p geometry.ScreenPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursorVisible && s.cursor == p {
		return
	}
	s.cursor = p
	s.cursorVisible = true
}

// HoverExit hides the brush cursor ring.
func (s *Session) HoverExit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursorVisible {
		s.cursorVisible = false
	}
}

// Undo restores the previous history snapshot.
func (s *Session) Undo() bool {
	return s.step(func(h *history.Manager) (mask.Snapshot, bool) { return h.Undo() })
}

// Redo restores the next history snapshot.
func (s *Session) Redo() bool {
	return s.step(func(h *history.Manager) (mask.Snapshot, bool) { return h.Redo() })
}

// DiscardLastEdit reverts the newest committed edit without leaving it
// redoable.
func (s *Session) DiscardLastEdit() bool {
	return s.step(func(h *history.Manager) (mask.Snapshot, bool) { return h.Discard() })
}

func (s *Session) step(fn func(*history.Manager) (mask.Snapshot, bool)) bool {
	s.mu.Lock()
	if !s.enabled() {
		s.mu.Unlock()
		return false
	}
	// A stroke in progress is dropped rather than committed on top of the
	// restored state.
	s.gest.Reset()
	snap, ok := fn(s.hist)
	if !ok {
		s.mu.Unlock()
		return false
	}
	if err := s.raster.Restore(snap); err != nil {
		s.mu.Unlock()
		log.Printf("Session: history restore failed: %v", err)
		return false
	}
	hs := s.historyState()
	s.mu.Unlock()

	s.emitAll([]event{{EventMaskChanged, nil}, {EventHistoryChanged, hs}})
	return true
}

// ClearMask erases all painting as one undoable edit.
func (s *Session) ClearMask() {
	s.edit(func(r *mask.Raster) (*mask.Raster, error) {
		return mask.New(r.Width(), r.Height()), nil
	})
}

// Refine grows the painted region by dilatePx and softens its edges by
// featherPx, as one undoable edit.
func (s *Session) Refine(dilatePx, featherPx int) error {
	if dilatePx <= 0 && featherPx <= 0 {
		return nil
	}
	return s.edit(func(r *mask.Raster) (*mask.Raster, error) {
		out, err := refine.Dilate(r, dilatePx)
		if err != nil {
			return nil, fmt.Errorf("dilate: %w", err)
		}
		out, err = refine.Feather(out, featherPx)
		if err != nil {
			return nil, fmt.Errorf("feather: %w", err)
		}
		return out, nil
	})
}

// edit replaces the mask with fn's result and commits it.
func (s *Session) edit(fn func(*mask.Raster) (*mask.Raster, error)) error {
	s.mu.Lock()
	if !s.enabled() {
		s.mu.Unlock()
		return ErrNoImage
	}
	s.gest.Reset()
	out, err := fn(s.raster)
	if err == nil {
		snap := out.Snapshot()
		if err = s.raster.Restore(snap); err == nil {
			s.hist.Commit(snap)
		}
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	hs := s.historyState()
	s.mu.Unlock()

	s.emitAll([]event{{EventMaskChanged, nil}, {EventHistoryChanged, hs}})
	return nil
}

// Resize updates the viewport size in logical pixels. The zoom relative to
// fit is kept.
func (s *Session) Resize(w, h float64) {
	s.mu.Lock()
	size := geometry.NewSize(w, h)
	if s.closed || size == s.view {
		s.mu.Unlock()
		return
	}
	s.view = size
	if !s.enabled() {
		s.mu.Unlock()
		return
	}
	s.vp.Resize(size)
	t := s.vp.Transform()
	s.mu.Unlock()

	s.Emit(EventTransformChanged, t)
}

// ViewSize returns the viewport size.
func (s *Session) ViewSize() geometry.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetPixelDensity sets the display's physical-per-logical pixel ratio. It
// affects only the rendered surface size.
func (s *Session) SetPixelDensity(d float64) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d != s.density {
		s.density = d
	}
}

// ScreenToImage converts a viewport position to image pixels.
func (s *Session) ScreenToImage(p geometry.ScreenPoint) (geometry.ImagePoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled() {
		return geometry.ImagePoint{}, false
	}
	return s.vp.ScreenToImage(p), true
}

// MaskSnapshot returns a copy of the live mask.
func (s *Session) MaskSnapshot() (mask.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled() {
		return mask.Snapshot{}, false
	}
	return s.raster.Snapshot(), true
}

// Outputs encodes the inpainting mask and the cutout. It returns false while
// disabled or if encoding fails.
func (s *Session) Outputs(format encode.Format) (encode.Artifacts, bool) {
	s.mu.Lock()
	if !s.enabled() {
		s.mu.Unlock()
		return encode.Artifacts{}, false
	}
	src := s.source.Image
	m := s.raster.Snapshot()
	s.mu.Unlock()

	// Encode from a copy so input is not blocked.
	r := mask.New(m.Width(), m.Height())
	if err := r.Restore(m); err != nil {
		return encode.Artifacts{}, false
	}
	return encode.Build(src, r.Alpha(), format)
}

// RenderFrame composes the current state. It is called once per display
// refresh whether or not anything changed, and reports false only when the
// session is closed or the viewport has no area. It implements
// render.Producer.
func (s *Session) RenderFrame() (*goimage.RGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.view.Empty() {
		return nil, false
	}
	return s.comp.Render(s.scene()), true
}

// Frame draws the current state into a new surface owned by the caller.
func (s *Session) Frame() *goimage.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.scene()
	sz := sc.SurfaceSize()
	dst := goimage.NewRGBA(goimage.Rect(0, 0, sz.X, sz.Y))
	s.comp.Frame(dst, sc)
	return dst
}

// scene builds the render input. Callers hold s.mu.
func (s *Session) scene() render.Scene {
	sc := render.Scene{View: s.view, Density: s.density}
	if !s.enabled() {
		return sc
	}
	t := s.vp.Transform()
	sc.Source = s.source.Image
	sc.Mask = s.raster.Alpha()
	sc.Scale = t.Scale
	sc.Origin = s.vp.Origin()
	if s.cursorVisible && s.tool.IsBrush() {
		sc.Cursor = &render.Cursor{
			Pos:      s.cursor,
			Diameter: s.diameter,
			Erase:    s.tool == gesture.ToolBrushRemove,
		}
	}
	return sc
}

// StartRenderLoop runs a render loop delivering frames to sink until ctx is
// cancelled or the session closes. A non-nil vsync drives it from the host's
// refresh signal.
func (s *Session) StartRenderLoop(ctx context.Context, sink render.Sink, vsync <-chan struct{}) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.loop != nil {
		s.mu.Unlock()
		return fmt.Errorf("render loop already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	loop := render.NewLoop(s, sink, s.cfg.FrameRate)
	if vsync != nil {
		loop.SetVSync(vsync)
	}
	s.loop = loop
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Render: %v", err)
		}
	}()
	return nil
}

// Close tears the session down: the render loop stops, image state is
// dropped and every subscription is released after EventClosed fires.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.disable()
	s.closed = true
	loop, cancel := s.loop, s.cancel
	s.loop, s.cancel = nil, nil
	s.mu.Unlock()

	if loop != nil {
		loop.Stop()
		cancel()
	}
	log.Printf("Session: closed")
	s.Emit(EventClosed, nil)

	s.lmu.Lock()
	s.listeners = nil
	s.lmu.Unlock()
}
