// Package gesture interprets single and multi-pointer input into pan, zoom,
// brush strokes and tap-to-reset, mutating a viewport and a mask raster.
package gesture

import (
	"mask-editor/internal/mask"
	"mask-editor/internal/viewport"
	"mask-editor/pkg/geometry"
)

// Default step factors. Wheel and button zoom are discrete steps, never
// proportional to the input magnitude.
const (
	DefaultZoomInStep    = 1.1
	DefaultZoomOutStep   = 0.9
	DefaultDoubleTapZoom = 2.0
	DefaultBrushDiameter = 40.0
)

// maxPointers is the number of simultaneous pointers tracked. Further
// pointers are ignored until one is released.
const maxPointers = 2

// Recorder receives completed strokes. *history.Manager implements it.
type Recorder interface {
	Commit(mask.Snapshot)
	Current() mask.Snapshot
}

// Options configures zoom steps and the initial brush.
type Options struct {
	ZoomInStep    float64
	ZoomOutStep   float64
	DoubleTapZoom float64
	BrushDiameter float64
	Tool          Tool
}

// DefaultOptions returns the default step factors and brush.
func DefaultOptions() Options {
	return Options{
		ZoomInStep:    DefaultZoomInStep,
		ZoomOutStep:   DefaultZoomOutStep,
		DoubleTapZoom: DefaultDoubleTapZoom,
		BrushDiameter: DefaultBrushDiameter,
		Tool:          ToolPan,
	}
}

type pointer struct {
	id  int
	pos geometry.ScreenPoint
}

// Recognizer is the gesture state machine over {Idle, Panning, Drawing,
// Pinching}. It owns no image state; it writes through to the viewport,
// raster and recorder it was created with.
//
// A Recognizer is not safe for concurrent use.
type Recognizer struct {
	vp     *viewport.Viewport
	raster *mask.Raster
	rec    Recorder
	opts   Options

	state    State
	pointers []pointer

	lastDrag   geometry.ScreenPoint
	lastStroke geometry.ImagePoint
	painted    bool // The stroke in progress touched the raster
	pinchDist  float64
	pinchMid   geometry.ScreenPoint
}

// New creates a recognizer. Zero option fields take their defaults.
func New(vp *viewport.Viewport, raster *mask.Raster, rec Recorder, opts Options) *Recognizer {
	def := DefaultOptions()
	if opts.ZoomInStep <= 0 {
		opts.ZoomInStep = def.ZoomInStep
	}
	if opts.ZoomOutStep <= 0 {
		opts.ZoomOutStep = def.ZoomOutStep
	}
	if opts.DoubleTapZoom <= 0 {
		opts.DoubleTapZoom = def.DoubleTapZoom
	}
	if opts.BrushDiameter <= 0 {
		opts.BrushDiameter = def.BrushDiameter
	}
	return &Recognizer{
		vp:       vp,
		raster:   raster,
		rec:      rec,
		opts:     opts,
		pointers: make([]pointer, 0, maxPointers),
	}
}

// State returns the current gesture state.
func (g *Recognizer) State() State { return g.state }

// Tool returns the active tool.
func (g *Recognizer) Tool() Tool { return g.opts.Tool }

// BrushDiameter returns the on-screen brush diameter in viewport pixels.
func (g *Recognizer) BrushDiameter() float64 { return g.opts.BrushDiameter }

// BrushRadius returns the brush radius in image pixels at the current zoom.
func (g *Recognizer) BrushRadius() float64 {
	return mask.EffectiveRadius(g.opts.BrushDiameter, g.vp.Transform().Scale)
}

// SetTool changes the active tool. A stroke in progress is committed first.
func (g *Recognizer) SetTool(t Tool) Change {
	var ch Change
	if g.state == StateDrawing && t != g.opts.Tool {
		ch = g.commit()
		g.state = StateIdle
	}
	if g.state == StatePanning {
		g.state = StateIdle
	}
	g.opts.Tool = t
	return ch
}

// SetBrushDiameter sets the on-screen brush diameter. Non-positive values
// are ignored.
func (g *Recognizer) SetBrushDiameter(d float64) {
	if d > 0 {
		g.opts.BrushDiameter = d
	}
}

func (g *Recognizer) find(id int) int {
	for i := range g.pointers {
		if g.pointers[i].id == id {
			return i
		}
	}
	return -1
}

// PointerDown registers a new pointer.
func (g *Recognizer) PointerDown(id int, p geometry.ScreenPoint) Change {
	if i := g.find(id); i >= 0 {
		return g.PointerMove(id, p)
	}
	if len(g.pointers) == maxPointers {
		return 0
	}
	g.pointers = append(g.pointers, pointer{id: id, pos: p})

	switch len(g.pointers) {
	case 1:
		if g.state != StateIdle {
			return 0
		}
		return g.begin(p)
	case 2:
		var ch Change
		if g.state == StateDrawing {
			ch = g.abandon()
		}
		g.state = StatePinching
		g.pinchDist, g.pinchMid = g.pinch()
		return ch
	}
	return 0
}

func (g *Recognizer) begin(p geometry.ScreenPoint) Change {
	switch {
	case g.opts.Tool.IsBrush():
		g.state = StateDrawing
		g.lastStroke = g.vp.ScreenToImage(p)
		g.painted = g.raster.PaintDab(g.lastStroke, g.BrushRadius(), g.opts.Tool.Mode())
		if !g.painted {
			return 0
		}
		return ChangeMask
	case g.vp.CanPan():
		g.state = StatePanning
		g.lastDrag = p
	}
	return 0
}

// PointerMove updates a tracked pointer. Untracked pointers (hover) are
// ignored.
func (g *Recognizer) PointerMove(id int, p geometry.ScreenPoint) Change {
	i := g.find(id)
	if i < 0 {
		return 0
	}
	g.pointers[i].pos = p

	switch g.state {
	case StatePanning:
		g.vp.PanBy(p.Sub(g.lastDrag))
		g.lastDrag = p
		return ChangeTransform
	case StateDrawing:
		q := g.vp.ScreenToImage(p)
		touched := g.raster.PaintStroke(g.lastStroke, q, g.BrushRadius(), g.opts.Tool.Mode())
		g.lastStroke = q
		if !touched {
			return 0
		}
		g.painted = true
		return ChangeMask
	case StatePinching:
		if len(g.pointers) < maxPointers {
			return 0
		}
		dist, mid := g.pinch()
		// Carry the content under the old midpoint to the new one, then
		// zoom around it by the ratio against the previous sample.
		g.vp.PanBy(mid.Sub(g.pinchMid))
		if g.pinchDist > 0 && dist > 0 {
			g.vp.ZoomAt(dist/g.pinchDist, mid)
		}
		g.pinchDist, g.pinchMid = dist, mid
		return ChangeTransform
	}
	return 0
}

// PointerUp releases a pointer. Releasing the drawing pointer commits the
// stroke as exactly one history snapshot.
func (g *Recognizer) PointerUp(id int, p geometry.ScreenPoint) Change {
	if g.find(id) < 0 {
		return 0
	}
	var ch Change
	if g.state == StateDrawing {
		if i := g.find(id); g.pointers[i].pos != p {
			ch |= g.PointerMove(id, p)
		}
	}
	g.remove(id)

	switch g.state {
	case StateDrawing:
		ch |= g.commit()
		g.state = StateIdle
	case StatePanning:
		g.state = StateIdle
	case StatePinching:
		// A lone remaining finger stays inert until it is lifted too.
		if len(g.pointers) == 0 {
			g.state = StateIdle
		}
	}
	return ch
}

// PointerCancel drops a pointer without completing its gesture. A stroke in
// progress is abandoned.
func (g *Recognizer) PointerCancel(id int) Change {
	if g.find(id) < 0 {
		return 0
	}
	g.remove(id)
	var ch Change
	if g.state == StateDrawing {
		ch = g.abandon()
	}
	if len(g.pointers) == 0 || g.state != StatePinching {
		g.state = StateIdle
	}
	return ch
}

// Wheel zooms by one fixed step around the cursor: dy < 0 zooms in, dy > 0
// zooms out.
func (g *Recognizer) Wheel(p geometry.ScreenPoint, dy float64) Change {
	switch {
	case dy < 0:
		g.vp.ZoomAt(g.opts.ZoomInStep, p)
	case dy > 0:
		g.vp.ZoomAt(g.opts.ZoomOutStep, p)
	default:
		return 0
	}
	return ChangeTransform
}

// ZoomStep zooms one button step around the viewport centre.
func (g *Recognizer) ZoomStep(in bool) Change {
	c := g.vp.ViewSize().Half()
	f := g.opts.ZoomOutStep
	if in {
		f = g.opts.ZoomInStep
	}
	g.vp.ZoomAt(f, geometry.ScreenPoint(c))
	return ChangeTransform
}

// DoubleTap toggles between the fit scale and a zoomed-in view anchored at
// p. With any modifier held it always resets to fit.
func (g *Recognizer) DoubleTap(p geometry.ScreenPoint, mods Modifier) Change {
	if mods != 0 || !g.vp.IsAtFit() {
		g.vp.Reset()
	} else {
		g.vp.ZoomAt(g.opts.DoubleTapZoom, p)
	}
	return ChangeTransform
}

// Reset abandons any gesture and releases all pointers.
func (g *Recognizer) Reset() Change {
	var ch Change
	if g.state == StateDrawing {
		ch = g.abandon()
	}
	g.pointers = g.pointers[:0]
	g.state = StateIdle
	return ch
}

func (g *Recognizer) remove(id int) {
	i := g.find(id)
	copy(g.pointers[i:], g.pointers[i+1:])
	g.pointers = g.pointers[:len(g.pointers)-1]
}

func (g *Recognizer) pinch() (float64, geometry.ScreenPoint) {
	a, b := g.pointers[0].pos, g.pointers[1].pos
	return a.Distance(b), a.Midpoint(b)
}

func (g *Recognizer) commit() Change {
	g.rec.Commit(g.raster.Snapshot())
	if !g.painted {
		return ChangeCommit
	}
	g.painted = false
	return ChangeCommit | ChangeMask
}

// abandon discards the stroke in progress by restoring the last committed
// state.
func (g *Recognizer) abandon() Change {
	g.state = StateIdle
	painted := g.painted
	g.painted = false
	if err := g.raster.Restore(g.rec.Current()); err != nil || !painted {
		return 0
	}
	return ChangeMask
}
