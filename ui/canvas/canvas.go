// Package canvas provides the mask editing surface.
package canvas

import (
	"image"
	"sync"

	"mask-editor/internal/app"
	"mask-editor/internal/gesture"
	"mask-editor/internal/render"
	"mask-editor/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// mousePointer is the pointer id used for the desktop mouse. Touch drivers
// report one pointer per finger; fyne's mouse events carry none.
const mousePointer = 1

// MaskCanvas displays session frames and forwards pointer input to the
// session.
type MaskCanvas struct {
	widget.BaseWidget

	session *app.Session
	raster  *fynecanvas.Raster

	mu    sync.Mutex
	frame *image.RGBA

	// Interaction state
	pressed bool
	moved   bool
	tapDab  bool // The last release committed a brush dab without moving
	last    geometry.ScreenPoint
	mods    gesture.Modifier
}

var (
	_ render.Sink         = (*MaskCanvas)(nil)
	_ desktop.Mouseable   = (*MaskCanvas)(nil)
	_ desktop.Hoverable   = (*MaskCanvas)(nil)
	_ fyne.Draggable      = (*MaskCanvas)(nil)
	_ fyne.Scrollable     = (*MaskCanvas)(nil)
	_ fyne.DoubleTappable = (*MaskCanvas)(nil)
	_ fyne.Widget         = (*MaskCanvas)(nil)
)

// NewMaskCanvas creates a canvas bound to a session.
func NewMaskCanvas(s *app.Session) *MaskCanvas {
	mc := &MaskCanvas{session: s}
	mc.raster = fynecanvas.NewRaster(mc.draw)
	mc.raster.ScaleMode = fynecanvas.ImageScalePixels
	mc.ExtendBaseWidget(mc)
	return mc
}

// Present stores the latest frame and schedules a repaint.
func (mc *MaskCanvas) Present(frame *image.RGBA) {
	mc.mu.Lock()
	mc.frame = frame
	mc.mu.Unlock()
	mc.raster.Refresh()
}

// draw is the raster generator. w and h are in device pixels, so their ratio
// to the widget size is the pixel density the session renders at.
func (mc *MaskCanvas) draw(w, h int) image.Image {
	if size := mc.Size(); size.Width > 0 && w > 0 {
		mc.session.SetPixelDensity(float64(w) / float64(size.Width))
	}

	mc.mu.Lock()
	frame := mc.frame
	mc.mu.Unlock()
	if frame == nil {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return frame
}

// Resize resizes the widget and the session viewport.
func (mc *MaskCanvas) Resize(size fyne.Size) {
	mc.BaseWidget.Resize(size)
	mc.session.Resize(float64(size.Width), float64(size.Height))
}

// MinSize returns the minimum size of the canvas.
func (mc *MaskCanvas) MinSize() fyne.Size {
	return fyne.NewSize(200, 150)
}

// CreateRenderer implements fyne.Widget.
func (mc *MaskCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(mc.raster)
}

// MouseDown implements desktop.Mouseable.
func (mc *MaskCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	mc.mods = Modifiers(ev.Modifier)
	mc.pressed = true
	mc.moved = false
	mc.tapDab = false
	mc.last = point(ev.Position)
	mc.session.PointerDown(mousePointer, mc.last)
}

// MouseUp implements desktop.Mouseable.
func (mc *MaskCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	mc.release(point(ev.Position))
}

// Dragged implements fyne.Draggable.
func (mc *MaskCanvas) Dragged(ev *fyne.DragEvent) {
	mc.move(point(ev.Position))
}

// DragEnd implements fyne.Draggable. Drivers deliver either MouseUp or
// DragEnd depending on platform, so both release the pointer once.
func (mc *MaskCanvas) DragEnd() {
	mc.release(mc.last)
}

// MouseIn implements desktop.Hoverable.
func (mc *MaskCanvas) MouseIn(ev *desktop.MouseEvent) {
	mc.session.Hover(point(ev.Position))
}

// MouseMoved implements desktop.Hoverable.
func (mc *MaskCanvas) MouseMoved(ev *desktop.MouseEvent) {
	mc.move(point(ev.Position))
}

// MouseOut implements desktop.Hoverable.
func (mc *MaskCanvas) MouseOut() {
	mc.session.HoverExit()
}

// Scrolled implements fyne.Scrollable. Fyne reports positive DY for
// scrolling up, which zooms in.
func (mc *MaskCanvas) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY == 0 {
		return
	}
	mc.session.Wheel(point(ev.Position), float64(-ev.Scrolled.DY))
}

// DoubleTapped implements fyne.DoubleTappable. Fyne delivers it after the
// second press and release, so with a brush tool the dab that second tap
// committed is discarded before the zoom toggles. The first tap's dab stays.
func (mc *MaskCanvas) DoubleTapped(ev *fyne.PointEvent) {
	if mc.tapDab {
		mc.tapDab = false
		mc.session.DiscardLastEdit()
	}
	mc.session.DoubleTap(point(ev.Position), mc.mods)
}

func (mc *MaskCanvas) move(p geometry.ScreenPoint) {
	if !mc.pressed {
		mc.session.Hover(p)
		return
	}
	if p == mc.last {
		return
	}
	mc.last = p
	mc.moved = true
	mc.session.PointerMove(mousePointer, p)
}

func (mc *MaskCanvas) release(p geometry.ScreenPoint) {
	if !mc.pressed {
		return
	}
	mc.pressed = false
	mc.session.PointerUp(mousePointer, p)
	mc.tapDab = !mc.moved && mc.session.Enabled() && mc.session.Tool().IsBrush()
}

func point(p fyne.Position) geometry.ScreenPoint {
	return geometry.Pt(float64(p.X), float64(p.Y))
}

// Modifiers converts fyne key modifiers to gesture modifiers.
func Modifiers(m fyne.KeyModifier) gesture.Modifier {
	var mods gesture.Modifier
	if m&fyne.KeyModifierShift != 0 {
		mods |= gesture.ModShift
	}
	if m&fyne.KeyModifierControl != 0 {
		mods |= gesture.ModControl
	}
	if m&fyne.KeyModifierAlt != 0 {
		mods |= gesture.ModAlt
	}
	if m&fyne.KeyModifierSuper != 0 {
		mods |= gesture.ModSuper
	}
	return mods
}
