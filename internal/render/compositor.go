// Package render composes display frames: the source image placed by the
// viewport transform, the tinted mask overlay, and the brush cursor ring.
package render

import (
	"image"
	"image/color"
	"math"

	"mask-editor/pkg/colorutil"
	"mask-editor/pkg/geometry"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DefaultOverlayOpacity is the overlay alpha applied to fully painted pixels.
const DefaultOverlayOpacity = 0.5

// Style holds the fixed colours of a frame.
type Style struct {
	Background     color.Color
	OverlayTint    color.NRGBA
	OverlayOpacity float64
	RingColor      color.NRGBA
	EraseRingColor color.NRGBA
}

// DefaultStyle returns the default frame colours.
func DefaultStyle() Style {
	return Style{
		Background:     colorutil.DarkGray,
		OverlayTint:    colorutil.MaskTint,
		OverlayOpacity: DefaultOverlayOpacity,
		RingColor:      colorutil.CursorRing,
		EraseRingColor: colorutil.CursorErase,
	}
}

// Cursor is the brush ring drawn at the pointer position.
type Cursor struct {
	Pos      geometry.ScreenPoint
	Diameter float64 // Viewport pixels
	Erase    bool
}

// Scene is everything one frame needs. Origin and Scale come from the
// viewport; View is the viewport size in logical pixels.
type Scene struct {
	Source  image.Image
	Mask    *image.Alpha
	Scale   float64
	Origin  geometry.ScreenPoint
	View    geometry.Size
	Density float64
	Cursor  *Cursor
}

func (s Scene) density() float64 {
	if s.Density <= 0 {
		return 1
	}
	return s.Density
}

// SurfaceSize returns the backing surface size in physical pixels.
func (s Scene) SurfaceSize() image.Point {
	d := s.density()
	return image.Point{
		X: int(math.Ceil(s.View.Width * d)),
		Y: int(math.Ceil(s.View.Height * d)),
	}
}

// surfaces is the number of frame buffers Render rotates through. A frame
// returned by Render is left untouched for the next surfaces-1 calls.
const surfaces = 3

// Compositor draws scenes. It keeps one overlay buffer and a small chain of
// frame surfaces between frames.
//
// A Compositor is not safe for concurrent use.
type Compositor struct {
	style   Style
	overlay *image.NRGBA
	chain   [surfaces]*image.RGBA
	next    int
}

// NewCompositor creates a compositor with the given style. A zero opacity
// selects DefaultOverlayOpacity.
func NewCompositor(style Style) *Compositor {
	if style.Background == nil {
		style.Background = colorutil.DarkGray
	}
	if style.OverlayOpacity <= 0 {
		style.OverlayOpacity = DefaultOverlayOpacity
	}
	return &Compositor{style: style}
}

// Style returns the compositor's colours.
func (c *Compositor) Style() Style { return c.style }

// Render draws the scene into the next surface of the chain and returns it.
// Surfaces are reallocated only when the surface size changes.
func (c *Compositor) Render(sc Scene) *image.RGBA {
	sz := sc.SurfaceSize()
	if sz.X < 0 {
		sz.X = 0
	}
	if sz.Y < 0 {
		sz.Y = 0
	}
	rect := image.Rect(0, 0, sz.X, sz.Y)
	dst := c.chain[c.next]
	if dst == nil || dst.Rect != rect {
		dst = image.NewRGBA(rect)
		c.chain[c.next] = dst
	}
	c.next = (c.next + 1) % surfaces
	c.Frame(dst, sc)
	return dst
}

// Frame draws the scene into dst, replacing its contents.
func (c *Compositor) Frame(dst *image.RGBA, sc Scene) {
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(c.style.Background), image.Point{}, xdraw.Src)
	if sc.Source == nil || sc.Scale <= 0 {
		return
	}

	aff := placement(sc, sc.Source.Bounds().Min)
	xdraw.ApproxBiLinear.Transform(dst, aff, sc.Source, sc.Source.Bounds(), xdraw.Over, nil)

	if sc.Mask != nil {
		ov := c.buildOverlay(sc.Mask)
		if ov != nil {
			aff := placement(sc, sc.Mask.Bounds().Min)
			xdraw.ApproxBiLinear.Transform(dst, aff, ov, ov.Bounds(), xdraw.Over, nil)
		}
	}

	if sc.Cursor != nil {
		c.drawCursor(dst, sc)
	}
}

// placement returns the source-to-surface affine transform: scale then
// translate to the origin, both pre-multiplied by the pixel density.
func placement(sc Scene, o image.Point) f64.Aff3 {
	d := sc.density()
	s := sc.Scale * d
	return f64.Aff3{
		s, 0, sc.Origin.X*d - float64(o.X)*s,
		0, s, sc.Origin.Y*d - float64(o.Y)*s,
	}
}

// buildOverlay fills the reusable overlay buffer with the tint at alpha
// intensity*opacity. It returns nil for an empty mask.
func (c *Compositor) buildOverlay(m *image.Alpha) *image.NRGBA {
	b := m.Bounds()
	if b.Empty() {
		return nil
	}
	if c.overlay == nil || c.overlay.Bounds() != b {
		c.overlay = image.NewNRGBA(b)
	}
	painted := false
	tint := c.style.OverlayTint
	for y := 0; y < b.Dy(); y++ {
		src := m.Pix[y*m.Stride : y*m.Stride+b.Dx()]
		dst := c.overlay.Pix[y*c.overlay.Stride : y*c.overlay.Stride+4*b.Dx()]
		for x, v := range src {
			px := dst[4*x : 4*x+4 : 4*x+4]
			if v == 0 {
				px[0], px[1], px[2], px[3] = 0, 0, 0, 0
				continue
			}
			painted = true
			t := colorutil.Tint(tint, v, c.style.OverlayOpacity)
			px[0], px[1], px[2], px[3] = t.R, t.G, t.B, t.A
		}
	}
	if !painted {
		return nil
	}
	return c.overlay
}

func (c *Compositor) drawCursor(dst *image.RGBA, sc Scene) {
	d := sc.density()
	r := sc.Cursor.Diameter / 2 * d
	if r <= 0 {
		return
	}
	ring := c.style.RingColor
	if sc.Cursor.Erase {
		ring = c.style.EraseRingColor
	}
	x, y := sc.Cursor.Pos.X*d, sc.Cursor.Pos.Y*d

	dc := gg.NewContextForRGBA(dst)
	dc.DrawCircle(x, y, r)
	dc.SetColor(color.NRGBA{A: 160})
	dc.SetLineWidth(3 * d)
	dc.Stroke()
	dc.DrawCircle(x, y, r)
	dc.SetColor(ring)
	dc.SetLineWidth(1.5 * d)
	dc.Stroke()
}
