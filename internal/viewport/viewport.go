// Package viewport provides the pan/zoom geometry that maps an image into a
// viewport: fit-to-container scale, offset clamping, screen/image coordinate
// conversion and anchored zoom.
package viewport

import (
	"mask-editor/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r2"
)

// Default zoom bounds, expressed as factors of the fit scale.
const (
	DefaultMinZoomFactor = 0.3
	DefaultMaxZoomFactor = 3.0
)

// Transform is the current placement of the image in the viewport.
// Offsets are in viewport pixels, relative to the image centred in the
// viewport.
type Transform struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Identity is the fallback transform for degenerate geometry.
var Identity = Transform{Scale: 1}

// FitTransform returns the transform that contains an imgW x imgH image
// exactly within a viewW x viewH viewport. It returns Identity if any
// dimension is zero or negative.
func FitTransform(imgW, imgH, viewW, viewH float64) Transform {
	if imgW <= 0 || imgH <= 0 || viewW <= 0 || viewH <= 0 {
		return Identity
	}
	scale := viewW / imgW
	if s := viewH / imgH; s < scale {
		scale = s
	}
	return Transform{Scale: scale}
}

// Viewport holds the image and viewport sizes together with the live
// transform and its zoom bounds.
type Viewport struct {
	image geometry.Size
	view  geometry.Size

	minFactor float64
	maxFactor float64

	fit     float64
	minZoom float64
	maxZoom float64

	t Transform
}

// New creates a viewport for an image of the given size, initialised to the
// fit transform. minFactor and maxFactor scale the fit scale to give the zoom
// bounds; non-positive values select the defaults.
func New(image, view geometry.Size, minFactor, maxFactor float64) *Viewport {
	if minFactor <= 0 {
		minFactor = DefaultMinZoomFactor
	}
	if maxFactor <= 0 {
		maxFactor = DefaultMaxZoomFactor
	}
	if maxFactor < minFactor {
		maxFactor = minFactor
	}
	v := &Viewport{
		image:     image,
		view:      view,
		minFactor: minFactor,
		maxFactor: maxFactor,
	}
	v.refit()
	v.t = Transform{Scale: v.fit}
	v.t = v.clampTransform(v.t)
	return v
}

func (v *Viewport) refit() {
	v.fit = FitTransform(v.image.Width, v.image.Height, v.view.Width, v.view.Height).Scale
	v.minZoom = v.fit * v.minFactor
	v.maxZoom = v.fit * v.maxFactor
}

// Transform returns the current transform.
func (v *Viewport) Transform() Transform { return v.t }

// ImageSize returns the native image size.
func (v *Viewport) ImageSize() geometry.Size { return v.image }

// ViewSize returns the viewport size.
func (v *Viewport) ViewSize() geometry.Size { return v.view }

// FitScale returns the fit-to-container scale.
func (v *Viewport) FitScale() float64 { return v.fit }

// MinZoom returns the lower scale bound.
func (v *Viewport) MinZoom() float64 { return v.minZoom }

// MaxZoom returns the upper scale bound.
func (v *Viewport) MaxZoom() float64 { return v.maxZoom }

// ClampScale limits a scale to [MinZoom, MaxZoom].
func (v *Viewport) ClampScale(scale float64) float64 {
	return geometry.Clamp(scale, v.minZoom, v.maxZoom)
}

// ClampOffset limits an offset so the image cannot be panned past its edges.
// At or below minimum zoom no panning is permitted and (0, 0) is returned.
func (v *Viewport) ClampOffset(ox, oy, scale float64) (float64, float64) {
	if scale <= v.minZoom {
		return 0, 0
	}
	maxX := (v.image.Width*scale - v.view.Width) / 2
	if maxX < 0 {
		maxX = 0
	}
	maxY := (v.image.Height*scale - v.view.Height) / 2
	if maxY < 0 {
		maxY = 0
	}
	return geometry.Clamp(ox, -maxX, maxX), geometry.Clamp(oy, -maxY, maxY)
}

func (v *Viewport) clampTransform(t Transform) Transform {
	t.Scale = v.ClampScale(t.Scale)
	t.OffsetX, t.OffsetY = v.ClampOffset(t.OffsetX, t.OffsetY, t.Scale)
	return t
}

// SetTransform replaces the transform, clamping scale and offsets.
func (v *Viewport) SetTransform(t Transform) {
	v.t = v.clampTransform(t)
}

// Origin returns the screen position of the image's top-left corner:
// (viewport - image*scale)/2 + offset. The renderer places the image here.
func (v *Viewport) Origin() geometry.ScreenPoint {
	return geometry.ScreenPoint{
		X: (v.view.Width-v.image.Width*v.t.Scale)/2 + v.t.OffsetX,
		Y: (v.view.Height-v.image.Height*v.t.Scale)/2 + v.t.OffsetY,
	}
}

// ScreenToImage converts a viewport position to image pixels. It is the
// exact inverse of ImageToScreen.
func (v *Viewport) ScreenToImage(p geometry.ScreenPoint) geometry.ImagePoint {
	c := v.view.Half()
	return geometry.ImagePoint{
		X: (p.X-c.X-v.t.OffsetX)/v.t.Scale + v.image.Width/2,
		Y: (p.Y-c.Y-v.t.OffsetY)/v.t.Scale + v.image.Height/2,
	}
}

// ImageToScreen converts image pixels to a viewport position.
func (v *Viewport) ImageToScreen(p geometry.ImagePoint) geometry.ScreenPoint {
	c := v.view.Half()
	return geometry.ScreenPoint{
		X: (p.X-v.image.Width/2)*v.t.Scale + c.X + v.t.OffsetX,
		Y: (p.Y-v.image.Height/2)*v.t.Scale + c.Y + v.t.OffsetY,
	}
}

// ZoomAt multiplies the scale by factor while keeping the image location
// under anchor visually fixed.
func (v *Viewport) ZoomAt(factor float64, anchor geometry.ScreenPoint) {
	if factor <= 0 || v.t.Scale <= 0 {
		return
	}
	newScale := v.ClampScale(v.t.Scale * factor)
	ratio := newScale / v.t.Scale
	a := r2.Sub(anchor.Vec(), v.view.Half())
	ox := v.t.OffsetX*ratio + a.X*(1-ratio)
	oy := v.t.OffsetY*ratio + a.Y*(1-ratio)
	v.t.Scale = newScale
	v.t.OffsetX, v.t.OffsetY = v.ClampOffset(ox, oy, newScale)
}

// PanBy moves the image by a screen-space delta.
func (v *Viewport) PanBy(d r2.Vec) {
	v.t.OffsetX, v.t.OffsetY = v.ClampOffset(v.t.OffsetX+d.X, v.t.OffsetY+d.Y, v.t.Scale)
}

// CanPan reports whether the current scale permits panning.
func (v *Viewport) CanPan() bool {
	return v.t.Scale > v.minZoom
}

// IsAtFit reports whether the scale equals the fit scale.
func (v *Viewport) IsAtFit() bool {
	const eps = 1e-9
	d := v.t.Scale - v.fit
	return d < eps*v.fit && d > -eps*v.fit
}

// Reset returns to the fit transform.
func (v *Viewport) Reset() {
	v.t = v.clampTransform(Transform{Scale: v.fit})
}

// Resize updates the viewport size. The zoom level relative to fit is kept
// and offsets are re-clamped.
func (v *Viewport) Resize(view geometry.Size) {
	rel := 1.0
	if v.fit > 0 {
		rel = v.t.Scale / v.fit
	}
	v.view = view
	v.refit()
	v.t = v.clampTransform(Transform{
		Scale:   v.fit * rel,
		OffsetX: v.t.OffsetX,
		OffsetY: v.t.OffsetY,
	})
}
