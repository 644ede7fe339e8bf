// Package geometry provides the point and size types shared by the viewport,
// mask and gesture packages.
//
// Screen-space and image-space points are distinct types so a conversion
// between them can only happen through the viewport.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ScreenPoint is a position in viewport pixels, origin at the top-left corner
// of the viewport.
type ScreenPoint r2.Vec

// ImagePoint is a position in native image pixels, origin at the top-left
// corner of the source image.
type ImagePoint r2.Vec

// Pt returns a screen-space point.
func Pt(x, y float64) ScreenPoint {
	return ScreenPoint{X: x, Y: y}
}

// ImgPt returns an image-space point.
func ImgPt(x, y float64) ImagePoint {
	return ImagePoint{X: x, Y: y}
}

// Vec returns the underlying vector.
func (p ScreenPoint) Vec() r2.Vec { return r2.Vec(p) }

// Add returns p translated by d.
func (p ScreenPoint) Add(d r2.Vec) ScreenPoint {
	return ScreenPoint(r2.Add(r2.Vec(p), d))
}

// Sub returns the vector from q to p.
func (p ScreenPoint) Sub(q ScreenPoint) r2.Vec {
	return r2.Sub(r2.Vec(p), r2.Vec(q))
}

// Distance returns the Euclidean distance to another screen point.
func (p ScreenPoint) Distance(q ScreenPoint) float64 {
	return r2.Norm(p.Sub(q))
}

// Midpoint returns the point halfway between p and q.
func (p ScreenPoint) Midpoint(q ScreenPoint) ScreenPoint {
	return ScreenPoint(r2.Scale(0.5, r2.Add(r2.Vec(p), r2.Vec(q))))
}

// Vec returns the underlying vector.
func (p ImagePoint) Vec() r2.Vec { return r2.Vec(p) }

// Sub returns the vector from q to p.
func (p ImagePoint) Sub(q ImagePoint) r2.Vec {
	return r2.Sub(r2.Vec(p), r2.Vec(q))
}

// Distance returns the Euclidean distance to another image point.
func (p ImagePoint) Distance(q ImagePoint) float64 {
	return r2.Norm(p.Sub(q))
}

// Midpoint returns the point halfway between p and q.
func (p ImagePoint) Midpoint(q ImagePoint) ImagePoint {
	return ImagePoint(r2.Scale(0.5, r2.Add(r2.Vec(p), r2.Vec(q))))
}

// Size represents a 2D size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSize creates a new Size.
func NewSize(width, height float64) Size {
	return Size{Width: width, Height: height}
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Scale returns the size multiplied by a factor.
func (s Size) Scale(factor float64) Size {
	return Size{Width: s.Width * factor, Height: s.Height * factor}
}

// Half returns the centre of a rectangle of this size anchored at the origin.
func (s Size) Half() r2.Vec {
	return r2.Vec{X: s.Width / 2, Y: s.Height / 2}
}

// Rect represents an axis-aligned rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect creates a new Rect.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Inflate returns the rectangle grown by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Contains returns true if the point is inside the rectangle, edges included.
func (r Rect) Contains(p ImagePoint) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Clamp returns p moved to the nearest point inside the rectangle.
func (r Rect) Clamp(p ImagePoint) ImagePoint {
	return ImagePoint{
		X: Clamp(p.X, r.X, r.X+r.Width),
		Y: Clamp(p.Y, r.Y, r.Y+r.Height),
	}
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
