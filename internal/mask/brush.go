package mask

import (
	"image"
	"image/draw"
	"math"

	"mask-editor/pkg/geometry"
)

// EffectiveRadius converts an on-screen brush diameter to an image-space
// radius at the given scale, so the brush keeps its on-screen size at every
// zoom level.
func EffectiveRadius(screenDiameter, scale float64) float64 {
	if scale <= 0 {
		return screenDiameter / 2
	}
	return (screenDiameter / scale) / 2
}

// PaintDab rasterizes a filled circle at centre. It reports whether any part
// of the raster was touched.
func (r *Raster) PaintDab(centre geometry.ImagePoint, radius float64, mode Mode) bool {
	return r.PaintStroke(centre, centre, radius, mode)
}

// PaintStroke rasterizes a round-capped line of width 2*radius from one
// image point to another.
//
// The segment midpoint must lie within the image inflated by radius or the
// stroke is dropped; both endpoints are then clamped into that inflated
// rectangle. This permits painting up to and across the image edge while
// never writing outside the raster.
func (r *Raster) PaintStroke(from, to geometry.ImagePoint, radius float64, mode Mode) bool {
	if radius <= 0 || r.Width() == 0 || r.Height() == 0 {
		return false
	}
	allowed := geometry.NewRect(0, 0, float64(r.Width()), float64(r.Height())).Inflate(radius)
	if !allowed.Contains(from.Midpoint(to)) {
		return false
	}
	from, to = allowed.Clamp(from), allowed.Clamp(to)

	box := image.Rect(
		int(math.Floor(math.Min(from.X, to.X)-radius)),
		int(math.Floor(math.Min(from.Y, to.Y)-radius)),
		int(math.Ceil(math.Max(from.X, to.X)+radius)),
		int(math.Ceil(math.Max(from.Y, to.Y)+radius)),
	)
	clip := box.Intersect(r.img.Rect)
	if clip.Empty() {
		return false
	}

	// The stamp covers the whole shape so the rasterizer never sees
	// coordinates outside its buffer; only the clipped part is applied.
	stamp := r.coverage(box, from, to, radius)
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		si := stamp.PixOffset(clip.Min.X-box.Min.X, y-box.Min.Y)
		di := r.img.PixOffset(clip.Min.X, y)
		for x := clip.Min.X; x < clip.Max.X; x, si, di = x+1, si+1, di+1 {
			c := stamp.Pix[si]
			if c == 0 {
				continue
			}
			if mode == ModeRemove {
				r.img.Pix[di] = erase(r.img.Pix[di], c)
			} else {
				r.img.Pix[di] = blend(r.img.Pix[di], c)
			}
		}
	}
	return true
}

// coverage rasterizes the capsule from-to into an alpha stamp covering box.
// The stamp is only valid until the next call.
func (r *Raster) coverage(box image.Rectangle, from, to geometry.ImagePoint, radius float64) *image.Alpha {
	w, h := box.Dx(), box.Dy()
	if n := w * h; n > cap(r.stamp) {
		r.stamp = make([]byte, n)
	} else {
		r.stamp = r.stamp[:n]
	}
	stamp := &image.Alpha{Pix: r.stamp, Stride: w, Rect: image.Rect(0, 0, w, h)}

	r.z.Reset(w, h)
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	a := geometry.ImgPt(from.X-ox, from.Y-oy)
	b := geometry.ImgPt(to.X-ox, to.Y-oy)
	if a.Distance(b) < 1e-6 {
		circlePath(r.z, a, radius)
	} else {
		capsulePath(r.z, a, b, radius)
	}
	r.z.DrawOp = draw.Src
	r.z.Draw(stamp, stamp.Bounds(), image.Opaque, image.Point{})
	return stamp
}

// pather is the path-building subset of *vector.Rasterizer.
type pather interface {
	MoveTo(ax, ay float32)
	LineTo(bx, by float32)
	CubeTo(bx, by, cx, cy, dx, dy float32)
	ClosePath()
}

// arc appends cubic segments, at most a quarter turn each, tracing the circle
// around c from angle a0 to a1 (a1 > a0).
func arc(z pather, c geometry.ImagePoint, radius, a0, a1 float64) {
	n := int(math.Ceil((a1 - a0) / (math.Pi / 2)))
	if n < 1 {
		n = 1
	}
	step := (a1 - a0) / float64(n)
	k := 4.0 / 3.0 * math.Tan(step/4) * radius
	for i := 0; i < n; i++ {
		s := a0 + float64(i)*step
		e := s + step
		sx, sy := math.Cos(s), math.Sin(s)
		ex, ey := math.Cos(e), math.Sin(e)
		z.CubeTo(
			float32(c.X+radius*sx-k*sy), float32(c.Y+radius*sy+k*sx),
			float32(c.X+radius*ex+k*ey), float32(c.Y+radius*ey-k*ex),
			float32(c.X+radius*ex), float32(c.Y+radius*ey),
		)
	}
}

func circlePath(z pather, c geometry.ImagePoint, radius float64) {
	z.MoveTo(float32(c.X+radius), float32(c.Y))
	arc(z, c, radius, 0, 2*math.Pi)
	z.ClosePath()
}

// capsulePath traces the outline of a stadium: a half circle around b, the
// parallel side back to a, a half circle around a and the closing side.
func capsulePath(z pather, a, b geometry.ImagePoint, radius float64) {
	theta := math.Atan2(b.Y-a.Y, b.X-a.X)
	lo, hi := theta-math.Pi/2, theta+math.Pi/2
	z.MoveTo(float32(b.X+radius*math.Cos(lo)), float32(b.Y+radius*math.Sin(lo)))
	arc(z, b, radius, lo, hi)
	z.LineTo(float32(a.X+radius*math.Cos(hi)), float32(a.Y+radius*math.Sin(hi)))
	arc(z, a, radius, hi, hi+math.Pi)
	z.ClosePath()
}
