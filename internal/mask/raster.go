// Package mask provides the image-sized intensity raster the user paints
// into, with additive paint and destructive erase of circular dabs and
// round-capped strokes.
package mask

import (
	"errors"
	"fmt"
	"image"

	"mask-editor/pkg/colorutil"

	"golang.org/x/image/vector"
)

// ErrSizeMismatch is returned when restoring a snapshot or pixel buffer of
// different dimensions.
var ErrSizeMismatch = errors.New("mask: size does not match raster")

// Mode selects how a brush shape is composited into the raster.
type Mode int

const (
	ModeAdd    Mode = iota // Blend at full intensity (over compositing)
	ModeRemove             // Erase regardless of prior value
)

func (m Mode) String() string {
	switch m {
	case ModeAdd:
		return "Add"
	case ModeRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// Raster is a single-channel 0-255 intensity buffer at native image
// resolution. Its dimensions are fixed at creation.
//
// A Raster is not safe for concurrent use.
type Raster struct {
	img *image.Alpha

	// Scratch state reused across brush applications.
	z     *vector.Rasterizer
	stamp []byte
}

// New creates an all-zero raster of the given size. Non-positive dimensions
// yield an empty raster on which every paint operation is a no-op.
func New(width, height int) *Raster {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Raster{
		img: image.NewAlpha(image.Rect(0, 0, width, height)),
		z:   vector.NewRasterizer(0, 0),
	}
}

// FromPix creates a raster from a row-major width*height intensity buffer.
// The buffer is copied.
func FromPix(width, height int, pix []byte) (*Raster, error) {
	r := New(width, height)
	if len(pix) != len(r.img.Pix) {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrSizeMismatch, len(pix), width, height)
	}
	copy(r.img.Pix, pix)
	return r, nil
}

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.img.Rect.Dx() }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.img.Rect.Dy() }

// Bounds returns the raster rectangle, always anchored at the origin.
func (r *Raster) Bounds() image.Rectangle { return r.img.Rect }

// Alpha exposes the backing image for readers (renderer, encoder). Callers
// must not modify it.
func (r *Raster) Alpha() *image.Alpha { return r.img }

// At returns the intensity at (x, y), or 0 outside the raster.
func (r *Raster) At(x, y int) uint8 {
	if !(image.Point{x, y}).In(r.img.Rect) {
		return 0
	}
	return r.img.Pix[r.img.PixOffset(x, y)]
}

// Empty reports whether no pixel carries any intensity.
func (r *Raster) Empty() bool {
	for _, v := range r.img.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clear resets every pixel to zero.
func (r *Raster) Clear() {
	for i := range r.img.Pix {
		r.img.Pix[i] = 0
	}
}

// Blend composites intensity c over the pixel at (x, y).
func (r *Raster) Blend(x, y int, c uint8) {
	if !(image.Point{x, y}).In(r.img.Rect) {
		return
	}
	i := r.img.PixOffset(x, y)
	r.img.Pix[i] = blend(r.img.Pix[i], c)
}

// Erase clears the pixel at (x, y) when c is non-zero. Any brush coverage
// removes the pixel entirely whatever its prior value.
func (r *Raster) Erase(x, y int, c uint8) {
	if !(image.Point{x, y}).In(r.img.Rect) {
		return
	}
	i := r.img.PixOffset(x, y)
	r.img.Pix[i] = erase(r.img.Pix[i], c)
}

func blend(v, c uint8) uint8 {
	return c + colorutil.MulDiv255(v, 255-c)
}

func erase(v, c uint8) uint8 {
	if c > 0 {
		return 0
	}
	return v
}

// Snapshot is an immutable deep copy of a raster's contents.
type Snapshot struct {
	width, height int
	pix           []byte
}

// Snapshot returns a deep copy of the current contents.
func (r *Raster) Snapshot() Snapshot {
	pix := make([]byte, len(r.img.Pix))
	copy(pix, r.img.Pix)
	return Snapshot{width: r.Width(), height: r.Height(), pix: pix}
}

// Restore overwrites the raster with a snapshot's contents.
func (r *Raster) Restore(s Snapshot) error {
	if s.width != r.Width() || s.height != r.Height() {
		return ErrSizeMismatch
	}
	copy(r.img.Pix, s.pix)
	return nil
}

// Width returns the snapshot width.
func (s Snapshot) Width() int { return s.width }

// Height returns the snapshot height.
func (s Snapshot) Height() int { return s.height }

// Equal reports whether two snapshots hold identical contents.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.width != o.width || s.height != o.height || len(s.pix) != len(o.pix) {
		return false
	}
	for i := range s.pix {
		if s.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// Matches reports whether the snapshot equals the raster's current contents.
func (s Snapshot) Matches(r *Raster) bool {
	if s.width != r.Width() || s.height != r.Height() {
		return false
	}
	for i, v := range r.img.Pix {
		if s.pix[i] != v {
			return false
		}
	}
	return true
}
