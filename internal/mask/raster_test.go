package mask

import (
	"math"
	"testing"

	"mask-editor/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsEmpty(t *testing.T) {
	r := New(64, 32)
	assert.Equal(t, 64, r.Width())
	assert.Equal(t, 32, r.Height())
	assert.True(t, r.Empty())

	zero := New(-1, 10)
	assert.Zero(t, zero.Width())
	assert.False(t, zero.PaintDab(geometry.ImgPt(0, 0), 5, ModeAdd))
}

func TestEffectiveRadius(t *testing.T) {
	assert.Equal(t, 40.0, EffectiveRadius(40, 0.5))
	assert.Equal(t, 10.0, EffectiveRadius(40, 2))
	assert.Equal(t, 20.0, EffectiveRadius(40, 0))
}

func TestPaintDabFillsCircle(t *testing.T) {
	r := New(100, 100)
	require.True(t, r.PaintDab(geometry.ImgPt(50, 50), 10, ModeAdd))

	assert.Equal(t, uint8(255), r.At(50, 50))
	assert.Equal(t, uint8(255), r.At(55, 50))
	assert.Equal(t, uint8(0), r.At(50, 65))
	assert.Equal(t, uint8(0), r.At(0, 0))
	forEachPixel(r, func(x, y int, v uint8) {
		d := math.Hypot(float64(x)+0.5-50, float64(y)+0.5-50)
		if d <= 9 {
			require.Equal(t, uint8(255), v, "inside at %d,%d", x, y)
		}
		if d >= 11.5 {
			require.Equal(t, uint8(0), v, "outside at %d,%d", x, y)
		}
	})
}

func TestPaintStrokeHasNoGaps(t *testing.T) {
	r := New(200, 50)
	require.True(t, r.PaintStroke(geometry.ImgPt(20, 25), geometry.ImgPt(180, 25), 5, ModeAdd))
	for x := 20; x < 180; x++ {
		require.Equal(t, uint8(255), r.At(x, 25), "x=%d", x)
		require.Equal(t, uint8(255), r.At(x, 22), "x=%d", x)
	}
	// Round caps extend past the endpoints.
	assert.Equal(t, uint8(255), r.At(17, 24))
	assert.Equal(t, uint8(255), r.At(182, 24))
	assert.Equal(t, uint8(0), r.At(100, 35))
}

func TestPaintStrokeDiagonal(t *testing.T) {
	r := New(100, 100)
	require.True(t, r.PaintStroke(geometry.ImgPt(10, 10), geometry.ImgPt(90, 90), 4, ModeAdd))
	for i := 10; i < 90; i++ {
		require.Equal(t, uint8(255), r.At(i, i), "i=%d", i)
	}
	assert.Equal(t, uint8(0), r.At(90, 10))
}

func TestPaintEraseCancellation(t *testing.T) {
	for _, p := range []geometry.ImagePoint{
		geometry.ImgPt(40, 40),
		geometry.ImgPt(40.3, 40.7),
	} {
		r := New(80, 80)
		require.True(t, r.PaintDab(p, 12, ModeAdd))
		require.False(t, r.Empty())
		require.True(t, r.PaintDab(p, 12, ModeRemove))

		forEachPixel(r, func(x, y int, v uint8) {
			if math.Hypot(float64(x)+0.5-p.X, float64(y)+0.5-p.Y) <= 12 {
				require.Equal(t, uint8(0), v, "centre %v at %d,%d", p, x, y)
			}
		})
		assert.True(t, r.Empty(), "no edge residue around %v", p)
	}
}

func TestEraseClearsPartialCoverage(t *testing.T) {
	r := New(40, 40)
	require.True(t, r.PaintDab(geometry.ImgPt(20, 20), 15, ModeAdd))
	// The removal ring is anti-aliased; its soft edge must still clear fully.
	require.True(t, r.PaintDab(geometry.ImgPt(20.5, 20.5), 6.3, ModeRemove))
	forEachPixel(r, func(x, y int, v uint8) {
		if math.Hypot(float64(x)+0.5-20.5, float64(y)+0.5-20.5) <= 6.3 {
			require.Equal(t, uint8(0), v, "at %d,%d", x, y)
		}
	})
	assert.Equal(t, uint8(255), r.At(20, 31))
}

func TestEraseIsDestructive(t *testing.T) {
	r := New(40, 40)
	r.PaintDab(geometry.ImgPt(20, 20), 10, ModeAdd)
	r.PaintDab(geometry.ImgPt(20, 20), 10, ModeAdd)
	require.Equal(t, uint8(255), r.At(20, 20))
	r.PaintDab(geometry.ImgPt(20, 20), 3, ModeRemove)
	assert.Equal(t, uint8(0), r.At(20, 20))
	assert.Equal(t, uint8(255), r.At(20, 27))
}

func TestBlendAndEraseRaw(t *testing.T) {
	r := New(2, 1)
	r.Blend(0, 0, 128)
	assert.Equal(t, uint8(128), r.At(0, 0))
	r.Blend(0, 0, 255)
	assert.Equal(t, uint8(255), r.At(0, 0))
	r.Erase(0, 0, 255)
	assert.Equal(t, uint8(0), r.At(0, 0))

	r.Blend(1, 0, 200)
	r.Erase(1, 0, 0)
	assert.Equal(t, uint8(200), r.At(1, 0))

	// Out of range writes are ignored.
	r.Blend(5, 5, 255)
	assert.Equal(t, uint8(0), r.At(5, 5))
}

func TestBoundsPolicy(t *testing.T) {
	r := New(50, 50)

	// Centre just outside the image but within the radius still paints the edge.
	require.True(t, r.PaintDab(geometry.ImgPt(-5, 25), 8, ModeAdd))
	assert.Equal(t, uint8(255), r.At(0, 25))

	// Centre farther than the radius is dropped entirely.
	before := r.Snapshot()
	assert.False(t, r.PaintDab(geometry.ImgPt(-20, 25), 8, ModeAdd))
	assert.True(t, before.Matches(r))

	// A stroke whose midpoint is inside is applied, with the far endpoint clamped.
	require.True(t, r.PaintStroke(geometry.ImgPt(25, 10), geometry.ImgPt(70, 10), 3, ModeAdd))
	assert.Equal(t, uint8(255), r.At(49, 10))

	// A stroke whose midpoint is outside is dropped.
	before = r.Snapshot()
	assert.False(t, r.PaintStroke(geometry.ImgPt(25, 40), geometry.ImgPt(500, 40), 3, ModeAdd))
	assert.True(t, before.Matches(r))
}

func TestSnapshotRestore(t *testing.T) {
	r := New(30, 30)
	seed := r.Snapshot()
	r.PaintDab(geometry.ImgPt(15, 15), 5, ModeAdd)
	painted := r.Snapshot()
	assert.False(t, seed.Equal(painted))

	// Snapshots are deep copies.
	r.Clear()
	assert.Equal(t, uint8(255), painted.pix[15*30+15])

	require.NoError(t, r.Restore(painted))
	assert.True(t, painted.Matches(r))
	assert.ErrorIs(t, New(10, 10).Restore(painted), ErrSizeMismatch)
}

func forEachPixel(r *Raster, fn func(x, y int, v uint8)) {
	for y := 0; y < r.Height(); y++ {
		for x := 0; x < r.Width(); x++ {
			fn(x, y, r.At(x, y))
		}
	}
}

func TestFromPix(t *testing.T) {
	pix := []byte{0, 10, 20, 30, 40, 50}
	r, err := FromPix(3, 2, pix)
	require.NoError(t, err)
	assert.Equal(t, uint8(50), r.At(2, 1))
	pix[5] = 0
	assert.Equal(t, uint8(50), r.At(2, 1), "buffer is copied")

	_, err = FromPix(4, 4, pix)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}
