package render

import (
	"image"
	"image/color"
	"testing"

	"mask-editor/pkg/colorutil"
	"mask-editor/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xdraw "golang.org/x/image/draw"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
	return img
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestFrameWithoutSourceIsBackground(t *testing.T) {
	c := NewCompositor(DefaultStyle())
	out := c.Render(Scene{View: geometry.NewSize(10, 6)})
	require.Equal(t, image.Rect(0, 0, 10, 6), out.Bounds())
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			require.Equal(t, colorutil.DarkGray, rgbaAt(out, x, y))
		}
	}
}

func TestFramePlacesSourceAtOrigin(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	c := NewCompositor(DefaultStyle())
	out := c.Render(Scene{
		Source: solid(4, 2, red),
		Scale:  1,
		Origin: geometry.Pt(2, 1),
		View:   geometry.NewSize(8, 4),
	})

	assert.Equal(t, colorutil.DarkGray, rgbaAt(out, 0, 0))
	assert.Equal(t, colorutil.DarkGray, rgbaAt(out, 7, 3))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgbaAt(out, 3, 1))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgbaAt(out, 4, 2))
}

func TestFrameScalesByDensity(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	c := NewCompositor(DefaultStyle())
	sc := Scene{
		Source:  solid(4, 2, red),
		Scale:   1,
		Origin:  geometry.Pt(2, 1),
		View:    geometry.NewSize(8, 4),
		Density: 2,
	}
	out := c.Render(sc)
	require.Equal(t, image.Rect(0, 0, 16, 8), out.Bounds())
	assert.Equal(t, colorutil.DarkGray, rgbaAt(out, 3, 1))
	// Bilinear sampling of a uniform source is uniform to within rounding.
	for _, p := range []image.Point{{6, 3}, {11, 4}} {
		px := rgbaAt(out, p.X, p.Y)
		assert.InDelta(t, 255, float64(px.R), 1, "%v", p)
		assert.InDelta(t, 0, float64(px.G), 1, "%v", p)
	}
}

func TestOverlayTintsPaintedPixels(t *testing.T) {
	black := color.NRGBA{A: 255}
	m := image.NewAlpha(image.Rect(0, 0, 4, 4))
	for i := range m.Pix {
		m.Pix[i] = 255
	}
	c := NewCompositor(DefaultStyle())
	out := c.Render(Scene{
		Source: solid(4, 4, black),
		Mask:   m,
		Scale:  1,
		View:   geometry.NewSize(4, 4),
	})

	px := rgbaAt(out, 1, 1)
	tint := colorutil.MaskTint
	assert.InDelta(t, float64(tint.R)/2, float64(px.R), 2)
	assert.InDelta(t, float64(tint.G)/2, float64(px.G), 2)
	assert.InDelta(t, float64(tint.B)/2, float64(px.B), 2)
	assert.Equal(t, uint8(255), px.A)
}

func TestEmptyMaskLeavesSourceUntouched(t *testing.T) {
	src := solid(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	c := NewCompositor(DefaultStyle())
	base := c.Render(Scene{Source: src, Scale: 1, View: geometry.NewSize(4, 4)})
	withMask := c.Render(Scene{
		Source: src,
		Mask:   image.NewAlpha(image.Rect(0, 0, 4, 4)),
		Scale:  1,
		View:   geometry.NewSize(4, 4),
	})
	assert.Equal(t, base.Pix, withMask.Pix)
}

func TestCursorRing(t *testing.T) {
	c := NewCompositor(DefaultStyle())
	out := c.Render(Scene{
		View:   geometry.NewSize(60, 60),
		Cursor: &Cursor{Pos: geometry.Pt(30, 30), Diameter: 40},
	})
	assert.Equal(t, colorutil.DarkGray, rgbaAt(out, 30, 30), "ring is hollow")
	ring := rgbaAt(out, 50, 30)
	assert.NotEqual(t, colorutil.DarkGray, ring)
	assert.Greater(t, ring.R, uint8(100))
}

func TestZeroDiameterCursorDrawsNothing(t *testing.T) {
	c := NewCompositor(DefaultStyle())
	out := c.Render(Scene{
		View:   geometry.NewSize(20, 20),
		Cursor: &Cursor{Pos: geometry.Pt(10, 10)},
	})
	for i := 0; i < len(out.Pix); i += 4 {
		require.Equal(t, colorutil.DarkGray.R, out.Pix[i])
	}
}

func TestNewCompositorDefaults(t *testing.T) {
	c := NewCompositor(Style{})
	assert.Equal(t, DefaultOverlayOpacity, c.Style().OverlayOpacity)
	assert.Equal(t, color.Color(colorutil.DarkGray), c.Style().Background)
}

func TestRenderReusesSurfaces(t *testing.T) {
	c := NewCompositor(DefaultStyle())
	sc := Scene{View: geometry.NewSize(10, 6)}

	var frames []*image.RGBA
	for i := 0; i < surfaces+1; i++ {
		frames = append(frames, c.Render(sc))
	}
	for i := 1; i < surfaces; i++ {
		assert.NotSame(t, frames[0], frames[i])
	}
	assert.Same(t, frames[0], frames[surfaces], "chain wraps around")

	sc.View = geometry.NewSize(12, 6)
	resized := c.Render(sc)
	assert.NotSame(t, frames[1], resized)
	assert.Equal(t, image.Rect(0, 0, 12, 6), resized.Bounds())
}
