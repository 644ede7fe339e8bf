// Package colorutil provides shared colours and colour arithmetic for the mask editor.
package colorutil

import (
	"image/color"
)

// Common colours used by the renderer and the host UI.
var (
	Black       = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	DarkGray    = color.RGBA{R: 40, G: 40, B: 40, A: 255} // Canvas background
	MaskTint    = color.NRGBA{R: 255, G: 48, B: 96, A: 255}
	CursorRing  = color.NRGBA{R: 255, G: 255, B: 255, A: 200}
	CursorErase = color.NRGBA{R: 0, G: 200, B: 255, A: 200}
)

// MulDiv255 returns a*b/255 rounded to nearest, for a, b in [0, 255].
func MulDiv255(a, b uint8) uint8 {
	t := uint32(a)*uint32(b) + 128
	return uint8((t + t>>8) >> 8)
}

// Tint returns c with its alpha scaled by intensity/255 and opacity.
func Tint(c color.NRGBA, intensity uint8, opacity float64) color.NRGBA {
	a := float64(MulDiv255(c.A, intensity)) * opacity
	if a > 255 {
		a = 255
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a + 0.5)}
}
