package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMulDiv255(t *testing.T) {
	tests := []struct {
		a, b, want uint8
	}{
		{0, 255, 0},
		{255, 255, 255},
		{255, 128, 128},
		{128, 128, 64},
		{1, 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MulDiv255(tt.a, tt.b), "%d*%d", tt.a, tt.b)
	}
}

func TestTint(t *testing.T) {
	c := color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 128}, Tint(c, 255, 0.5))
	assert.Equal(t, uint8(0), Tint(c, 0, 1).A)
	assert.Equal(t, uint8(255), Tint(c, 255, 2).A)
}
