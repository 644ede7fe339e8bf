// Package refine post-processes a painted mask before export: growing the
// painted region and softening its edges.
package refine

import (
	"fmt"
	"image"

	"mask-editor/internal/mask"

	"gocv.io/x/gocv"
)

// Dilate returns a copy of m with painted regions grown by px pixels using an
// elliptical kernel. px <= 0 returns an unmodified copy.
func Dilate(m *mask.Raster, px int) (*mask.Raster, error) {
	if px <= 0 || m.Empty() {
		return clone(m)
	}

	src, err := toMat(m)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{2*px + 1, 2*px + 1})
	defer kernel.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Dilate(src, &dst, kernel)

	return fromMat(dst, m.Width(), m.Height())
}

// Feather returns a copy of m blurred with a Gaussian of radius px, giving
// graduated edges. The binary inpainting mask is unaffected except where the
// blur extends coverage; the cutout picks up the soft falloff.
func Feather(m *mask.Raster, px int) (*mask.Raster, error) {
	if px <= 0 || m.Empty() {
		return clone(m)
	}

	src, err := toMat(m)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(src, &dst, image.Point{2*px + 1, 2*px + 1}, 0, 0, gocv.BorderDefault)

	return fromMat(dst, m.Width(), m.Height())
}

func clone(m *mask.Raster) (*mask.Raster, error) {
	return mask.FromPix(m.Width(), m.Height(), m.Alpha().Pix)
}

// toMat copies the raster into a single-channel 8-bit Mat.
func toMat(m *mask.Raster) (gocv.Mat, error) {
	pix := make([]byte, len(m.Alpha().Pix))
	copy(pix, m.Alpha().Pix)
	mat, err := gocv.NewMatFromBytes(m.Height(), m.Width(), gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to create mask mat: %w", err)
	}
	return mat, nil
}

func fromMat(mat gocv.Mat, w, h int) (*mask.Raster, error) {
	if mat.Rows() != h || mat.Cols() != w || mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unexpected mat %dx%d type %v", mat.Cols(), mat.Rows(), mat.Type())
	}
	return mask.FromPix(w, h, mat.ToBytes())
}
