// Package encode builds the two output artifacts of an editing session: the
// binary inpainting mask and the soft cutout of the source.
package encode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	pkgimage "mask-editor/internal/image"
	"mask-editor/pkg/colorutil"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned by Encode for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Format is an output file format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
)

// ParseFormat maps a name such as "png" or "TIF" to a Format. The empty
// string selects PNG.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "", "png":
		return FormatPNG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "bmp":
		return FormatBMP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	if f == "" {
		return ".png"
	}
	return "." + string(f)
}

// InpaintMask returns an opaque white image the size of source whose alpha
// is 0 wherever the mask has any coverage and 255 elsewhere. The mask covers
// the source from its top-left corner.
func InpaintMask(source image.Image, mask *image.Alpha) *image.NRGBA {
	sb := source.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	for i := range out.Pix {
		out.Pix[i] = 255
	}
	mb := mask.Bounds()
	w, h := min(sb.Dx(), mb.Dx()), min(sb.Dy(), mb.Dy())
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x, v := range row {
			if v > 0 {
				out.Pix[y*out.Stride+4*x+3] = 0
			}
		}
	}
	return out
}

// Cutout returns a copy of source whose alpha is scaled by
// (1 - intensity/255). The mask covers the source from its top-left corner.
func Cutout(source image.Image, mask *image.Alpha) *image.NRGBA {
	out := pkgimage.ToNRGBA(source)
	ob := out.Bounds()
	mb := mask.Bounds()
	w, h := min(ob.Dx(), mb.Dx()), min(ob.Dy(), mb.Dy())
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x, v := range row {
			if v == 0 {
				continue
			}
			i := y*out.Stride + 4*x + 3
			out.Pix[i] = colorutil.MulDiv255(out.Pix[i], 255-v)
		}
	}
	return out
}

// Encode serialises img in the given format.
func Encode(img image.Image, format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG, "":
		err = png.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Artifacts holds the two encoded outputs.
type Artifacts struct {
	Format Format
	Mask   []byte // Inpainting mask
	Cutout []byte // Source with painted regions made transparent
}

// Build encodes both artifacts. It returns false if there is no source or
// mask, or if either encoding fails.
func Build(source image.Image, mask *image.Alpha, format Format) (Artifacts, bool) {
	if source == nil || mask == nil || source.Bounds().Empty() {
		return Artifacts{}, false
	}
	m, err := Encode(InpaintMask(source, mask), format)
	if err != nil {
		return Artifacts{}, false
	}
	c, err := Encode(Cutout(source, mask), format)
	if err != nil {
		return Artifacts{}, false
	}
	if format == "" {
		format = FormatPNG
	}
	return Artifacts{Format: format, Mask: m, Cutout: c}, true
}
