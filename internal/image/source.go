// Package image loads source images for the editor and converts them to the
// pixel formats the renderer and encoder work in.
package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mask-editor/pkg/geometry"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Source is a decoded source image.
type Source struct {
	Path   string      // Original file path, empty when decoded from a stream
	Image  image.Image // Decoded pixels
	Format string      // Decoder name: png, jpeg, tiff, webp or bmp
	DPI    float64     // From TIFF metadata when present
}

// Load decodes the image at path.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	src, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	src.Path = path
	return src, nil
}

// Decode decodes an image from r in any registered format.
func Decode(r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	src := &Source{Image: img, Format: format}
	if format == "tiff" {
		if dpi, err := extractTIFFDPI(bytes.NewReader(data)); err == nil {
			src.DPI = dpi
		}
	}
	return src, nil
}

// Width returns the image width in pixels.
func (s *Source) Width() int {
	if s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (s *Source) Height() int {
	if s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dy()
}

// Size returns the image dimensions.
func (s *Source) Size() geometry.Size {
	return geometry.Size{
		Width:  float64(s.Width()),
		Height: float64(s.Height()),
	}
}

// ToNRGBA returns a non-premultiplied copy of img with its top-left corner
// at (0, 0).
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// extractTIFFDPI reads the resolution tags of the first IFD.
func extractTIFFDPI(r io.ReadSeeker) (float64, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}

	var byteOrder binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		byteOrder = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		byteOrder = binary.BigEndian
	default:
		return 0, fmt.Errorf("not a valid TIFF file")
	}

	ifdOffset := byteOrder.Uint32(header[4:8])
	if _, err := r.Seek(int64(ifdOffset), io.SeekStart); err != nil {
		return 0, err
	}

	var numEntries uint16
	if err := binary.Read(r, byteOrder, &numEntries); err != nil {
		return 0, err
	}

	var xResOff, yResOff int64 = -1, -1
	var resUnit uint16 = 2 // Inches

	entry := make([]byte, 12)
	for i := uint16(0); i < numEntries; i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			return 0, err
		}
		tag := byteOrder.Uint16(entry[0:2])
		fieldType := byteOrder.Uint16(entry[2:4])

		switch tag {
		case 282: // XResolution
			if fieldType == 5 {
				xResOff = int64(byteOrder.Uint32(entry[8:12]))
			}
		case 283: // YResolution
			if fieldType == 5 {
				yResOff = int64(byteOrder.Uint32(entry[8:12]))
			}
		case 296: // ResolutionUnit
			if fieldType == 3 {
				resUnit = byteOrder.Uint16(entry[8:10])
			}
		}
	}

	var dpi float64
	for _, off := range []int64{xResOff, yResOff} {
		if off < 0 {
			continue
		}
		v, err := readTIFFRational(r, off, byteOrder)
		if err != nil {
			return 0, err
		}
		if v > 0 {
			dpi = v
			break
		}
	}
	if dpi == 0 {
		return 0, fmt.Errorf("no resolution tags found")
	}
	if resUnit == 3 {
		dpi *= 2.54
	}
	return dpi, nil
}

// readTIFFRational reads a RATIONAL value (two uint32s) at offset.
func readTIFFRational(r io.ReadSeeker, offset int64, byteOrder binary.ByteOrder) (float64, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	var v [2]uint32
	if err := binary.Read(r, byteOrder, &v); err != nil {
		return 0, err
	}
	if v[1] == 0 {
		return 0, nil
	}
	return float64(v[0]) / float64(v[1]), nil
}

// SupportedFormats returns the list of supported image file extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".webp", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// FileFilter returns a file filter string for use in file dialogs.
func FileFilter() string {
	return "Image Files (*.png, *.jpg, *.jpeg, *.tiff, *.tif, *.webp, *.bmp)"
}
