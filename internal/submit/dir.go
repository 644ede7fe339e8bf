package submit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mask-editor/internal/encode"
)

// DirUploader writes artifacts as <Base>_mask<ext> and <Base>_cutout<ext>
// in Dir.
type DirUploader struct {
	Dir  string
	Base string
}

// ForSource returns a DirUploader that writes next to the image at path.
func ForSource(path string) DirUploader {
	base := filepath.Base(path)
	return DirUploader{
		Dir:  filepath.Dir(path),
		Base: base[:len(base)-len(filepath.Ext(base))],
	}
}

// Paths returns the mask and cutout file paths for format.
func (d DirUploader) Paths(format encode.Format) (maskPath, cutoutPath string) {
	base := d.Base
	if base == "" {
		base = "image"
	}
	maskPath = filepath.Join(d.Dir, base+"_mask"+format.Ext())
	cutoutPath = filepath.Join(d.Dir, base+"_cutout"+format.Ext())
	return maskPath, cutoutPath
}

// Upload implements Uploader.
func (d DirUploader) Upload(ctx context.Context, a encode.Artifacts) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	maskPath, cutoutPath := d.Paths(a.Format)
	if err := os.WriteFile(maskPath, a.Mask, 0o644); err != nil {
		return fmt.Errorf("failed to write mask: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(cutoutPath, a.Cutout, 0o644); err != nil {
		return fmt.Errorf("failed to write cutout: %w", err)
	}
	return nil
}
