package submit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mask-editor/internal/encode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForSource(t *testing.T) {
	d := ForSource("/photos/beach.jpeg")
	assert.Equal(t, DirUploader{Dir: "/photos", Base: "beach"}, d)

	m, c := d.Paths(encode.FormatTIFF)
	assert.Equal(t, filepath.Join("/photos", "beach_mask.tiff"), m)
	assert.Equal(t, filepath.Join("/photos", "beach_cutout.tiff"), c)

	m, _ = DirUploader{Dir: "out"}.Paths(encode.FormatPNG)
	assert.Equal(t, filepath.Join("out", "image_mask.png"), m)
}

func TestDirUploaderWritesBoth(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	d := DirUploader{Dir: dir, Base: "shot"}
	a := encode.Artifacts{Format: encode.FormatPNG, Mask: []byte("mask"), Cutout: []byte("cut")}

	require.NoError(t, New(d).Submit(context.Background(), a))

	data, err := os.ReadFile(filepath.Join(dir, "shot_mask.png"))
	require.NoError(t, err)
	assert.Equal(t, "mask", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "shot_cutout.png"))
	require.NoError(t, err)
	assert.Equal(t, "cut", string(data))
}
