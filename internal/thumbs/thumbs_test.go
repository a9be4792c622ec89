package thumbs

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    Size
		wantErr bool
	}{
		"plain":        {in: "300x200", want: Size{W: 300, H: 200}},
		"spaces":       {in: " 110 x 110 ", want: Size{W: 110, H: 110}},
		"upper x":      {in: "64X48", want: Size{W: 64, H: 48}},
		"times sign":   {in: "640×480", want: Size{W: 640, H: 480}},
		"zero":         {in: "0x10", wantErr: true},
		"missing part": {in: "300x", wantErr: true},
		"garbage":      {in: "large", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputs(t *testing.T) {
	assert.Equal(t, []Output{{Name: "cord.jpg"}}, Outputs("cord", nil))

	got := Outputs("cord", []Size{{W: 800, H: 800}, {W: 110, H: 110}})
	require.Len(t, got, 2)
	assert.Equal(t, "cord.jpg", got[0].Name)
	assert.Equal(t, Size{W: 800, H: 800}, *got[0].Size)
	assert.Equal(t, "cord-110x110.jpg", got[1].Name)
	assert.Equal(t, Size{W: 110, H: 110}, *got[1].Size)
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, imaging.Save(img, path))
}

func bounds(t *testing.T, path string) image.Rectangle {
	t.Helper()
	img, err := imaging.Open(path)
	require.NoError(t, err)
	return img.Bounds()
}

func TestRunShrinksToMaxSide(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeImage(t, filepath.Join(src, "products", "wide.png"), 400, 100)
	writeImage(t, filepath.Join(src, "products", "small.png"), 50, 40)
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("ignore me"), 0o644))

	rep, err := Processor{MaxSide: 200}.Run(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, Report{Written: 2}, rep)

	b := bounds(t, filepath.Join(dst, "products", "wide.jpg"))
	assert.Equal(t, 200, b.Dx())
	assert.Equal(t, 50, b.Dy())

	b = bounds(t, filepath.Join(dst, "products", "small.jpg"))
	assert.Equal(t, 50, b.Dx(), "small images are not enlarged")
}

func TestRunUsesSizeFile(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeImage(t, filepath.Join(src, "cord.png"), 120, 90)
	require.NoError(t, os.WriteFile(filepath.Join(src, SizeFile), []byte("60x60\nnot a size\n20 x 10\n"), 0o644))

	rep, err := Processor{}.Run(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Written)

	b := bounds(t, filepath.Join(dst, "cord.jpg"))
	assert.Equal(t, image.Pt(60, 60), b.Size())
	b = bounds(t, filepath.Join(dst, "cord-20x10.jpg"))
	assert.Equal(t, image.Pt(20, 10), b.Size())
}

func TestRunSkipsExistingOutputs(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeImage(t, filepath.Join(src, "cord.png"), 30, 30)

	p := Processor{Sizes: []Size{{W: 10, H: 10}, {W: 5, H: 5}}}
	rep, err := p.Run(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, Report{Written: 2}, rep)

	rep, err = p.Run(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 2}, rep)
}

func TestRunCountsBrokenImages(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "broken.jpg"), []byte("not an image"), 0o644))

	rep, err := Processor{}.Run(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, Report{Failed: 1}, rep)
}
