// Package thumbs resizes raw product photos into the images served by the
// storefront, mirroring the source directory tree.
package thumbs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const (
	DefaultMaxSide = 1920
	DefaultQuality = 85

	// SizeFile, when present in a source directory, lists one WxH output
	// size per line for the images in that directory.
	SizeFile = "size.txt"

	outputExt = ".jpg"
)

var sourceExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

type Size struct {
	W, H int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }

var sizeRe = regexp.MustCompile(`(?i)^\s*(\d+)\s*[x×]\s*(\d+)\s*$`)

// ParseSize accepts "300x200", "300 x 200" and "300×200".
func ParseSize(s string) (Size, error) {
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return Size{}, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	if w == 0 || h == 0 {
		return Size{}, fmt.Errorf("invalid size %q, dimensions must be positive", s)
	}
	return Size{W: w, H: h}, nil
}

// ReadSizeFile returns the sizes listed in dir/size.txt, skipping lines that
// do not parse. A missing file yields nil.
func ReadSizeFile(dir string) ([]Size, error) {
	f, err := os.Open(filepath.Join(dir, SizeFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var sizes []Size
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s, err := ParseSize(sc.Text()); err == nil {
			sizes = append(sizes, s)
		}
	}
	return sizes, sc.Err()
}

// Output is one image to produce from a source. A nil Size means "shrink to
// the maximum side".
type Output struct {
	Name string
	Size *Size
}

// Outputs names the files for stem: the first size gets the plain name, the
// others a -WxH suffix.
func Outputs(stem string, sizes []Size) []Output {
	if len(sizes) == 0 {
		return []Output{{Name: stem + outputExt}}
	}
	out := make([]Output, 0, len(sizes))
	for i := range sizes {
		s := sizes[i]
		name := stem + outputExt
		if i > 0 {
			name = fmt.Sprintf("%s-%s%s", stem, s, outputExt)
		}
		out = append(out, Output{Name: name, Size: &s})
	}
	return out
}

type Report struct {
	Written int
	Skipped int
	Failed  int
}

type Processor struct {
	MaxSide int
	Quality int
	// Sizes overrides any size.txt found next to the sources.
	Sizes  []Size
	Logger *zap.Logger
}

// Run converts every image under src into dst. Outputs that already exist
// are left alone; per-file failures are logged and counted.
func (p Processor) Run(ctx context.Context, src, dst string) (Report, error) {
	if p.MaxSide <= 0 {
		p.MaxSide = DefaultMaxSide
	}
	if p.Quality <= 0 {
		p.Quality = DefaultQuality
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	files, err := sources(src)
	if err != nil {
		return Report{}, err
	}

	var rep Report
	sizeCache := make(map[string][]Size)
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		dir := filepath.Dir(rel)
		sizes := p.Sizes
		if sizes == nil {
			cached, ok := sizeCache[dir]
			if !ok {
				cached, err = ReadSizeFile(filepath.Join(src, dir))
				if err != nil {
					return rep, fmt.Errorf("read %s: %w", filepath.Join(src, dir, SizeFile), err)
				}
				sizeCache[dir] = cached
			}
			sizes = cached
		}

		stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
		p.convert(filepath.Join(src, rel), filepath.Join(dst, dir), Outputs(stem, sizes), &rep)
	}
	return rep, nil
}

func (p Processor) convert(srcPath, outDir string, outputs []Output, rep *Report) {
	var img image.Image
	for _, o := range outputs {
		outPath := filepath.Join(outDir, o.Name)
		if _, err := os.Stat(outPath); err == nil {
			rep.Skipped++
			continue
		}

		if img == nil {
			var err error
			img, err = imaging.Open(srcPath, imaging.AutoOrientation(true))
			if err != nil {
				p.Logger.Error("open image", zap.String("path", srcPath), zap.Error(err))
				rep.Failed++
				return
			}
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			p.Logger.Error("create output dir", zap.String("dir", outDir), zap.Error(err))
			rep.Failed++
			continue
		}
		if err := imaging.Save(p.resize(img, o.Size), outPath, imaging.JPEGQuality(p.Quality)); err != nil {
			p.Logger.Error("save image", zap.String("path", outPath), zap.Error(err))
			rep.Failed++
			continue
		}
		p.Logger.Info("image written", zap.String("src", srcPath), zap.String("dst", outPath))
		rep.Written++
	}
}

func (p Processor) resize(img image.Image, size *Size) image.Image {
	if size != nil {
		return imaging.Fill(img, size.W, size.H, imaging.Center, imaging.Lanczos)
	}
	b := img.Bounds()
	if b.Dx() <= p.MaxSide && b.Dy() <= p.MaxSide {
		return img
	}
	return imaging.Fit(img, p.MaxSide, p.MaxSide, imaging.Lanczos)
}

// sources lists image files under root, relative to it, in a stable order.
func sources(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !sourceExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return strings.ToLower(files[i]) < strings.ToLower(files[j]) })
	return files, nil
}
