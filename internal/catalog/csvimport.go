package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var ErrMissingSKUColumn = errors.New("csv must have a SKU column")

// ImportedRow is one product from a WooCommerce export plus the URL of its
// first image, if any.
type ImportedRow struct {
	Product  Product
	ImageURL string
}

// ImportCSV reads a WooCommerce product export with SKU, Name and Images
// columns. Rows without a SKU or a name are skipped.
func ImportCSV(r io.Reader) ([]ImportedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[strings.TrimSpace(h)] = i
	}
	if _, ok := cols["SKU"]; !ok {
		return nil, ErrMissingSKUColumn
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []ImportedRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		sku, name := field(rec, "SKU"), field(rec, "Name")
		if sku == "" || name == "" {
			continue
		}
		rows = append(rows, ImportedRow{
			Product:  Product{SKU: sku, Name: name, Color: ColorFromName(name)},
			ImageURL: FirstImageURL(field(rec, "Images")),
		})
	}
	return rows, nil
}

// ColorFromName returns the name from its first "(" on, e.g.
// "5mm PES (red)" -> "(red)". Names without a parenthesis are returned whole.
func ColorFromName(name string) string {
	if i := strings.Index(name, "("); i >= 0 {
		return strings.TrimSpace(name[i:])
	}
	return name
}

var imageSep = regexp.MustCompile(`,\s+`)

// FirstImageURL picks the first entry of a ", "-separated Images field.
func FirstImageURL(images string) string {
	images = strings.TrimSpace(images)
	if images == "" {
		return ""
	}
	return strings.TrimSpace(imageSep.Split(images, 2)[0])
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// ImageFileName names the downloaded source image for sku after the URL's
// extension, falling back to .jpg.
func ImageFileName(sku, rawURL string) string {
	ext := strings.ToLower(path.Ext(strings.SplitN(rawURL, "?", 2)[0]))
	if !imageExts[ext] {
		ext = ".jpg"
	}
	return sku + ext
}

// DownloadImage stores rawURL under dir unless the file already exists. It
// reports whether a download happened.
func DownloadImage(ctx context.Context, client *http.Client, rawURL, dir, sku string) (bool, error) {
	dst := filepath.Join(dir, ImageFileName(sku, rawURL))
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", "catalogctl")

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	f, err := os.Create(dst)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return false, fmt.Errorf("write %s: %w", dst, err)
	}
	return true, f.Close()
}
