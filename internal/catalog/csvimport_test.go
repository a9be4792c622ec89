package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wooExport = "\ufeffID,SKU,Name,Images\n" +
	`1,5MM-RED,5mm PES (red),"https://shop.example/red.webp?v=2, https://shop.example/red-2.webp"` + "\n" +
	`2,5MM-BLUE,5mm PES (blue),` + "\n" +
	`3,,no sku,https://shop.example/x.jpg` + "\n" +
	`4,5MM-NONAME,,https://shop.example/y.jpg` + "\n" +
	`5,ROPE,Rope,https://shop.example/rope.tiff` + "\n"

func TestImportCSV(t *testing.T) {
	rows, err := ImportCSV(strings.NewReader(wooExport))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Product{SKU: "5MM-RED", Name: "5mm PES (red)", Color: "(red)"}, rows[0].Product)
	assert.Equal(t, "https://shop.example/red.webp?v=2", rows[0].ImageURL)

	assert.Equal(t, "5MM-BLUE", rows[1].Product.SKU)
	assert.Empty(t, rows[1].ImageURL)

	assert.Equal(t, "Rope", rows[2].Product.Color)
}

func TestImportCSVRequiresSKUColumn(t *testing.T) {
	_, err := ImportCSV(strings.NewReader("Name,Images\nfoo,\n"))
	assert.True(t, errors.Is(err, ErrMissingSKUColumn))
}

func TestImageFileName(t *testing.T) {
	tests := map[string]struct {
		url  string
		want string
	}{
		"keeps webp":         {url: "https://x/a.webp?v=1", want: "SKU.webp"},
		"lowercases":         {url: "https://x/a.JPG", want: "SKU.jpg"},
		"unknown ext to jpg": {url: "https://x/a.tiff", want: "SKU.jpg"},
		"no ext to jpg":      {url: "https://x/image", want: "SKU.jpg"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageFileName("SKU", tt.url))
		})
	}
}

func TestDownloadImageSkipsExisting(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	ctx := context.Background()

	downloaded, err := DownloadImage(ctx, srv.Client(), srv.URL+"/a.png", dir, "SKU")
	require.NoError(t, err)
	assert.True(t, downloaded)

	data, err := os.ReadFile(filepath.Join(dir, "SKU.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	downloaded, err = DownloadImage(ctx, srv.Client(), srv.URL+"/a.png", dir, "SKU")
	require.NoError(t, err)
	assert.False(t, downloaded)
	assert.Equal(t, int32(1), hits.Load())
}
