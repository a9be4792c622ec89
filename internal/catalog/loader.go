package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Loader fetches the raw product feed.
type Loader interface {
	Load(ctx context.Context) ([]Product, error)
}

// NewLoader picks an HTTPLoader for http(s) URLs and a FileLoader otherwise.
func NewLoader(source string, httpClient *http.Client) Loader {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return &HTTPLoader{URL: source, HTTP: httpClient}
	}
	return FileLoader{Path: source}
}

type FileLoader struct {
	Path string
}

func (l FileLoader) Load(ctx context.Context) ([]Product, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer f.Close()
	return decodeFeed(f)
}

type HTTPLoader struct {
	URL  string
	HTTP *http.Client
}

func (l *HTTPLoader) Load(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := l.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrCatalogUnavailable, l.URL, resp.StatusCode)
	}
	return decodeFeed(resp.Body)
}

func decodeFeed(r io.Reader) ([]Product, error) {
	var products []Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("%w: decode feed: %v", ErrCatalogUnavailable, err)
	}
	return products, nil
}
