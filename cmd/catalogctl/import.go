package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pm3/bigcord/internal/catalog"
)

var (
	importOutput    string
	importImagesDir string
	importTimeout   time.Duration
)

var importCmd = &cobra.Command{
	Use:   "import <export.csv>",
	Short: "Build a catalog feed from a WooCommerce CSV export",
	Long: `Reads a WooCommerce product export (SKU, Name and Images columns) and
writes a JSON catalog feed with sku, name and color for every product.

With --images the first photo of every product is downloaded into the given
directory. Photos that are already there are not fetched again.

Examples:
  catalogctl import products.csv
  catalogctl import products.csv -o data/catalog.json --images photo_raw/products`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "", "Feed file to write (default: <csv name>.json)")
	importCmd.Flags().StringVar(&importImagesDir, "images", "", "Directory for downloaded product photos")
	importCmd.Flags().DurationVar(&importTimeout, "timeout", 60*time.Second, "Per-photo download timeout")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	csvPath := args[0]
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := catalog.ImportCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", csvPath, err)
	}

	products := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.Product)
	}

	out := importOutput
	if out == "" {
		out = strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath)) + ".json"
	}
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "feed: %d products -> %s\n", len(products), out)

	if importImagesDir == "" {
		return nil
	}

	client := &http.Client{Timeout: importTimeout}
	var fetched, kept, failed int
	for _, row := range rows {
		if row.ImageURL == "" {
			continue
		}
		downloaded, err := catalog.DownloadImage(cmd.Context(), client, row.ImageURL, importImagesDir, row.Product.SKU)
		switch {
		case err != nil:
			failed++
			logger.Warn("photo download failed", zap.String("sku", row.Product.SKU), zap.Error(err))
		case downloaded:
			fetched++
			logger.Debug("photo saved", zap.String("sku", row.Product.SKU))
		default:
			kept++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "photos: %d downloaded, %d already present, %d failed -> %s\n",
		fetched, kept, failed, importImagesDir)
	return nil
}
