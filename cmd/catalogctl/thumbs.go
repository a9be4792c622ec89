package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pm3/bigcord/internal/thumbs"
)

var (
	thumbsSizes   []string
	thumbsMaxSide int
	thumbsQuality int
)

var thumbsCmd = &cobra.Command{
	Use:   "thumbs <src> <dst>",
	Short: "Render product photos into web sizes",
	Long: `Walks <src> and writes a JPEG for every photo into the same relative
directory under <dst>.

Without sizes a photo keeps its aspect ratio and is shrunk to --max-side.
Each size WxH produces a center-cropped variant: the first one is written as
<stem>.jpg and the rest as <stem>-WxH.jpg. Sizes come from --size or from a
size.txt in the source directory, one per line. Existing outputs are never
overwritten.

Examples:
  catalogctl thumbs photo_raw/products web/img/products
  catalogctl thumbs photo_raw/products web/img/products/small --size 300x300`,
	Args: cobra.ExactArgs(2),
	RunE: runThumbs,
}

func init() {
	thumbsCmd.Flags().StringSliceVar(&thumbsSizes, "size", nil, "Crop size WxH (repeatable; overrides size.txt)")
	thumbsCmd.Flags().IntVar(&thumbsMaxSide, "max-side", thumbs.DefaultMaxSide, "Longest side for uncropped output")
	thumbsCmd.Flags().IntVar(&thumbsQuality, "quality", thumbs.DefaultQuality, "JPEG quality")
	rootCmd.AddCommand(thumbsCmd)
}

func runThumbs(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	p := thumbs.Processor{
		MaxSide: thumbsMaxSide,
		Quality: thumbsQuality,
		Logger:  logger,
	}
	for _, raw := range thumbsSizes {
		s, err := thumbs.ParseSize(raw)
		if err != nil {
			return err
		}
		p.Sizes = append(p.Sizes, s)
	}

	rep, err := p.Run(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "thumbs: %d written, %d skipped, %d failed\n", rep.Written, rep.Skipped, rep.Failed)
	return nil
}
