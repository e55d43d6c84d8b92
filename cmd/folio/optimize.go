package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio"
	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/imaging"
)

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	var maxWidth, maxHeight, quality int
	var noResize bool
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "optimize <file>",
		Short: "Recompress embedded images to shrink a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			dst := outputFlag
			if dst == "" {
				dst = path
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := imaging.Options{
				MaxWidth:  cfg.Optimize.MaxWidth,
				MaxHeight: cfg.Optimize.MaxHeight,
				Quality:   cfg.Optimize.Quality,
				NoResize:  cfg.Optimize.NoResize,
			}
			if cmd.Flags().Changed("max-width") {
				opts.MaxWidth = maxWidth
			}
			if cmd.Flags().Changed("max-height") {
				opts.MaxHeight = maxHeight
			}
			if cmd.Flags().Changed("quality") {
				opts.Quality = quality
			}
			if cmd.Flags().Changed("no-resize") {
				opts.NoResize = noResize
			}

			r, err := folio.Open(path)
			if err != nil {
				return err
			}

			opt, ok := r.(interface {
				OptimizeImages(imaging.Options) (int, error)
			})
			if !ok {
				return errs.New(errs.KindUnsupportedOp, "cli.optimize",
					"format has no embedded images to optimize").
					WithHint("optimize works on EPUB and CBZ files")
			}
			saved, err := opt.OptimizeImages(opts)
			if err != nil {
				return err
			}

			w, ok := r.(folio.Writer)
			if !ok {
				return errs.New(errs.KindUnsupportedOp, "cli.optimize",
					"format cannot be written back")
			}
			if err := w.WriteToFile(dst); err != nil {
				return err
			}

			ctx.log().Debug("optimized", "path", dst, "saved", saved)
			out := cmd.OutOrStdout()
			if ctx.jsonOutput() {
				return writeJSON(out, struct {
					Path  string `json:"path"`
					Saved int    `json:"bytes_saved"`
				}{dst, saved})
			}
			fmt.Fprintf(out, "optimized %s, saved %d bytes\n", dst, saved)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "Maximum image width in pixels")
	cmd.Flags().IntVar(&maxHeight, "max-height", 0, "Maximum image height in pixels")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality, 1 to 100")
	cmd.Flags().BoolVar(&noResize, "no-resize", false, "Recompress without resizing")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the optimized file here instead of in place")

	return cmd
}
