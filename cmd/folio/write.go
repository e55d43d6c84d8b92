package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio"
	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/format"
	"github.com/foliokit/folio/model"
)

func newWriteCommand(ctx *commandContext) *cobra.Command {
	var meta model.Metadata
	var formatFlag string
	var contentFile string
	var coverFile string

	cmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Create a new book from text content and metadata flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			target := format.Detect(path)
			if formatFlag != "" {
				target = format.Parse(formatFlag)
				if target == format.Unknown {
					return errs.Newf(errs.KindUnsupportedFormat, "cli.write",
						"unknown format %q", formatFlag)
				}
			}

			w, err := folio.NewWriter(target)
			if err != nil {
				return err
			}
			if err := applyEPUBVersion(ctx, w); err != nil {
				return err
			}

			if coverFile != "" {
				cover, err := os.ReadFile(coverFile)
				if err != nil {
					return err
				}
				meta.CoverImage = cover
			}
			if err := w.SetMetadata(meta); err != nil {
				return err
			}

			content, err := readContent(contentFile)
			if err != nil {
				return err
			}
			if err := w.SetContent(content); err != nil {
				return err
			}

			if err := w.WriteToFile(path); err != nil {
				return err
			}
			ctx.log().Debug("book written", "path", path, "format", target.String())
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, target.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&meta.Title, "title", "", "Book title")
	cmd.Flags().StringVar(&meta.Author, "author", "", "Author name")
	cmd.Flags().StringVar(&meta.Publisher, "publisher", "", "Publisher name")
	cmd.Flags().StringVar(&meta.Description, "description", "", "Book description")
	cmd.Flags().StringVar(&meta.Language, "language", "", "Language tag, e.g. en")
	cmd.Flags().StringVar(&meta.ISBN, "isbn", "", "ISBN identifier")
	cmd.Flags().StringVar(&meta.PubDate, "date", "", "Publication date, YYYY-MM-DD")
	cmd.Flags().StringVar(&coverFile, "cover", "", "Cover image file")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Output format (default from the file extension)")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Text file to use as content (default stdin)")

	return cmd
}

// applyEPUBVersion forwards the configured package version to writers
// that support selecting one.
func applyEPUBVersion(ctx *commandContext, w folio.Writer) error {
	v, ok := w.(interface{ SetVersion(string) error })
	if !ok {
		return nil
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	return v.SetVersion(cfg.EPUB.Version)
}

func readContent(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
