package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio"
)

func newReadCommand(ctx *commandContext) *cobra.Command {
	var showMetadata bool
	var showTOC bool
	var imagesDir string

	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Print a book's text content, metadata or table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			r, err := folio.Open(path)
			if err != nil {
				return err
			}
			ctx.log().Debug("book loaded", "path", path)

			out := cmd.OutOrStdout()

			if showMetadata {
				meta, err := r.Metadata()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(out, metadataForJSON(meta))
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, metadataRows(meta), nil))
				return nil
			}

			if showTOC {
				toc, err := r.TOC()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(out, toc)
				}
				for _, line := range tocLines(toc) {
					fmt.Fprintln(out, line)
				}
				return nil
			}

			if imagesDir != "" {
				return extractImages(cmd, r, imagesDir)
			}

			content, err := r.Content()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, content)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMetadata, "metadata", false, "Print metadata instead of content")
	cmd.Flags().BoolVar(&showTOC, "toc", false, "Print the table of contents instead of content")
	cmd.Flags().StringVar(&imagesDir, "extract-images", "", "Extract embedded images into this directory")

	return cmd
}

func extractImages(cmd *cobra.Command, r folio.Reader, dir string) error {
	images, err := r.Images()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, img := range images {
		name := filepath.Base(strings.ReplaceAll(img.Name, "\\", "/"))
		if name == "." || name == "/" || name == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), img.Data, 0o644); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "extracted %d images to %s\n", len(images), dir)
	return nil
}
