package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio"
	"github.com/foliokit/folio/model"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Show metadata and structural statistics for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			r, err := folio.Open(path)
			if err != nil {
				return err
			}

			meta, err := r.Metadata()
			if err != nil {
				return err
			}

			// Content and TOC may be unavailable (DRM-limited reads);
			// info still shows what it can.
			var contentLen, tocCount, imageCount int
			if content, err := r.Content(); err == nil {
				contentLen = len(content)
			}
			if toc, err := r.TOC(); err == nil {
				tocCount = len(model.FlattenToc(toc))
			}
			if images, err := r.Images(); err == nil {
				imageCount = len(images)
			}
			var fileSize int64
			if st, err := os.Stat(path); err == nil {
				fileSize = st.Size()
			}

			out := cmd.OutOrStdout()
			if ctx.jsonOutput() {
				return writeJSON(out, struct {
					Path       string       `json:"path"`
					FileSize   int64        `json:"file_size"`
					ContentLen int          `json:"content_length"`
					TocEntries int          `json:"toc_entries"`
					Images     int          `json:"images"`
					Metadata   metadataJSON `json:"metadata"`
				}{path, fileSize, contentLen, tocCount, imageCount, metadataForJSON(meta)})
			}

			rows := metadataRows(meta)
			rows = append(rows,
				[]string{"File size", strconv.FormatInt(fileSize, 10)},
				[]string{"Content length", strconv.Itoa(contentLen)},
				[]string{"TOC entries", strconv.Itoa(tocCount)},
				[]string{"Images", strconv.Itoa(imageCount)},
			)
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	return cmd
}
