package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio"
	"github.com/foliokit/folio/model"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check files for structural problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			reports := make([]*model.Report, 0, len(args))
			invalid := 0
			for _, path := range args {
				report, err := folio.Validate(path)
				if err != nil {
					return err
				}
				if !report.Valid() {
					invalid++
				}
				reports = append(reports, report)
			}

			if ctx.jsonOutput() {
				if err := writeJSON(out, reports); err != nil {
					return err
				}
			} else {
				var rows [][]string
				for _, r := range reports {
					if r.Valid() {
						rows = append(rows, []string{r.Path, r.Format, "", "valid"})
						continue
					}
					for _, issue := range r.Issues {
						rows = append(rows, []string{r.Path, r.Format, issue.Code, issue.Message})
					}
				}
				fmt.Fprintln(out, renderTable([]string{"File", "Format", "Issue", "Detail"}, rows, nil))
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d files failed validation", invalid, len(args))
			}
			return nil
		},
	}

	return cmd
}
