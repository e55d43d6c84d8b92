package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio"
)

func newRepairCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "Rebuild a damaged file into a readable copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			dst := outputFlag
			if dst == "" {
				dst = src
			}

			ctx.log().Debug("repairing", "source", src, "destination", dst)
			if err := folio.Repair(src, dst); err != nil {
				return err
			}

			report, err := folio.Validate(dst)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.jsonOutput() {
				return writeJSON(out, report)
			}
			if report.Valid() {
				fmt.Fprintf(out, "repaired %s -> %s\n", src, dst)
				return nil
			}
			fmt.Fprintln(out, report.String())
			return fmt.Errorf("repair left %d unresolved issues", len(report.Issues))
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the repaired file here instead of in place")

	return cmd
}
