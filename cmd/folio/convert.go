package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio"
	"github.com/foliokit/folio/errs"
	"github.com/foliokit/folio/format"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var toFlag string

	cmd := &cobra.Command{
		Use:   "convert <source> <destination>",
		Short: "Convert a book between formats",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]

			var opts []folio.ConvertOption
			if toFlag != "" {
				target := format.Parse(toFlag)
				if target == format.Unknown {
					return errs.Newf(errs.KindUnsupportedFormat, "cli.convert",
						"unknown format %q", toFlag)
				}
				opts = append(opts, folio.WithTargetFormat(target))
			}

			ctx.log().Debug("converting", "source", src, "destination", dst)
			if err := folio.Convert(src, dst, opts...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %s -> %s\n", src, dst)
			return nil
		},
	}

	cmd.Flags().StringVar(&toFlag, "to", "", "Target format (default from the destination extension)")

	return cmd
}
