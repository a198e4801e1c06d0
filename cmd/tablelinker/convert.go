package main

import (
	"github.com/spf13/cobra"

	"tablelinker/internal/logging"
	"tablelinker/internal/table"
)

func (a *app) convertCmd() *cobra.Command {
	var (
		in, out      string
		outDelimiter string
		input        inputFlags
		tasks        taskFlags
	)
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Run a task list over one table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := tasks.load(true)
			if err != nil {
				return err
			}
			opt, err := input.options()
			if err != nil {
				return err
			}
			od, err := parseDelimiter(outDelimiter)
			if err != nil {
				return err
			}

			ctx := logging.WithRunID(cmd.Context(), "")
			cmd.SetContext(ctx)
			src, err := a.openInput(cmd, in, opt)
			if err != nil {
				return err
			}
			defer src.Close()

			res, err := a.convertTable(ctx, src, list)
			if err != nil {
				return err
			}
			defer res.Close()

			if err := writeOutput(cmd, res, out, table.CSVOptions{Comma: od}); err != nil {
				return err
			}
			logging.FromContext(ctx).Info("convert complete", "input", in, "output", out, "steps", len(list))
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "input", "i", "-", "input file, URL or - for stdin")
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file (.csv, .tsv, .xlsx) or - for stdout")
	cmd.Flags().StringVar(&outDelimiter, "out-delimiter", "", "output delimiter (default ',')")
	input.register(cmd)
	tasks.register(cmd)
	return cmd
}
