package main

import (
	"github.com/spf13/cobra"

	"tablelinker/internal/table"
)

func (a *app) mergeCmd() *cobra.Command {
	var (
		out   string
		input inputFlags
	)
	cmd := &cobra.Command{
		Use:   "merge -o out.csv first second...",
		Short: "Append tables that share the first table's columns",
		Long: "merge appends the rows of every table to the first one. Later tables are " +
			"aligned to the first table's header by column name; a missing column is an error.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := input.options()
			if err != nil {
				return err
			}
			acc, err := a.runner.Open(cmd.Context(), args[0], opt)
			if err != nil {
				return err
			}
			defer func() { acc.Close() }()

			for _, loc := range args[1:] {
				next, err := a.runner.Open(cmd.Context(), loc, opt)
				if err != nil {
					return err
				}
				merged, err := acc.Merge(cmd.Context(), next)
				next.Close()
				if err != nil {
					return err
				}
				acc.Close()
				acc = merged
			}
			return writeOutput(cmd, acc, out, table.CSVOptions{})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file or - for stdout")
	input.register(cmd)
	return cmd
}
