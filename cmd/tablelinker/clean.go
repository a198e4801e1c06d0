package main

import (
	"github.com/spf13/cobra"

	"tablelinker/internal/table"
)

func (a *app) cleanCmd() *cobra.Command {
	var (
		in, out string
		input   inputFlags
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Convert a table to UTF-8, comma-delimited CSV",
		Long: "clean detects the encoding, delimiter and leading title lines of a table " +
			"and writes it as UTF-8 CSV. Flags override each detection.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opt, err := input.options()
			if err != nil {
				return err
			}
			t, err := a.openInput(cmd, in, opt)
			if err != nil {
				return err
			}
			defer t.Close()
			return writeOutput(cmd, t, out, table.CSVOptions{})
		},
	}
	cmd.Flags().StringVarP(&in, "input", "i", "-", "input file, URL or - for stdin")
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file or - for stdout")
	input.register(cmd)
	return cmd
}
