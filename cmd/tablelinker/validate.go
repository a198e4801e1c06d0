package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) validateCmd() *cobra.Command {
	var (
		header string
		in     string
		input  inputFlags
		tasks  taskFlags
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a task list without converting anything",
		Long: "validate checks the structure of a task file and the params of every task. " +
			"With --header (or --input, whose header is read) column references are resolved too.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := tasks.load(true)
			if err != nil {
				return err
			}

			var cols []string
			switch {
			case header != "" && in != "":
				return fmt.Errorf("%w: use only one of --header and --input", errInvalid)
			case header != "":
				for _, c := range strings.Split(header, ",") {
					cols = append(cols, strings.TrimSpace(c))
				}
			case in != "":
				opt, err := input.options()
				if err != nil {
					return err
				}
				t, err := a.openInput(cmd, in, opt)
				if err != nil {
					return err
				}
				cols, err = t.Header()
				t.Close()
				if err != nil {
					return err
				}
			}

			issues := a.runner.Validate(cmd.Context(), list, cols)
			w := cmd.OutOrStdout()
			for _, iss := range issues {
				fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if issues.HasErrors() {
				return fmt.Errorf("%w: task list has errors", errInvalid)
			}
			fmt.Fprintf(w, "ok: %d tasks\n", len(list))
			return nil
		},
	}
	cmd.Flags().StringVar(&header, "header", "", "comma separated column names to resolve against")
	cmd.Flags().StringVarP(&in, "input", "i", "", "read the header from this table")
	input.register(cmd)
	tasks.register(cmd)
	return cmd
}
