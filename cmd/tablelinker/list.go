package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tablelinker/internal/convertor"
)

func (a *app) listCmd() *cobra.Command {
	var (
		attrs   int
		verbose bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available convertors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := a.runner.Registry
			var metas []*convertor.Meta
			if attrs >= 0 {
				metas = reg.MetaList(make([]string, attrs))
			} else {
				for _, k := range reg.Keys() {
					m, _ := reg.Meta(k)
					metas = append(metas, m)
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(metas)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, m := range metas {
				if verbose {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Key, m.Name, m.Description)
				} else {
					fmt.Fprintf(tw, "%s\t%s\n", m.Key, m.Name)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&attrs, "attrs", -1, "only convertors applicable to this many selected columns")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include descriptions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print metadata as JSON")
	return cmd
}
