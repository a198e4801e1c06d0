package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tablelinker/internal/datasource"
	"tablelinker/internal/datasource/httpds"
	"tablelinker/internal/logging"
	"tablelinker/internal/table"
)

func (a *app) batchCmd() *cobra.Command {
	var (
		outDir  string
		workers int
		input   inputFlags
		tasks   taskFlags
	)
	cmd := &cobra.Command{
		Use:   "batch -t task.json -o outdir input...",
		Short: "Run one task list over many tables concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := tasks.load(true)
			if err != nil {
				return err
			}
			opt, err := input.options()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", outDir, err)
			}
			if !cmd.Flags().Changed("workers") {
				workers = a.settings.Pipeline.Workers
			}
			names, err := outputNames(outDir, args)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(workers)
			for i, loc := range args {
				loc, dst := loc, names[i]
				g.Go(func() error {
					ctx := logging.WithRunID(gctx, "")
					log := logging.WithFields(ctx, "input", loc, "output", dst)
					src, err := a.runner.Open(ctx, loc, opt)
					if err != nil {
						return fmt.Errorf("%s: %w", loc, err)
					}
					defer src.Close()
					res, err := a.convertTable(ctx, src, list)
					if err != nil {
						return fmt.Errorf("%s: %w", loc, err)
					}
					defer res.Close()
					if err := res.Save(dst, table.CSVOptions{}); err != nil {
						return fmt.Errorf("%s: %w", loc, err)
					}
					log.Info("batch item complete")
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tables written to %s\n", len(args), outDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "output directory")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "tables converted at once (default from TABLELINKER_WORKERS)")
	input.register(cmd)
	tasks.register(cmd)
	return cmd
}

// outputNames maps each input to outDir/<base>.csv. Two inputs with the
// same base name are an error.
func outputNames(outDir string, inputs []string) ([]string, error) {
	seen := map[string]string{}
	out := make([]string, len(inputs))
	for i, loc := range inputs {
		base := filepath.Base(loc)
		if datasource.IsURL(loc) {
			base = httpds.BaseName(loc)
		}
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
		if prev, ok := seen[base]; ok {
			return nil, fmt.Errorf("%w: %s and %s both map to %s", errInvalid, prev, loc, base)
		}
		seen[base] = loc
		out[i] = filepath.Join(outDir, base)
	}
	return out, nil
}
