package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tablelinker/internal/logging"
	"tablelinker/internal/storage"
	_ "tablelinker/internal/storage/all"
	"tablelinker/internal/table"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		in        string
		kind      string
		dsn       string
		tableName string
		batchSize int
		input     inputFlags
		tasks     taskFlags
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load a table into a database",
		Long: "export creates the destination table when missing (one text column per header name) " +
			"and bulk inserts the rows. Kinds: sqlite, postgres, mssql, mysql.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := tasks.load(false)
			if err != nil {
				return err
			}
			opt, err := input.options()
			if err != nil {
				return err
			}
			s := a.settings.Storage
			if cmd.Flags().Changed("kind") {
				s.Kind = kind
			}
			if cmd.Flags().Changed("dsn") {
				s.DSN = dsn
			}
			if cmd.Flags().Changed("batch-size") {
				s.BatchSize = batchSize
			}
			if tableName == "" {
				return fmt.Errorf("%w: --table is required", errInvalid)
			}
			if s.DSN == "" {
				return fmt.Errorf("%w: --dsn (or STORAGE_DSN) is required", errInvalid)
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

			cfg := storage.Config{Kind: s.Kind, DSN: s.DSN, Table: tableName}
			repo, err := storage.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			start := time.Now()
			sink := storage.NewSink(ctx, repo, cfg, storage.SinkOptions{BatchSize: s.BatchSize, Job: a.settings.Pipeline.Job})
			if err := table.Copy(res.Source(), sink); err != nil {
				return fmt.Errorf("export %s: %w", tableName, err)
			}
			logging.FromContext(ctx).Info("export complete",
				"kind", s.Kind, "table", tableName, "rows", sink.Exported(), "duration", time.Since(start))
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows exported to %s\n", sink.Exported(), tableName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "input", "i", "-", "input file, URL or - for stdin")
	cmd.Flags().StringVar(&kind, "kind", "", "storage kind (default STORAGE_KIND or sqlite)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "connection string (default STORAGE_DSN)")
	cmd.Flags().StringVar(&tableName, "table", "", "destination table")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per bulk insert (default STORAGE_BATCH_SIZE)")
	input.register(cmd)
	tasks.register(cmd)
	return cmd
}
