package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tablelinker/internal/config"
	"tablelinker/internal/pipeline"
	"tablelinker/internal/table"
)

// inputFlags are shared by every command that reads a table.
type inputFlags struct {
	encoding  string
	delimiter string
	skipLines int
	noClean   bool
	sheet     string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.encoding, "encoding", "", "input encoding (default: detect)")
	fl.StringVar(&f.delimiter, "delimiter", "", "input delimiter, e.g. ',' or tab (default: detect)")
	fl.IntVar(&f.skipLines, "skip-lines", -1, "leading lines to drop before the header (default: detect)")
	fl.BoolVar(&f.noClean, "no-clean", false, "read input as UTF-8 CSV without detection")
	fl.StringVar(&f.sheet, "sheet", "", "worksheet of an .xlsx input (default: first)")
}

func (f *inputFlags) options() (pipeline.OpenOptions, error) {
	d, err := parseDelimiter(f.delimiter)
	if err != nil {
		return pipeline.OpenOptions{}, err
	}
	opt := pipeline.OpenOptions{
		Encoding:  f.encoding,
		Delimiter: d,
		NoClean:   f.noClean,
		Sheet:     f.sheet,
	}
	if f.skipLines >= 0 {
		n := f.skipLines
		opt.SkipLines = &n
	}
	return opt, nil
}

// openInput opens loc, reading stdin for "-".
func (a *app) openInput(cmd *cobra.Command, loc string, opt pipeline.OpenOptions) (*pipeline.Table, error) {
	if loc == "-" || loc == "" {
		return a.runner.FromReader(cmd.Context(), cmd.InOrStdin(), opt)
	}
	return a.runner.Open(cmd.Context(), loc, opt)
}

// writeOutput writes t to path, or stdout for "-".
func writeOutput(cmd *cobra.Command, t *pipeline.Table, path string, opt table.CSVOptions) error {
	if path == "-" || path == "" {
		return t.Write(cmd.OutOrStdout(), false, opt)
	}
	return t.Save(path, opt)
}

// taskFlags select a task list from a file or inline JSON.
type taskFlags struct {
	file   string
	inline string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "task", "t", "", "task file (JSON object or array)")
	cmd.Flags().StringVarP(&f.inline, "json", "j", "", "inline task JSON")
}

// load returns the tasks. required reports an error when neither flag
// was given.
func (f *taskFlags) load(required bool) ([]config.Task, error) {
	switch {
	case f.file != "" && f.inline != "":
		return nil, fmt.Errorf("%w: use only one of --task and --json", errInvalid)
	case f.inline != "":
		return config.DecodeTasks(strings.NewReader(f.inline))
	case f.file != "":
		return config.LoadTasks(f.file)
	case required:
		return nil, fmt.Errorf("%w: --task or --json is required", errInvalid)
	}
	return nil, nil
}

// convertTable runs tasks over in. The caller closes both tables; with no
// tasks the input itself is returned.
func (a *app) convertTable(ctx context.Context, in *pipeline.Table, tasks []config.Task) (*pipeline.Table, error) {
	if len(tasks) == 0 {
		return in, nil
	}
	return in.Convert(ctx, tasks...)
}
