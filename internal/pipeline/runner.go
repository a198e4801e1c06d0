// Package pipeline runs task lists over tables. Each task is one
// convertor step; steps run in order and the output of one step is the
// input of the next.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tablelinker/internal/config"
	"tablelinker/internal/convertor"
	"tablelinker/internal/convertor/basics"
	"tablelinker/internal/convertor/extras"
	"tablelinker/internal/logging"
	"tablelinker/internal/metrics"
	"tablelinker/internal/params"
	"tablelinker/internal/table"
)

// DefaultRegistry returns a registry holding every built-in convertor.
func DefaultRegistry() *convertor.Registry {
	r := basics.DefaultRegistry()
	extras.Register(r)
	return r
}

// Runner executes tasks. The zero value is usable: it runs the built-in
// convertors, writes intermediates to os.TempDir() and labels metrics
// with job "tablelinker".
type Runner struct {
	Registry *convertor.Registry

	// TempDir holds per-step files. Empty means os.TempDir().
	TempDir string

	// Job labels metrics.
	Job string

	// Logger overrides the context logger.
	Logger *slog.Logger
}

func (r *Runner) registry() *convertor.Registry {
	if r.Registry == nil {
		r.Registry = DefaultRegistry()
	}
	return r.Registry
}

func (r *Runner) job() string {
	if r.Job == "" {
		return "tablelinker"
	}
	return r.Job
}

func (r *Runner) logger(ctx context.Context) *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logging.FromContext(ctx)
}

func (r *Runner) tempDir() string {
	if r.TempDir == "" {
		return os.TempDir()
	}
	return r.TempDir
}

// tempPath returns a fresh file name for an intermediate table.
func (r *Runner) tempPath() string {
	return filepath.Join(r.tempDir(), "tablelinker-"+uuid.NewString()+".csv")
}

// RunStep runs one task from src into sink. Configuration errors are
// returned before any row is read.
func (r *Runner) RunStep(ctx context.Context, task config.Task, src table.Source, sink table.Sink) (convertor.Stats, error) {
	start := time.Now()
	stats, err := r.runStep(ctx, task, src, sink)
	metrics.RecordStep(r.job(), task.Convertor, err, time.Since(start))
	metrics.RecordRow(r.job(), "read", int64(stats.Read))
	metrics.RecordRow(r.job(), "emitted", int64(stats.Emitted))
	metrics.RecordRow(r.job(), "dropped", int64(stats.Dropped))
	if err != nil {
		return stats, err
	}
	r.logger(ctx).Info("step complete",
		"convertor", task.Convertor,
		"read", stats.Read,
		"emitted", stats.Emitted,
		"dropped", stats.Dropped,
		"duration", time.Since(start),
	)
	return stats, nil
}

func (r *Runner) runStep(ctx context.Context, task config.Task, src table.Source, sink table.Sink) (convertor.Stats, error) {
	if err := config.ValidateTask("task", task).Err(); err != nil {
		return convertor.Stats{}, err
	}
	conv, err := r.registry().New(task.Convertor)
	if err != nil {
		return convertor.Stats{}, err
	}
	cctx, err := convertor.NewContext(conv, task.Params, &ctxSource{ctx: ctx, Source: src}, sink,
		convertor.WithLogger(r.logger(ctx)))
	if err != nil {
		return convertor.Stats{}, err
	}
	if err := cctx.Open(); err != nil {
		return cctx.Stats(), err
	}
	err = convertor.Process(conv, cctx)
	if cerr := cctx.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return cctx.Stats(), fmt.Errorf("%s: %w", task.Convertor, err)
	}
	return cctx.Stats(), nil
}

// RunRows chains tasks in memory.
func (r *Runner) RunRows(ctx context.Context, tasks []config.Task, rows [][]string) ([][]string, error) {
	for _, t := range tasks {
		sink := table.NewMemorySink()
		if _, err := r.RunStep(ctx, t, table.NewMemorySource(rows), sink); err != nil {
			return nil, err
		}
		rows = sink.Rows()
	}
	return rows, nil
}

// RunFile runs tasks over the CSV file in and writes the result to out.
// Every step writes its own file, which feeds the next step and is removed
// once consumed. A failing step leaves no partial output behind. opt
// applies to reading in; intermediate and final files use commas.
func (r *Runner) RunFile(ctx context.Context, tasks []config.Task, in, out string, opt table.CSVOptions) error {
	if len(tasks) == 0 {
		return table.Copy(table.NewCSVSource(in, opt), table.NewCSVSink(out, table.CSVOptions{}))
	}

	cur, curOpt, owned := in, opt, false
	for _, t := range tasks {
		next := r.tempPath()
		_, err := r.RunStep(ctx, t, table.NewCSVSource(cur, curOpt), table.NewCSVSink(next, table.CSVOptions{}))
		if owned {
			os.Remove(cur)
		}
		if err != nil {
			os.Remove(next)
			return err
		}
		cur, curOpt, owned = next, table.CSVOptions{LazyQuotes: true}, true
	}
	if err := moveFile(cur, out); err != nil {
		os.Remove(cur)
		return err
	}
	return nil
}

// moveFile renames src to dst, copying when they are on different
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}

// ctxSource stops a step once ctx is done.
type ctxSource struct {
	ctx context.Context
	table.Source
}

func (s *ctxSource) Next() ([]string, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	return s.Source.Next()
}

// IsConfigError reports whether err stems from the task rather than from
// the data or I/O.
func IsConfigError(err error) bool {
	for _, target := range []error{
		convertor.ErrUnknownConvertor,
		config.ErrInvalidTask,
		params.ErrMissingParam,
		params.ErrUnknownColumn,
		params.ErrType,
		params.ErrValue,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
