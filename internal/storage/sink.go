package storage

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"tablelinker/internal/metrics"
)

// Sink exports a table into a repository. The first row is the header: it
// names the columns and creates the table when missing. Later rows are
// inserted in batches. Sink implements table.Sink.
type Sink struct {
	ctx       context.Context
	repo      Repository
	kind      string
	table     string
	batchSize int
	job       string

	columns []string
	in      chan []any
	g       *errgroup.Group
	gctx    context.Context
	total   int64
}

// SinkOptions tunes a Sink. Zero values get defaults.
type SinkOptions struct {
	BatchSize int
	Job       string
}

// NewSink returns a sink writing to cfg.Table through repo, which the
// caller keeps ownership of.
func NewSink(ctx context.Context, repo Repository, cfg Config, opt SinkOptions) *Sink {
	if opt.BatchSize <= 0 {
		opt.BatchSize = 1000
	}
	if opt.Job == "" {
		opt.Job = "tablelinker"
	}
	return &Sink{ctx: ctx, repo: repo, kind: cfg.Kind, table: cfg.Table, batchSize: opt.BatchSize, job: opt.Job}
}

func (s *Sink) Open() error {
	s.columns, s.in, s.g, s.total = nil, nil, nil, 0
	return nil
}

func (s *Sink) Append(row []string) error {
	if s.columns == nil {
		return s.start(row)
	}
	vals := make([]any, len(s.columns))
	for i := range vals {
		if i < len(row) {
			vals[i] = row[i]
		} else {
			vals[i] = ""
		}
	}
	select {
	case s.in <- vals:
		return nil
	case <-s.gctx.Done():
		if err := s.g.Wait(); err != nil {
			return err
		}
		return s.gctx.Err()
	}
}

func (s *Sink) start(header []string) error {
	s.columns = ColumnNames(header)
	if len(s.columns) == 0 {
		return errors.New("storage: empty header")
	}
	if err := EnsureTable(s.ctx, s.kind, s.repo, s.table, s.columns); err != nil {
		return err
	}

	s.in = make(chan []any, s.batchSize)
	s.g, s.gctx = errgroup.WithContext(s.ctx)
	s.g.Go(func() error {
		n, err := LoadBatches(s.gctx, s.columns, s.in, s.batchSize,
			func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
				n, err := s.repo.CopyFrom(ctx, cols, rows)
				if err == nil {
					metrics.RecordBatches(s.job, 1)
					metrics.RecordRow(s.job, "exported", n)
				}
				return n, err
			})
		s.total = n
		return err
	})
	return nil
}

// Close flushes buffered rows.
func (s *Sink) Close() error {
	if s.g == nil {
		return nil
	}
	close(s.in)
	err := s.g.Wait()
	s.g = nil
	return err
}

// Exported returns the number of rows written so far. It is final once
// Close returns.
func (s *Sink) Exported() int64 { return s.total }
