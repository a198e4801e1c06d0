package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// CopyFn inserts one batch of rows aligned to columns and reports how many
// were written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains in, calling copyFn for every batchSize rows and once
// more for the remainder when in is closed. It returns the rows reported
// by copyFn and the first error.
func LoadBatches(ctx context.Context, columns []string, in <-chan []any, batchSize int, copyFn CopyFn) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("storage: batch size must be > 0")
	}
	if copyFn == nil {
		return 0, errors.New("storage: nil copy function")
	}

	var (
		total   int64
		batches int
		batch   = make([][]any, 0, batchSize)
		start   = time.Now()
		last    = start
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			slog.Error("batch insert failed", "batch", batches+1, "inserted", n, "total", total, "err", err)
			return err
		}
		batches++
		now := time.Now()
		rps := 0.0
		if d := now.Sub(last); d > 0 {
			rps = float64(n) / d.Seconds()
		}
		slog.Debug("batch inserted",
			"batch", batches,
			"rows", n,
			"total", total,
			"rows_per_sec", int64(rps),
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		last = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return total, flush()
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
