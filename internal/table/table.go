// Package table provides the streaming row abstractions convertors read from
// and write to.
//
// A Source is pulled one row at a time and can be rewound; a Sink receives
// rows in order, the header first. Both are scoped resources: Open acquires
// the backing store and Close releases it.
package table

import (
	"errors"
	"io"
)

// ErrNotOpen is returned when a Source or Sink is used outside Open/Close.
var ErrNotOpen = errors.New("table: not open")

// Source is a pull-based, rewindable row iterator.
type Source interface {
	Open() error
	// Reset rewinds to the first row, the header included.
	Reset() error
	// Next returns the next row or io.EOF when exhausted.
	Next() ([]string, error)
	Close() error
}

// Sink is a push-based row appender.
type Sink interface {
	Open() error
	Append(row []string) error
	Close() error
}

// Scoped opens src and sink, runs fn, and closes both whatever fn returns.
// The first error wins.
func Scoped(src Source, sink Sink, fn func() error) (err error) {
	if err := src.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); err == nil {
			err = cerr
		}
	}()
	if err := sink.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
	}()
	return fn()
}

// ReadAll drains an already open source from its current position.
func ReadAll(src Source) ([][]string, error) {
	var rows [][]string
	for {
		row, err := src.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

// Copy opens src and sink and appends every row of src to sink.
func Copy(src Source, sink Sink) error {
	return Scoped(src, sink, func() error {
		for {
			row, err := src.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := sink.Append(row); err != nil {
				return err
			}
		}
	})
}
