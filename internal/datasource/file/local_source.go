// Package file reads inputs from the local filesystem.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens one file on disk.
type Local struct{ path string }

func NewLocal(path string) *Local { return &Local{path: path} }

// Open fails fast with the context error when ctx is already done. File
// errors keep their cause, so errors.Is(err, os.ErrNotExist) holds.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Path returns the file location.
func (l *Local) Path() string { return l.path }
