// Package storage exports tables to SQL databases. Backends live in
// subpackages and register a Factory and a DDL builder for their kind in
// init; import storage/all to enable every built-in backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownKind is returned by New for a kind no backend registered.
var ErrUnknownKind = errors.New("storage: unknown kind")

// Config selects a backend and its destination table.
type Config struct {
	// Kind is the backend name: sqlite, postgres, mssql, mysql.
	Kind string

	// DSN is passed to the backend driver.
	DSN string

	// Table is the destination table, optionally schema qualified.
	Table string
}

// Repository is the backend contract used by the export sink.
type Repository interface {
	// Exec runs one statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// CopyFrom inserts rows aligned to columns into the configured table
	// and reports how many were written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	Close()
}

// Factory opens a repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs the factory for kind, replacing any earlier one.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a repository with the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownKind, cfg.Kind, Kinds())
	}
	if cfg.Table == "" {
		return nil, errors.New("storage: table must not be empty")
	}
	return f(ctx, cfg)
}

// Kinds lists the registered backends in name order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
