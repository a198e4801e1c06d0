package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DDLFunc renders the statement that creates table with one text column
// per name, leaving an existing table untouched.
type DDLFunc func(table string, columns []string) string

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLFunc{}
)

// RegisterDDL installs the DDL builder for kind.
func RegisterDDL(kind string, fn DDLFunc) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates the destination table through repo when it does not
// exist yet.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, columns []string) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: no DDL registered for %q", ErrUnknownKind, kind)
	}
	if err := repo.Exec(ctx, fn(table, columns)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// ColumnNames turns a header into usable, distinct column names: blanks
// become col_<n> and repeats get a _<n> suffix.
func ColumnNames(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("col_%d", i+1)
		}
		key := strings.ToLower(name)
		if n := seen[key]; n > 0 {
			seen[key] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
			key = strings.ToLower(name)
		}
		seen[key]++
		out[i] = name
	}
	return out
}

// QuoteWith quotes each dot-separated part of name with open and close,
// doubling any close character inside.
func QuoteWith(name, open, close string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = open + strings.ReplaceAll(p, close, close+close) + close
	}
	return strings.Join(parts, ".")
}

// QuoteIdent quotes a single identifier, keeping dots inside it.
func QuoteIdent(name, open, close string) string {
	return open + strings.ReplaceAll(name, close, close+close) + close
}
