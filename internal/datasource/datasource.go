// Package datasource opens table inputs given as a local path or an
// http(s) URL.
package datasource

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"tablelinker/internal/datasource/file"
	"tablelinker/internal/datasource/httpds"
)

// Source yields the raw bytes of one input.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// IsURL reports whether loc names a remote input.
func IsURL(loc string) bool {
	l := strings.ToLower(loc)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Resolve returns the source for loc. URLs are fetched with hc, or with a
// default client when hc is nil.
func Resolve(loc string, hc *httpds.Client) Source {
	if IsURL(loc) {
		if hc == nil {
			hc = httpds.NewClient(httpds.Config{})
		}
		return hc.Source(loc)
	}
	return file.NewLocal(loc)
}

// Ext returns the lowercased extension of loc, ignoring any URL query.
func Ext(loc string) string {
	if IsURL(loc) {
		return strings.ToLower(path.Ext(httpds.BaseName(loc)))
	}
	return strings.ToLower(filepath.Ext(loc))
}
