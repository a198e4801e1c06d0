package httpds

import (
	"net/url"
	"path"
	"strconv"

	"github.com/zeebo/xxh3"
)

// HashString returns a stable hex digest of s.
func HashString(s string) string {
	return strconv.FormatUint(xxh3.HashString(s), 16)
}

// BaseName returns the last path element of a URL, e.g. "data.xlsx" for
// "https://example.com/files/data.xlsx?dl=1". URLs without a usable path
// element get a hash of the whole URL.
func BaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return HashString(rawURL)
	}
	return base
}
