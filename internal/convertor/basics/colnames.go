package basics

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var normalizeColnamesMeta = &convertor.Meta{
	Key:         "normalize_colnames",
	Name:        "列名正規化",
	Description: "列名を小文字・アンダースコア区切りの識別子に揃えます",
	HelpText:    "重複する列名には _2, _3 のような番号を付けます。",
	Params:      params.NewSet(),
	CanApply:    noColumns,
}

type normalizeColnames struct{ convertor.Base }

func newNormalizeColnames() convertor.Convertor { return normalizeColnames{} }

func (normalizeColnames) Meta() *convertor.Meta { return normalizeColnamesMeta }

func (normalizeColnames) ProcessHeader(headers []string, ctx *convertor.Context) error {
	used := make(map[string]bool, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		name := normalizeColname(h)
		if used[name] {
			for n := 2; ; n++ {
				if cand := name + "_" + strconv.Itoa(n); !used[cand] {
					name = cand
					break
				}
			}
		}
		used[name] = true
		out[i] = name
	}
	return ctx.Output(out)
}

// normalizeColname converts header text into an identifier:
//  1. lowercase, fullwidth forms folded
//  2. strip accents (NFD, remove Mn, NFC)
//  3. keep letters, digits and '_'; space, dash and dot become '_'
//  4. fall back to "col" if empty
func normalizeColname(s string) string {
	s = strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	folded, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || unicode.IsSpace(r) || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}
