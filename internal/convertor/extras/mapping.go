package extras

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var autoMappingColsMeta = &convertor.Meta{
	Key:         "auto_mapping_cols",
	Name:        "自動カラムマッピング",
	Description: "カラムを指定したリストに自動マッピングします",
	HelpText: "表記の類似度が threshold に満たない列は空欄になります。" +
		"keep_colname を指定すると列名を「<マッピング先の列名> / <元の列名>」にします。",
	Params: params.NewSet(
		params.StringList("column_list", params.Required(), params.Label("カラムリスト"),
			params.Describe("マッピング先のカラムリスト")),
		params.Bool("keep_colname", params.Default(false), params.Label("元カラム名を保持")),
		params.Int("threshold", params.Default(40), params.Label("しきい値"),
			params.Describe("カラムが一致すると判定するしきい値(0-100)")),
	),
	CanApply: func(attrs []string) bool { return len(attrs) == 0 },
}

// autoMappingCols rebuilds the table with the target columns, filling
// each from the most similar source column. Each source column is used at
// most once.
type autoMappingCols struct {
	targets []string
	keep    bool
	thresh  int
	// sources holds the source index per target, -1 for none.
	sources []int
}

func newAutoMappingCols() convertor.Convertor { return &autoMappingCols{} }

func (c *autoMappingCols) Meta() *convertor.Meta { return autoMappingColsMeta }

func (c *autoMappingCols) Initial(ctx *convertor.Context) error {
	var err error
	if c.targets, err = ctx.Strings("column_list"); err != nil {
		return err
	}
	if c.keep, err = ctx.Bool("keep_colname"); err != nil {
		return err
	}
	if c.thresh, err = ctx.Int("threshold"); err != nil {
		return err
	}
	if c.thresh < 0 || c.thresh > 100 {
		return fmt.Errorf("param %q: %w: must be between 0 and 100", "threshold", params.ErrValue)
	}
	return nil
}

func (c *autoMappingCols) ProcessHeader(headers []string, ctx *convertor.Context) error {
	c.sources = matchColumns(c.targets, headers, float64(c.thresh)/100)
	out := make([]string, len(c.targets))
	for i, t := range c.targets {
		out[i] = t
		j := c.sources[i]
		if j < 0 {
			continue
		}
		ctx.Logger().Debug("column mapped", "target", t, "source", headers[j])
		if c.keep && headers[j] != t {
			out[i] = t + " / " + headers[j]
		}
	}
	return ctx.Output(out)
}

func (c *autoMappingCols) ProcessRecord(record []string, ctx *convertor.Context) error {
	out := make([]string, len(c.sources))
	for i, j := range c.sources {
		if j >= 0 {
			out[i] = record[j]
		}
	}
	return ctx.Output(out)
}

// matchColumns pairs targets with headers greedily by descending
// similarity. Pairs scoring below floor are left unmapped.
func matchColumns(targets, headers []string, floor float64) []int {
	type pair struct {
		t, h  int
		score float64
	}
	var pairs []pair
	for i, t := range targets {
		for j, h := range headers {
			if s := similarity(t, h); s > 0 && s >= floor {
				pairs = append(pairs, pair{i, j, s})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].score > pairs[b].score })

	out := make([]int, len(targets))
	for i := range out {
		out[i] = -1
	}
	used := make([]bool, len(headers))
	for _, p := range pairs {
		if out[p.t] >= 0 || used[p.h] {
			continue
		}
		out[p.t] = p.h
		used[p.h] = true
	}
	return out
}

// similarity scores two column labels between 0 and 1. A label contained
// in the other scores at least 0.5; otherwise it is the Dice coefficient
// of their character bigrams.
func similarity(a, b string) float64 {
	a, b = foldLabel(a), foldLabel(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		short, long := len(ra), len(rb)
		if short > long {
			short, long = long, short
		}
		return 0.5 + 0.5*float64(short)/float64(long)
	}
	ga, gb := bigrams(ra), bigrams(rb)
	common := 0
	for g := range ga {
		if gb[g] {
			common++
		}
	}
	return 2 * float64(common) / float64(len(ga)+len(gb))
}

func foldLabel(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
}

func bigrams(rs []rune) map[string]bool {
	out := map[string]bool{}
	if len(rs) == 1 {
		out[string(rs)] = true
		return out
	}
	for i := 0; i+1 < len(rs); i++ {
		out[string(rs[i:i+2])] = true
	}
	return out
}
