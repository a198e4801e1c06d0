package basics

import (
	"strings"

	"github.com/zeebo/xxh3"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var dedupRowsMeta = &convertor.Meta{
	Key:         "dedup_rows",
	Name:        "重複行削除",
	Description: "重複する行を削除します",
	HelpText:    "列を指定しない場合はすべての列が一致する行を重複とみなします。",
	Params: params.NewSet(
		params.InputColumns("input_col_idxs", params.Label("比較する列")),
	),
}

// dedupRows keeps the first row of each distinct key. Keys are hashed
// so memory grows with the number of distinct keys, not their size.
type dedupRows struct {
	cols []int
	seen map[xxh3.Uint128]struct{}
}

func newDedupRows() convertor.Convertor { return &dedupRows{} }

func (c *dedupRows) Meta() *convertor.Meta { return dedupRowsMeta }

func (c *dedupRows) Initial(ctx *convertor.Context) (err error) {
	c.seen = make(map[xxh3.Uint128]struct{})
	c.cols, err = ctx.Indexes("input_col_idxs")
	return err
}

func (c *dedupRows) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(headers)
}

func (c *dedupRows) ProcessRecord(record []string, ctx *convertor.Context) error {
	key := c.key(record)
	if _, dup := c.seen[key]; dup {
		return nil
	}
	c.seen[key] = struct{}{}
	return ctx.Output(record)
}

func (c *dedupRows) key(record []string) xxh3.Uint128 {
	if len(c.cols) == 0 {
		return xxh3.HashString128(strings.Join(record, "\x1f"))
	}
	parts := make([]string, len(c.cols))
	for i, idx := range c.cols {
		parts[i] = record[idx]
	}
	return xxh3.HashString128(strings.Join(parts, "\x1f"))
}
