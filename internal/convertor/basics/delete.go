package basics

import (
	"sort"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var deleteColMeta = &convertor.Meta{
	Key:         "delete_col",
	Name:        "列削除",
	Description: "指定した列を削除します",
	Params: params.NewSet(
		params.InputColumn("input_col_idx", params.Required(), params.Label("削除する列")),
	),
	CanApply: convertor.SingleColumn,
}

var deleteColsMeta = &convertor.Meta{
	Key:         "delete_cols",
	Name:        "複数列削除",
	Description: "指定した複数の列を削除します",
	Params: params.NewSet(
		params.InputColumns("input_col_idxs", params.Required(), params.Label("削除する列")),
	),
}

// deleteCols removes columns from the header and every record.
type deleteCols struct {
	meta *convertor.Meta
	// idx is sorted descending and free of duplicates.
	idx []int
}

func newDeleteCol() convertor.Convertor  { return &deleteCols{meta: deleteColMeta} }
func newDeleteCols() convertor.Convertor { return &deleteCols{meta: deleteColsMeta} }

func (c *deleteCols) Meta() *convertor.Meta { return c.meta }

func (c *deleteCols) Initial(ctx *convertor.Context) error {
	var idx []int
	if c.meta == deleteColMeta {
		i, _, err := ctx.Index("input_col_idx")
		if err != nil {
			return err
		}
		idx = []int{i}
	} else {
		var err error
		if idx, err = ctx.Indexes("input_col_idxs"); err != nil {
			return err
		}
	}
	seen := map[int]bool{}
	c.idx = c.idx[:0]
	for _, i := range idx {
		if !seen[i] {
			seen[i] = true
			c.idx = append(c.idx, i)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(c.idx)))
	return nil
}

func (c *deleteCols) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(c.remove(headers))
}

func (c *deleteCols) ProcessRecord(record []string, ctx *convertor.Context) error {
	return ctx.Output(c.remove(record))
}

func (c *deleteCols) remove(row []string) []string {
	for _, i := range c.idx {
		row = append(row[:i], row[i+1:]...)
	}
	return row
}
