package basics

import (
	"fmt"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var mappingColsMeta = &convertor.Meta{
	Key:         "mapping_cols",
	Name:        "列のマッピング",
	Description: "列を指定した順番に並べ替えます",
	HelpText:    "元の列に null を指定すると空欄の列になります。",
	Params: params.NewSet(
		params.Dict("column_map", params.Required(), params.Label("カラムマップ"),
			params.Describe("マッピング先のカラムをキー、元のカラムを値とする辞書")),
	),
	CanApply: noColumns,
}

// mappingCols rebuilds the table from an ordered map of output name to
// source column. A null source yields an empty column.
type mappingCols struct {
	// sources holds the source index per output column, -1 for empty.
	sources []int
	names   []string
}

func newMappingCols() convertor.Convertor { return &mappingCols{} }

func (c *mappingCols) Meta() *convertor.Meta { return mappingColsMeta }

func (c *mappingCols) Initial(ctx *convertor.Context) error {
	m, err := ctx.Dict("column_map")
	if err != nil {
		return err
	}
	headers := ctx.Headers()
	c.names, c.sources = nil, nil
	for i, kv := range m.Pairs {
		idx, err := sourceIndex(kv.Value, headers)
		if err != nil {
			return &params.ColumnError{
				Param:    "column_map",
				Value:    fmt.Sprintf("%s: %v", kv.Key, kv.Value),
				Position: i + 1,
				Headers:  headers,
			}
		}
		c.names = append(c.names, kv.Key)
		c.sources = append(c.sources, idx)
	}
	return nil
}

func sourceIndex(v any, headers []string) (int, error) {
	switch s := v.(type) {
	case nil:
		return -1, nil
	case string:
		if i := indexOf(headers, s); i >= 0 {
			return i, nil
		}
	case float64:
		if i := int(s); float64(i) == s && i >= 0 && i < len(headers) {
			return i, nil
		}
	case int:
		if s >= 0 && s < len(headers) {
			return s, nil
		}
	}
	return 0, params.ErrUnknownColumn
}

func (c *mappingCols) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(append([]string(nil), c.names...))
}

func (c *mappingCols) ProcessRecord(record []string, ctx *convertor.Context) error {
	out := make([]string, len(c.sources))
	for i, idx := range c.sources {
		if idx >= 0 {
			out[i] = record[idx]
		}
	}
	return ctx.Output(out)
}

var moveColMeta = &convertor.Meta{
	Key:         "move_col",
	Name:        "列移動",
	Description: "指定した列を移動します",
	Params: params.NewSet(
		params.InputColumn("input_col_idx", params.Required(), params.Label("移動する列")),
		params.OutputColumn("output_col_idx", params.Label("移動する列の移動先の位置")),
	),
	CanApply: convertor.SingleColumn,
}

// moveCol moves one column; without a destination it goes to the end.
type moveCol struct {
	from, to int
}

func newMoveCol() convertor.Convertor { return &moveCol{} }

func (c *moveCol) Meta() *convertor.Meta { return moveColMeta }

func (c *moveCol) Initial(ctx *convertor.Context) error {
	var (
		ok  bool
		err error
	)
	if c.from, _, err = ctx.Index("input_col_idx"); err != nil {
		return err
	}
	if c.to, ok, err = ctx.Index("output_col_idx"); err != nil {
		return err
	}
	if n := len(ctx.Headers()); !ok || c.to > n {
		c.to = n
	}
	return nil
}

func (c *moveCol) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(convertor.Reorder(headers, c.from, c.to, headers[c.from]))
}

func (c *moveCol) ProcessRecord(record []string, ctx *convertor.Context) error {
	return ctx.Output(convertor.Reorder(record, c.from, c.to, record[c.from]))
}

var renameColMeta = &convertor.Meta{
	Key:         "rename_col",
	Name:        "列名変更",
	Description: "列名を変更します",
	Params: params.NewSet(
		params.InputColumn("input_attr_idx", params.Required(), params.Label("入力列"),
			params.Describe("処理をする対象の列")),
		params.String("new_col_name", params.Required(), params.Label("新しい列名")),
	),
	CanApply: convertor.SingleColumn,
}

type renameCol struct{ convertor.Base }

func newRenameCol() convertor.Convertor { return renameCol{} }

func (renameCol) Meta() *convertor.Meta { return renameColMeta }

func (renameCol) ProcessHeader(headers []string, ctx *convertor.Context) error {
	idx, _, err := ctx.Index("input_attr_idx")
	if err != nil {
		return err
	}
	name, err := ctx.String("new_col_name")
	if err != nil {
		return err
	}
	headers[idx] = name
	return ctx.Output(headers)
}

var renameColsMeta = &convertor.Meta{
	Key:         "rename_cols",
	Name:        "列名一括変更",
	Description: "すべての列名を変更します",
	Params: params.NewSet(
		params.StringList("column_list", params.Required(), params.Label("カラム名リスト"),
			params.Describe("変更後のカラム名のリスト")),
	),
	CanApply: noColumns,
}

type renameCols struct{ convertor.Base }

func newRenameCols() convertor.Convertor { return renameCols{} }

func (renameCols) Meta() *convertor.Meta { return renameColsMeta }

func (renameCols) ProcessHeader(headers []string, ctx *convertor.Context) error {
	names, err := ctx.Strings("column_list")
	if err != nil {
		return err
	}
	if len(names) != len(headers) {
		return fmt.Errorf("convertor %q: %w: %d names for %d columns",
			renameColsMeta.Key, params.ErrValue, len(names), len(headers))
	}
	return ctx.Output(append([]string(nil), names...))
}

var reorderColsMeta = &convertor.Meta{
	Key:         "reorder_cols",
	Name:        "列並べ替え",
	Description: "列を指定した順番に並べ替えます",
	HelpText:    "指定されなかった列は削除されます。",
	Params: params.NewSet(
		params.InputColumns("column_list", params.Required(), params.Label("カラムリスト"),
			params.Describe("並べ替えた後のカラムのリスト")),
	),
	CanApply: noColumns,
}

// reorderCols selects and orders columns. Unknown names fail during header
// resolution, listing the valid ones.
type reorderCols struct{ idx []int }

func newReorderCols() convertor.Convertor { return &reorderCols{} }

func (c *reorderCols) Meta() *convertor.Meta { return reorderColsMeta }

func (c *reorderCols) Initial(ctx *convertor.Context) (err error) {
	c.idx, err = ctx.Indexes("column_list")
	return err
}

func (c *reorderCols) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(c.pick(headers))
}

func (c *reorderCols) ProcessRecord(record []string, ctx *convertor.Context) error {
	return ctx.Output(c.pick(record))
}

func (c *reorderCols) pick(row []string) []string {
	out := make([]string, len(c.idx))
	for i, idx := range c.idx {
		out[i] = row[idx]
	}
	return out
}
