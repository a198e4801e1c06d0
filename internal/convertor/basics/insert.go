package basics

import (
	"fmt"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var insertColMeta = &convertor.Meta{
	Key:         "insert_col",
	Name:        "列追加",
	Description: "新しい列を追加します",
	HelpText:    "既存の名前が指定された場合も同じ名前の列が追加されます。",
	Params: params.NewSet(
		params.String("output_col_name", params.Required(), params.Label("出力列名")),
		params.OutputColumn("output_col_idx", params.Label("出力列の位置")),
		params.String("value", params.Default(""), params.Label("新しい値")),
	),
}

var insertColsMeta = &convertor.Meta{
	Key:         "insert_cols",
	Name:        "複数列追加",
	Description: "新しい列を複数追加します",
	Params: params.NewSet(
		params.OutputColumn("output_col_idx", params.Label("新規列を追加する位置")),
		params.StringList("output_col_names", params.Required(), params.Label("新しい列名のリスト")),
		params.StringList("values", params.Default([]string{""}), params.Label("新しい列にセットする値のリスト"),
			params.Help("値が1つの場合はすべての列に同じ値をセットします。")),
	),
}

// insertCols inserts constant columns at one position.
type insertCols struct {
	meta   *convertor.Meta
	pos    int
	names  []string
	values []string
}

func newInsertCol() convertor.Convertor  { return &insertCols{meta: insertColMeta} }
func newInsertCols() convertor.Convertor { return &insertCols{meta: insertColsMeta} }

func (c *insertCols) Meta() *convertor.Meta { return c.meta }

func (c *insertCols) Initial(ctx *convertor.Context) error {
	if c.meta == insertColMeta {
		name, err := ctx.String("output_col_name")
		if err != nil {
			return err
		}
		value, err := ctx.String("value")
		if err != nil {
			return err
		}
		c.names, c.values = []string{name}, []string{value}
	} else {
		var err error
		if c.names, err = ctx.Strings("output_col_names"); err != nil {
			return err
		}
		if c.values, err = ctx.Strings("values"); err != nil {
			return err
		}
		switch {
		case len(c.values) == 1 && len(c.names) != 1:
			v := c.values[0]
			c.values = make([]string, len(c.names))
			for i := range c.values {
				c.values[i] = v
			}
		case len(c.values) != len(c.names):
			return fmt.Errorf("convertor %q: %w: %d values for %d columns",
				c.meta.Key, params.ErrValue, len(c.values), len(c.names))
		}
	}

	pos, ok, err := ctx.Index("output_col_idx")
	if err != nil {
		return err
	}
	if n := len(ctx.Headers()); !ok || pos > n {
		pos = n
	}
	c.pos = pos
	return nil
}

func (c *insertCols) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(convertor.ReorderMany(headers, nil, c.pos, c.names))
}

func (c *insertCols) ProcessRecord(record []string, ctx *convertor.Context) error {
	return ctx.Output(convertor.ReorderMany(record, nil, c.pos, c.values))
}
