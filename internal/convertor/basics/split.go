package basics

import (
	"fmt"
	"regexp"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var splitColMeta = &convertor.Meta{
	Key:         "split_col",
	Name:        "列分割",
	Description: "指定した列を区切り文字で分割します",
	HelpText:    "「東京都,千葉県」の場合は、「,」になります。",
	Params: params.NewSet(
		params.InputColumn("input_col_idx", params.Required(), params.Label("入力列")),
		params.StringList("output_col_names", params.Required(), params.Label("分割後に出力する列名のリスト")),
		params.String("separator", params.Default(","), params.Label("区切り文字"),
			params.Describe("文字列を分割する区切り文字（正規表現）を指定します。")),
	),
	CanApply: convertor.SingleColumn,
}

var splitRowMeta = &convertor.Meta{
	Key:         "split_row",
	Name:        "行分割",
	Description: "指定した列を区切り文字で分割し、複数の行にします",
	Params: params.NewSet(
		params.InputColumn("input_col_idx", params.Required(), params.Label("入力列")),
		params.String("separator", params.Default(","), params.Label("区切り文字")),
	),
	CanApply: convertor.SingleColumn,
}

func compileSeparator(ctx *convertor.Context) (*regexp.Regexp, error) {
	sep, err := ctx.String("separator")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(sep)
	if err != nil {
		return nil, fmt.Errorf("param %q: %w: %v", "separator", params.ErrValue, err)
	}
	return re, nil
}

// splitCol appends one column per output name. The last column takes the
// unsplit remainder; missing pieces are empty.
type splitCol struct {
	col   int
	names []string
	sep   *regexp.Regexp
}

func newSplitCol() convertor.Convertor { return &splitCol{} }

func (c *splitCol) Meta() *convertor.Meta { return splitColMeta }

func (c *splitCol) Initial(ctx *convertor.Context) error {
	var err error
	if c.col, _, err = ctx.Index("input_col_idx"); err != nil {
		return err
	}
	if c.names, err = ctx.Strings("output_col_names"); err != nil {
		return err
	}
	c.sep, err = compileSeparator(ctx)
	return err
}

func (c *splitCol) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(append(headers, c.names...))
}

func (c *splitCol) ProcessRecord(record []string, ctx *convertor.Context) error {
	pieces := make([]string, len(c.names))
	if len(c.names) > 0 {
		copy(pieces, c.sep.Split(record[c.col], len(c.names)))
	}
	return ctx.Output(append(record, pieces...))
}

// splitRow emits one row per piece of the input column.
type splitRow struct {
	col int
	sep *regexp.Regexp
}

func newSplitRow() convertor.Convertor { return &splitRow{} }

func (c *splitRow) Meta() *convertor.Meta { return splitRowMeta }

func (c *splitRow) Initial(ctx *convertor.Context) error {
	var err error
	if c.col, _, err = ctx.Index("input_col_idx"); err != nil {
		return err
	}
	c.sep, err = compileSeparator(ctx)
	return err
}

func (c *splitRow) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(headers)
}

func (c *splitRow) ProcessRecord(record []string, ctx *convertor.Context) error {
	for _, v := range c.sep.Split(record[c.col], -1) {
		row := append([]string(nil), record...)
		row[c.col] = v
		if err := ctx.Output(row); err != nil {
			return err
		}
	}
	return nil
}
