package basics

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var concatColMeta = &convertor.Meta{
	Key:         "concat_col",
	Name:        "列結合",
	Description: "指定した列を結合します",
	Params: params.NewSet(
		params.InputColumn("input_col_idx1", params.Required(), params.Label("対象列1")),
		params.InputColumn("input_col_idx2", params.Required(), params.Label("対象列2")),
		params.String("output_col_name", params.Label("新しい列名")),
		params.OutputColumn("output_col_idx", params.Label("出力する位置")),
		params.String("separator", params.Default(""), params.Label("区切り文字")),
		params.Bool("delete_col", params.Default(false), params.Label("元の列を消しますか？")),
	),
}

var concatColsMeta = &convertor.Meta{
	Key:         "concat_cols",
	Name:        "複数列結合",
	Description: "指定した複数列を結合します",
	Params: params.NewSet(
		params.InputColumns("input_col_idxs", params.Required(), params.Label("対象列")),
		params.String("output_col_name", params.Label("新しい列名")),
		params.OutputColumn("output_col_idx", params.Label("出力する位置")),
		params.String("separator", params.Default(""), params.Label("区切り文字")),
		params.Bool("delete_col", params.Default(false), params.Label("元の列を消しますか？")),
	),
}

// concat joins several input cells into one output column. An output name
// that already exists replaces that column; otherwise a column is inserted.
type concat struct {
	meta *convertor.Meta

	inputs    []int
	sep       string
	name      string
	deleteCol bool

	// drop lists the columns removed before insertion, descending.
	drop   []int
	insert int
}

func newConcatCol() convertor.Convertor  { return &concat{meta: concatColMeta} }
func newConcatCols() convertor.Convertor { return &concat{meta: concatColsMeta} }

func (c *concat) Meta() *convertor.Meta { return c.meta }

func (c *concat) Initial(ctx *convertor.Context) error {
	var err error
	if c.meta == concatColsMeta {
		if c.inputs, err = ctx.Indexes("input_col_idxs"); err != nil {
			return err
		}
	} else {
		a, _, err := ctx.Index("input_col_idx1")
		if err != nil {
			return err
		}
		b, _, err := ctx.Index("input_col_idx2")
		if err != nil {
			return err
		}
		c.inputs = []int{a, b}
	}
	if c.sep, err = ctx.String("separator"); err != nil {
		return err
	}
	if c.name, err = ctx.String("output_col_name"); err != nil {
		return err
	}
	if c.deleteCol, err = ctx.Bool("delete_col"); err != nil {
		return err
	}
	pos, hasPos, err := ctx.Index("output_col_idx")
	if err != nil {
		return err
	}

	headers := ctx.Headers()
	if c.name == "" {
		names := make([]string, len(c.inputs))
		for i, idx := range c.inputs {
			names[i] = headers[idx]
		}
		c.name = strings.Join(names, c.sep)
	}

	dropSet := map[int]bool{}
	existing := indexOf(headers, c.name)
	if existing >= 0 {
		dropSet[existing] = true
		if !hasPos {
			pos = existing
		}
	} else if !hasPos || pos > len(headers) {
		pos = len(headers)
	}
	if c.deleteCol {
		for _, idx := range c.inputs {
			dropSet[idx] = true
		}
	}
	c.drop = c.drop[:0]
	shift := 0
	for idx := range dropSet {
		c.drop = append(c.drop, idx)
		if idx < pos {
			shift++
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(c.drop)))
	c.insert = pos - shift
	return nil
}

func (c *concat) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(c.place(headers, c.name))
}

func (c *concat) ProcessRecord(record []string, ctx *convertor.Context) error {
	vals := make([]string, len(c.inputs))
	for i, idx := range c.inputs {
		vals[i] = record[idx]
	}
	return ctx.Output(c.place(record, strings.Join(vals, c.sep)))
}

func (c *concat) place(row []string, value string) []string {
	return convertor.ReorderMany(row, c.drop, c.insert, []string{value})
}

var concatTitleMeta = &convertor.Meta{
	Key:         "concat_title",
	Name:        "タイトル結合",
	Description: "指定した行数の列見出しを結合して新しいタイトルを生成します",
	HelpText:    "empty_value が空の場合、空欄の行は無視されます。",
	Params: params.NewSet(
		params.Int("lineno_from", params.Default(0), params.Label("開始行")),
		params.Int("lines", params.Default(2), params.Label("行数")),
		params.String("empty_value", params.Default(""), params.Label("空欄表示文字")),
		params.String("separator", params.Default("/"), params.Label("区切り文字")),
		params.Bool("hierarchical_heading", params.Default(false), params.Label("階層型見出し")),
	),
	CanApply: noColumns,
}

// concatTitle builds one header from a title spread over several rows.
// Rows before lineno_from are discarded; the title rows themselves are
// consumed and never emitted as records.
type concatTitle struct {
	from, lines  int
	empty, sep   string
	hierarchical bool
}

func newConcatTitle() convertor.Convertor { return &concatTitle{} }

func (c *concatTitle) Meta() *convertor.Meta { return concatTitleMeta }

func (c *concatTitle) Initial(ctx *convertor.Context) error {
	var err error
	if c.from, err = ctx.Int("lineno_from"); err != nil {
		return err
	}
	if c.lines, err = ctx.Int("lines"); err != nil {
		return err
	}
	if c.empty, err = ctx.String("empty_value"); err != nil {
		return err
	}
	if c.sep, err = ctx.String("separator"); err != nil {
		return err
	}
	c.hierarchical, err = ctx.Bool("hierarchical_heading")
	return err
}

func (c *concatTitle) ProcessHeader(headers []string, ctx *convertor.Context) error {
	var err error
	for i := 0; i < c.from; i++ {
		if headers, err = ctx.Next(); err != nil {
			return c.shortTable(err)
		}
	}
	parts := make([][]string, len(headers))
	for line := 0; line < c.lines; line++ {
		if line > 0 {
			if headers, err = ctx.Next(); err != nil {
				return c.shortTable(err)
			}
		}
		for i := range parts {
			v := ""
			if i < len(headers) {
				v = headers[i]
			}
			if v != "" && c.hierarchical && i > 0 && strings.Join(parts[i], "") == "" {
				// inherit the upper levels of the heading to the left
				prev := parts[i-1]
				if len(prev) > 0 {
					parts[i] = append([]string(nil), prev[:len(prev)-1]...)
				}
			}
			parts[i] = append(parts[i], v)
		}
	}

	out := make([]string, len(parts))
	for i, vals := range parts {
		var keep []string
		for _, v := range vals {
			if v == "" {
				v = c.empty
			}
			if v != "" {
				keep = append(keep, v)
			}
		}
		out[i] = strings.Join(keep, c.sep)
	}
	return ctx.Output(out)
}

func (c *concatTitle) shortTable(err error) error {
	if !errors.Is(err, io.EOF) {
		return err
	}
	return fmt.Errorf("title rows %d to %d run past the end of the table: %w",
		c.from, c.from+c.lines-1, io.ErrUnexpectedEOF)
}

func (c *concatTitle) ProcessRecord(record []string, ctx *convertor.Context) error {
	return ctx.Output(record)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
