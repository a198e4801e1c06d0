package basics

import (
	"strconv"
	"strings"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var calcOperators = []params.EnumValue{
	{Value: "+", Label: "和"},
	{Value: "-", Label: "差"},
	{Value: "*", Label: "積"},
	{Value: "/", Label: "商"},
}

var calcMeta = &convertor.Meta{
	Key:         "calc",
	Name:        "列演算",
	Description: "２つの列を四則演算します。",
	Params: params.NewSet(
		params.InputColumn("input_col_idx1", params.Required(), params.Label("対象列1")),
		params.InputColumn("input_col_idx2", params.Required(), params.Label("対象列2")),
		params.String("output_col_name", params.Label("新しい列名")),
		params.Enum("operator", calcOperators, params.Default("+"), params.Label("演算子")),
		params.Bool("delete_col", params.Default(false), params.Label("元の列を消しますか？")),
		params.Bool("overwrite", params.Default(false), params.Label("上書き")),
	),
}

// calc applies integer arithmetic to two columns and appends the result.
// Division yields a decimal. Cells that are not integers, and division by
// zero, give an empty result.
type calc struct {
	a, b      int
	op        string
	name      string
	deleteCol bool
	overwrite bool

	// dest is the existing column the result replaces, -1 to append.
	dest int
}

func newCalc() convertor.Convertor { return &calc{} }

func (c *calc) Meta() *convertor.Meta { return calcMeta }

func (c *calc) Initial(ctx *convertor.Context) error {
	var err error
	if c.a, _, err = ctx.Index("input_col_idx1"); err != nil {
		return err
	}
	if c.b, _, err = ctx.Index("input_col_idx2"); err != nil {
		return err
	}
	if c.op, err = ctx.String("operator"); err != nil {
		return err
	}
	if c.name, err = ctx.String("output_col_name"); err != nil {
		return err
	}
	if c.deleteCol, err = ctx.Bool("delete_col"); err != nil {
		return err
	}
	if c.overwrite, err = ctx.Bool("overwrite"); err != nil {
		return err
	}
	headers := ctx.Headers()
	if c.name == "" {
		c.name = headers[c.a] + c.op + headers[c.b]
	}
	c.dest = -1
	for i, h := range headers {
		if h == c.name {
			c.dest = i
			break
		}
	}
	return nil
}

func (c *calc) ProcessHeader(headers []string, ctx *convertor.Context) error {
	if c.dest < 0 {
		headers = append(headers, c.name)
	}
	return ctx.Output(c.dropInputs(headers))
}

func (c *calc) ProcessRecord(record []string, ctx *convertor.Context) error {
	if c.dest < 0 {
		record = append(record, c.compute(record))
	} else if c.overwrite || record[c.dest] == "" {
		record[c.dest] = c.compute(record)
	}
	return ctx.Output(c.dropInputs(record))
}

func (c *calc) compute(record []string) string {
	x, err := strconv.Atoi(strings.TrimSpace(record[c.a]))
	if err != nil {
		return ""
	}
	y, err := strconv.Atoi(strings.TrimSpace(record[c.b]))
	if err != nil {
		return ""
	}
	switch c.op {
	case "-":
		return strconv.Itoa(x - y)
	case "*":
		return strconv.Itoa(x * y)
	case "/":
		if y == 0 {
			return ""
		}
		return formatFloat(float64(x) / float64(y))
	}
	return strconv.Itoa(x + y)
}

// dropInputs removes the operand columns, higher index first. A result
// column that replaced an operand is kept.
func (c *calc) dropInputs(row []string) []string {
	if !c.deleteCol {
		return row
	}
	idx := []int{c.a, c.b}
	if c.b > c.a {
		idx = []int{c.b, c.a}
	}
	for i, d := range idx {
		if i == 1 && d == idx[0] {
			break
		}
		if d == c.dest {
			continue
		}
		row = append(row[:d], row[d+1:]...)
	}
	return row
}
