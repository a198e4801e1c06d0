package basics

import (
	"fmt"
	"math"
	"unicode/utf8"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var truncateMeta = &convertor.Meta{
	Key:         "truncate",
	Name:        "文字列切り詰め",
	Description: "文字列を指定した長さで切り詰めます",
	Params: convertor.InputOutputParams().Concat(params.NewSet(
		params.Int("length", params.Default(10), params.Label("最大文字列長")),
		params.String("ellipsis", params.Default("…"), params.Label("省略記号")),
	)),
	CanApply: convertor.SingleColumn,
}

type truncate struct {
	*convertor.InputOutput
	length   int
	ellipsis string
}

func newTruncate() convertor.Convertor {
	c := &truncate{}
	c.InputOutput = convertor.NewInputOutput(truncateMeta, c.value, c.setup)
	return c
}

func (c *truncate) setup(ctx *convertor.Context) error {
	var err error
	if c.length, err = ctx.Int("length"); err != nil {
		return err
	}
	if c.length < 1 {
		return fmt.Errorf("param %q: %w: must be at least 1", "length", params.ErrValue)
	}
	c.ellipsis, err = ctx.String("ellipsis")
	return err
}

func (c *truncate) value(record []string, _ *convertor.Context) (string, bool) {
	v := record[c.Input]
	if utf8.RuneCountInString(v) <= c.length {
		return v, true
	}
	return string([]rune(v)[:c.length]) + c.ellipsis, true
}

var roundMeta = &convertor.Meta{
	Key:         "round",
	Name:        "数値丸め",
	Description: "数値を指定した桁数に丸めます",
	Params: convertor.InputOutputParams().Concat(params.NewSet(
		params.Int("ndigits", params.Default(0), params.Label("小数部の桁数")),
	)),
	CanApply: convertor.SingleColumn,
}

// round rounds half to even. Cells that are not numbers pass through.
type round struct {
	*convertor.InputOutput
	ndigits int
}

func newRound() convertor.Convertor {
	c := &round{}
	c.InputOutput = convertor.NewInputOutput(roundMeta, c.value, c.setup)
	return c
}

func (c *round) setup(ctx *convertor.Context) error {
	var err error
	if c.ndigits, err = ctx.Int("ndigits"); err != nil {
		return err
	}
	if c.ndigits < 0 || c.ndigits > 10 {
		return fmt.Errorf("param %q: %w: must be between 0 and 10", "ndigits", params.ErrValue)
	}
	return nil
}

func (c *round) value(record []string, _ *convertor.Context) (string, bool) {
	v := record[c.Input]
	f, err := parseNumber(v)
	if err != nil {
		return v, true
	}
	p := math.Pow(10, float64(c.ndigits))
	return formatFloat(math.RoundToEven(f*p) / p), true
}
