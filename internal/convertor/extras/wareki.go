package extras

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

var toSeirekiMeta = &convertor.Meta{
	Key:         "to_seireki",
	Name:        "和暦西暦変換",
	Description: "和暦を西暦に変換します",
	HelpText:    "「令和5年」のような和暦の年を「2023年」に置き換えます。",
	Params:      convertor.InputOutputParams(),
	CanApply:    convertor.SingleColumn,
}

var toWarekiMeta = &convertor.Meta{
	Key:         "to_wareki",
	Name:        "西暦和暦変換",
	Description: "西暦を和暦に変換します",
	HelpText:    "月日が分かる場合はその日付の元号を、年だけの場合はその年の1月1日の元号を使います。",
	Params: convertor.InputOutputParams().Concat(params.NewSet(
		params.Bool("use_gannen", params.Default(false), params.Label("元年表記"),
			params.Describe("1年を「元年」と表記します。")),
	)),
	CanApply: convertor.SingleColumn,
}

var seirekiRe = regexp.MustCompile(`(` + eraNames + `)\s*(元|\d{1,2})\s*年?`)

// toSeireki replaces each era year in the cell with the Gregorian year.
// Years outside their era are left alone.
type toSeireki struct{ *convertor.InputOutput }

func newToSeireki() convertor.Convertor {
	c := &toSeireki{}
	c.InputOutput = convertor.NewInputOutput(toSeirekiMeta, c.value, nil)
	return c
}

func (c *toSeireki) value(record []string, _ *convertor.Context) (string, bool) {
	return seirekiRe.ReplaceAllStringFunc(record[c.Input], func(m string) string {
		sub := seirekiRe.FindStringSubmatch(m)
		n, ok := eraNumber(sub[2])
		if !ok {
			return m
		}
		y, ok := gregorianYear(sub[1], n)
		if !ok {
			return m
		}
		return strconv.Itoa(y) + "年"
	}), true
}

var warekiRe = regexp.MustCompile(`(?:西暦\s*)?([12]\d{3})(?:(年)(?:\s*(\d{1,2})\s*月(?:\s*(\d{1,2})\s*日)?)?|[-/](\d{1,2})[-/](\d{1,2}))?`)

// toWareki replaces Gregorian years and dates with their era form.
type toWareki struct {
	*convertor.InputOutput
	gannen bool
}

func newToWareki() convertor.Convertor {
	c := &toWareki{}
	c.InputOutput = convertor.NewInputOutput(toWarekiMeta, c.value, c.setup)
	return c
}

func (c *toWareki) setup(ctx *convertor.Context) (err error) {
	c.gannen, err = ctx.Bool("use_gannen")
	return err
}

func (c *toWareki) value(record []string, _ *convertor.Context) (string, bool) {
	return warekiRe.ReplaceAllStringFunc(record[c.Input], func(m string) string {
		out, ok := c.convert(warekiRe.FindStringSubmatch(m))
		if !ok {
			return m
		}
		return out
	}), true
}

func (c *toWareki) convert(sub []string) (string, bool) {
	year, _ := strconv.Atoi(sub[1])
	suffix, month, day := sub[2], sub[3], sub[4]
	if sub[5] != "" {
		suffix, month, day = "年", sub[5], sub[6]
	}

	m, d := 1, 1
	if month != "" {
		m, _ = strconv.Atoi(month)
	}
	if day != "" {
		d, _ = strconv.Atoi(day)
	}
	t := time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	name, n, ok := eraYear(t)
	if !ok {
		return "", false
	}

	var b strings.Builder
	b.WriteString(name)
	if n == 1 && c.gannen {
		b.WriteString("元")
	} else {
		b.WriteString(strconv.Itoa(n))
	}
	b.WriteString(suffix)
	if month != "" {
		b.WriteString(strconv.Itoa(m) + "月")
	}
	if day != "" {
		b.WriteString(strconv.Itoa(d) + "日")
	}
	return b.String(), true
}
