package basics

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

func widthParams() *params.ParamSet {
	return convertor.InputOutputParams().Concat(params.NewSet(
		params.Bool("kana", params.Default(true), params.Label("カナ文字を対象に含める")),
		params.Bool("ascii", params.Default(true), params.Label("アルファベットと記号を対象に含める")),
		params.Bool("digit", params.Default(true), params.Label("数字を対象に含める")),
		params.String("ignore_chars", params.Default(""), params.Label("対象に含めない文字")),
	))
}

var toHankakuMeta = &convertor.Meta{
	Key:         "to_hankaku",
	Name:        "半角変換",
	Description: "全角文字を半角に変換します",
	Params:      widthParams(),
	CanApply:    convertor.SingleColumn,
}

var toZenkakuMeta = &convertor.Meta{
	Key:         "to_zenkaku",
	Name:        "全角変換",
	Description: "半角文字を全角に変換します",
	Params:      widthParams(),
	CanApply:    convertor.SingleColumn,
}

type charClass int

const (
	classOther charClass = iota
	classDigit
	classASCII
	classKana
)

func classify(r rune) charClass {
	switch {
	case r >= '0' && r <= '9', r >= '０' && r <= '９':
		return classDigit
	case r >= 0x21 && r <= 0x7e, r >= 0xff01 && r <= 0xff5e, r == ' ', r == '　':
		return classASCII
	case r >= 0xff61 && r <= 0xff9f, r >= 0x30a1 && r <= 0x30fc,
		r == '、', r == '。', r == '「', r == '」',
		r >= 0x3099 && r <= 0x309c:
		return classKana
	}
	return classOther
}

// widthConv converts between fullwidth and halfwidth forms per character
// class. Voiced kana are split into base and mark when narrowed and
// recombined when widened.
type widthConv struct {
	*convertor.InputOutput
	narrow  bool
	enabled map[charClass]bool
	ignore  string
}

func newToHankaku() convertor.Convertor { return newWidthConv(toHankakuMeta, true) }
func newToZenkaku() convertor.Convertor { return newWidthConv(toZenkakuMeta, false) }

func newWidthConv(meta *convertor.Meta, narrow bool) *widthConv {
	c := &widthConv{narrow: narrow}
	c.InputOutput = convertor.NewInputOutput(meta, c.value, c.setup)
	return c
}

func (c *widthConv) setup(ctx *convertor.Context) error {
	c.enabled = map[charClass]bool{}
	for name, class := range map[string]charClass{"kana": classKana, "ascii": classASCII, "digit": classDigit} {
		on, err := ctx.Bool(name)
		if err != nil {
			return err
		}
		c.enabled[class] = on
	}
	var err error
	c.ignore, err = ctx.String("ignore_chars")
	return err
}

func (c *widthConv) value(record []string, _ *convertor.Context) (string, bool) {
	if c.narrow {
		return c.toHankaku(record[c.Input]), true
	}
	return c.toZenkaku(record[c.Input]), true
}

func (c *widthConv) skip(r rune) bool {
	return !c.enabled[classify(r)] || strings.ContainsRune(c.ignore, r)
}

func (c *widthConv) toHankaku(s string) string {
	var b strings.Builder
	for _, r := range s {
		if c.skip(r) {
			b.WriteRune(r)
			continue
		}
		switch r {
		case '　':
			b.WriteByte(' ')
			continue
		case 0x3099, 0x309b:
			b.WriteRune(0xff9e)
			continue
		case 0x309a, 0x309c:
			b.WriteRune(0xff9f)
			continue
		}
		for _, d := range norm.NFD.String(string(r)) {
			switch d {
			case 0x3099:
				b.WriteRune(0xff9e)
			case 0x309a:
				b.WriteRune(0xff9f)
			default:
				b.WriteString(width.Narrow.String(string(d)))
			}
		}
	}
	return b.String()
}

func (c *widthConv) toZenkaku(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		r, n := utf8.DecodeRuneInString(s[i:])
		i += n
		if c.skip(r) {
			b.WriteRune(r)
			continue
		}
		switch r {
		case ' ':
			b.WriteRune('　')
			continue
		case 0xff9e:
			b.WriteRune(0x309b)
			continue
		case 0xff9f:
			b.WriteRune(0x309c)
			continue
		}
		wide := width.Widen.String(string(r))
		if classify(r) == classKana && i < len(s) {
			next, m := utf8.DecodeRuneInString(s[i:])
			var mark rune
			switch next {
			case 0xff9e:
				mark = 0x3099
			case 0xff9f:
				mark = 0x309a
			}
			if mark != 0 {
				if composed := norm.NFC.String(wide + string(mark)); utf8.RuneCountInString(composed) == 1 {
					b.WriteString(composed)
					i += m
					continue
				}
			}
		}
		b.WriteString(wide)
	}
	return b.String()
}
