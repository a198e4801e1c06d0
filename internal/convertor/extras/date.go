package extras

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"golang.org/x/text/unicode/norm"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

const (
	fYear = iota
	fMonth
	fDay
	fHour
	fMinute
	fSecond
	numFields
)

// stamp is a date-time found in text. Fields the text did not mention
// are unset.
type stamp struct {
	v   [numFields]int
	set [numFields]bool
}

func (s *stamp) put(f int, v string) {
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	s.v[f], s.set[f] = n, true
}

// requiredBy lists the strftime directives that need each field.
var requiredBy = [numFields][]string{
	fYear:   {"%y", "%Y"},
	fMonth:  {"%b", "%B", "%m"},
	fDay:    {"%a", "%A", "%w", "%d"},
	fHour:   {"%H", "%I", "%p"},
	fMinute: {"%M"},
	fSecond: {"%S"},
}

// format renders the stamp with a strftime layout. It fails when the
// layout needs a field the text did not give, or the fields do not form a
// valid date. Without withTime the time of day is always midnight.
func (s stamp) format(layout string, withTime bool) (string, bool) {
	v := [numFields]int{1, 1, 1, 0, 0, 0}
	last := fDay
	if withTime {
		last = fSecond
	}
	for f := fYear; f <= last; f++ {
		if s.set[f] {
			v[f] = s.v[f]
			continue
		}
		for _, d := range requiredBy[f] {
			if strings.Contains(layout, d) {
				return "", false
			}
		}
	}
	if v[fYear] < 1 || v[fYear] > 9999 || v[fHour] > 23 || v[fMinute] > 59 || v[fSecond] > 59 {
		return "", false
	}
	t := time.Date(v[fYear], time.Month(v[fMonth]), v[fDay], v[fHour], v[fMinute], v[fSecond], 0, time.UTC)
	if int(t.Month()) != v[fMonth] || t.Day() != v[fDay] {
		return "", false
	}
	return strftime.Format(layout, t), true
}

var (
	eraDateRe   = regexp.MustCompile(`(` + eraNames + `)\s*(元|\d{1,2})\s*年(?:\s*(\d{1,2})\s*月(?:\s*(\d{1,2})\s*日)?)?`)
	kanjiDateRe = regexp.MustCompile(`(\d{4})\s*年(?:\s*(\d{1,2})\s*月(?:\s*(\d{1,2})\s*日)?)?`)
	isoDateRe   = regexp.MustCompile(`(\d{4})[-/.](\d{1,2})(?:[-/.](\d{1,2}))?`)
	monthDayRe  = regexp.MustCompile(`(\d{1,2})\s*月\s*(\d{1,2})\s*日`)

	clock      = `(\d{1,2})(?::(\d{2})(?::(\d{2}))?|\s*時(?:\s*(\d{1,2})\s*分(?:\s*(\d{1,2})\s*秒)?)?)`
	trailingRe = regexp.MustCompile(`^\s*(?:T\s*)?` + clock)
	clockRe    = regexp.MustCompile(clock)
)

type found struct {
	start, end int
	st         stamp
}

// extractDatetimes returns the date-times mentioned in s in order of
// appearance. Fullwidth digits and era ligatures are folded first.
func extractDatetimes(s string) []stamp {
	s = norm.NFKC.String(s)

	var dates []found
	for _, m := range eraDateRe.FindAllStringSubmatchIndex(s, -1) {
		n, ok := eraNumber(s[m[4]:m[5]])
		if !ok {
			continue
		}
		y, ok := gregorianYear(s[m[2]:m[3]], n)
		if !ok {
			continue
		}
		f := found{start: m[0], end: m[1]}
		f.st.v[fYear], f.st.set[fYear] = y, true
		f.st.put(fMonth, group(s, m, 3))
		f.st.put(fDay, group(s, m, 4))
		dates = append(dates, f)
	}
	for _, re := range []*regexp.Regexp{kanjiDateRe, isoDateRe} {
		for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
			f := found{start: m[0], end: m[1]}
			f.st.put(fYear, group(s, m, 1))
			f.st.put(fMonth, group(s, m, 2))
			f.st.put(fDay, group(s, m, 3))
			dates = append(dates, f)
		}
	}
	for _, m := range monthDayRe.FindAllStringSubmatchIndex(s, -1) {
		f := found{start: m[0], end: m[1]}
		f.st.put(fMonth, group(s, m, 1))
		f.st.put(fDay, group(s, m, 2))
		dates = append(dates, f)
	}
	dates = dropOverlaps(dates)

	for i := range dates {
		d := &dates[i]
		if m := trailingRe.FindStringSubmatchIndex(s[d.end:]); m != nil {
			putClock(&d.st, s[d.end:], m)
			d.end += m[1]
		}
	}
	all := dates
	for _, m := range clockRe.FindAllStringSubmatchIndex(s, -1) {
		f := found{start: m[0], end: m[1]}
		putClock(&f.st, s, m)
		all = append(all, f)
	}
	all = dropOverlaps(all)

	out := make([]stamp, len(all))
	for i, f := range all {
		out[i] = f.st
	}
	return out
}

func putClock(st *stamp, s string, m []int) {
	st.put(fHour, group(s, m, 1))
	if mm := group(s, m, 2); mm != "" {
		st.put(fMinute, mm)
		st.put(fSecond, group(s, m, 3))
		return
	}
	st.put(fMinute, group(s, m, 4))
	st.put(fSecond, group(s, m, 5))
}

func group(s string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}

// dropOverlaps orders matches by position and keeps, of overlapping
// ones, the one starting first (the longest on a tie).
func dropOverlaps(fs []found) []found {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].start != fs[j].start {
			return fs[i].start < fs[j].start
		}
		return fs[i].end > fs[j].end
	})
	out := fs[:0]
	end := -1
	for _, f := range fs {
		if f.start < end {
			continue
		}
		out = append(out, f)
		end = f.end
	}
	return out
}

func extractParams(layout, what string) *params.ParamSet {
	return convertor.InputOutputParams().Concat(params.NewSet(
		params.String("format", params.Default(layout), params.Label(what+"フォーマット"),
			params.Help("strftime の書式で指定します。")),
		params.String("default", params.Default(""), params.Label("デフォルト値"),
			params.Help(what+"が抽出できない場合の値。")),
	))
}

var dateExtractMeta = &convertor.Meta{
	Key:         "date_extract",
	Name:        "日付抽出",
	Description: "日付を抽出します",
	HelpText:    "時分秒は常に 0 になります。",
	Params:      extractParams("%Y-%m-%d", "日付"),
	CanApply:    convertor.SingleColumn,
}

var datetimeExtractMeta = &convertor.Meta{
	Key:         "datetime_extract",
	Name:        "日時抽出",
	Description: "日時表現を抽出します",
	Params:      extractParams("%Y-%m-%d %H:%M:%S", "日時"),
	CanApply:    convertor.SingleColumn,
}

// dateExtract writes the first date-time in the cell that the layout can
// render, or the default.
type dateExtract struct {
	*convertor.InputOutput
	withTime bool
	layout   string
	def      string
}

func newDateExtract() convertor.Convertor     { return newExtract(dateExtractMeta, false) }
func newDatetimeExtract() convertor.Convertor { return newExtract(datetimeExtractMeta, true) }

func newExtract(meta *convertor.Meta, withTime bool) *dateExtract {
	c := &dateExtract{withTime: withTime}
	c.InputOutput = convertor.NewInputOutput(meta, c.value, c.setup)
	return c
}

func (c *dateExtract) setup(ctx *convertor.Context) error {
	var err error
	if c.layout, err = ctx.String("format"); err != nil {
		return err
	}
	c.def, err = ctx.String("default")
	return err
}

func (c *dateExtract) value(record []string, _ *convertor.Context) (string, bool) {
	for _, st := range extractDatetimes(record[c.Input]) {
		if v, ok := st.format(c.layout, c.withTime); ok {
			return v, true
		}
	}
	return c.def, true
}
