package extras

import (
	"strconv"
	"time"
)

type era struct {
	name  string
	start time.Time
}

// eras lists the Japanese eras from Meiji onwards, oldest first.
var eras = []era{
	{"明治", time.Date(1868, time.January, 25, 0, 0, 0, 0, time.UTC)},
	{"大正", time.Date(1912, time.July, 30, 0, 0, 0, 0, time.UTC)},
	{"昭和", time.Date(1926, time.December, 25, 0, 0, 0, 0, time.UTC)},
	{"平成", time.Date(1989, time.January, 8, 0, 0, 0, 0, time.UTC)},
	{"令和", time.Date(2019, time.May, 1, 0, 0, 0, 0, time.UTC)},
}

const eraNames = "明治|大正|昭和|平成|令和"

// gregorianYear converts the n-th year of the named era. Years past the
// start of the following era are rejected.
func gregorianYear(name string, n int) (int, bool) {
	if n < 1 {
		return 0, false
	}
	for i, e := range eras {
		if e.name != name {
			continue
		}
		y := e.start.Year() + n - 1
		if i+1 < len(eras) && y > eras[i+1].start.Year() {
			return 0, false
		}
		return y, true
	}
	return 0, false
}

// eraYear returns the era in effect on t and the year within it.
func eraYear(t time.Time) (string, int, bool) {
	for i := len(eras) - 1; i >= 0; i-- {
		if !t.Before(eras[i].start) {
			return eras[i].name, t.Year() - eras[i].start.Year() + 1, true
		}
	}
	return "", 0, false
}

// eraNumber parses an era year, accepting 元 for the first year.
func eraNumber(s string) (int, bool) {
	if s == "元" {
		return 1, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
