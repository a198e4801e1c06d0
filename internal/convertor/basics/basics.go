// Package basics holds the built-in convertors: column copy, rename,
// move, insert and delete, row selection, string and number shaping.
package basics

import (
	"math"
	"strconv"
	"strings"

	"tablelinker/internal/convertor"
)

// Factories lists every built-in convertor in registration order.
var Factories = []convertor.Factory{
	newNoop,
	newAttrCopy,
	newCalc,
	newConcatCol,
	newConcatCols,
	newConcatTitle,
	newDeleteCol,
	newDeleteCols,
	newDeleteStringMatch,
	newDeleteStringContains,
	newDeletePatternMatch,
	newDedupRows,
	newInsertCol,
	newInsertCols,
	newMappingCols,
	newMoveCol,
	newNormalizeColnames,
	newRenameCol,
	newRenameCols,
	newReorderCols,
	newRound,
	newSelectStringMatch,
	newSelectStringContains,
	newSelectPatternMatch,
	newSplitCol,
	newSplitRow,
	newToHankaku,
	newToZenkaku,
	newTruncate,
	newUpdateStringMatch,
	newUpdateStringContains,
	newUpdatePatternMatch,
}

// Register adds the built-in convertors to r. noop is registered but not
// selectable.
func Register(r *convertor.Registry) {
	for _, f := range Factories {
		r.Register(f, f().Meta().Key != "noop")
	}
}

// DefaultRegistry returns a registry holding the built-in convertors.
func DefaultRegistry() *convertor.Registry {
	r := convertor.NewRegistry()
	Register(r)
	return r
}

func noColumns(attrs []string) bool { return len(attrs) == 0 }

// formatFloat renders f the way a decimal literal is written: shortest
// representation, with ".0" for integral values.
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return ""
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// parseNumber reads a number written with optional thousands separators
// and fullwidth digits.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r == '，' || r == ',':
			return -1
		case r == '．':
			return '.'
		case r == '－' || r == '−':
			return '-'
		}
		return r
	}, s)
	return strconv.ParseFloat(s, 64)
}
