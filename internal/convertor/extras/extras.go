// Package extras holds convertors beyond the basic set: date and
// date-time extraction, Japanese era conversion and fuzzy column mapping.
package extras

import "tablelinker/internal/convertor"

// Factories lists the extra convertors in registration order.
var Factories = []convertor.Factory{
	newAutoMappingCols,
	newDateExtract,
	newDatetimeExtract,
	newToSeireki,
	newToWareki,
}

// Register adds the extra convertors to r.
func Register(r *convertor.Registry) {
	for _, f := range Factories {
		r.Register(f, true)
	}
}
