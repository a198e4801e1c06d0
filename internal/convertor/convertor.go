// Package convertor is the execution core of tablelinker: the convertor
// contract, the two reusable column-shaping bases, the execution context
// and the registry.
//
// A run goes through one fixed sequence. Process reads the header,
// resolves every column reference against it exactly once, lets the
// convertor initialize, then hands it the header and each record in turn.
// Records whose width differs from the header as read are dropped.
package convertor

import (
	"fmt"
	"io"

	"tablelinker/internal/params"
)

// Meta describes a convertor for the registry and for tooling.
type Meta struct {
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	HelpText    string           `json:"help_text,omitempty"`
	Params      *params.ParamSet `json:"-"`

	// CanApply reports whether the convertor suits a selection of columns.
	// Nil accepts any selection.
	CanApply func(attrs []string) bool `json:"-"`
}

// Applies reports whether the convertor can be offered for attrs.
func (m *Meta) Applies(attrs []string) bool {
	if m.CanApply == nil {
		return true
	}
	return m.CanApply(attrs)
}

// InputParams returns the input column reference declarations.
func (m *Meta) InputParams() []params.Param {
	var out []params.Param
	for _, p := range m.Params.All() {
		if p.Kind.IsInput() {
			out = append(out, p)
		}
	}
	return out
}

// OutputParams returns the output column reference declarations.
func (m *Meta) OutputParams() []params.Param {
	var out []params.Param
	for _, p := range m.Params.All() {
		if p.Kind.IsColumnRef() && !p.Kind.IsInput() {
			out = append(out, p)
		}
	}
	return out
}

// SingleColumn accepts exactly one selected column.
func SingleColumn(attrs []string) bool { return len(attrs) == 1 }

// Convertor is one table transformation. Instances hold per-run state and
// are created fresh for every run by a Factory.
type Convertor interface {
	Meta() *Meta
	// ProcessHeader receives a copy of the resolved header and must emit
	// the new header through ctx.Output.
	ProcessHeader(headers []string, ctx *Context) error
	// ProcessRecord receives one record of the original width and emits
	// zero or more rows.
	ProcessRecord(record []string, ctx *Context) error
}

// Initializer is implemented by convertors that read their parameters
// after column references are resolved and before the header is processed.
type Initializer interface {
	Initial(ctx *Context) error
}

// Base passes the header and records through unchanged.
type Base struct{}

func (Base) ProcessHeader(headers []string, ctx *Context) error { return ctx.Output(headers) }
func (Base) ProcessRecord(record []string, ctx *Context) error  { return ctx.Output(record) }

// Process runs conv over the rows of an open context.
func Process(conv Convertor, ctx *Context) error {
	headers, err := ctx.Next()
	if err == io.EOF {
		return fmt.Errorf("convertor %q: input has no header row", ctx.meta.Key)
	}
	if err != nil {
		return err
	}
	width := len(headers)
	ctx.SetData(DataNumOfColumns, width)

	headers, err = ctx.resolveColumns(headers)
	if err != nil {
		return err
	}
	ctx.SetData(DataHeaders, headers)

	if in, ok := conv.(Initializer); ok {
		if err := in.Initial(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Reset(); err != nil {
		return err
	}
	if _, err := ctx.Next(); err != nil {
		return err
	}
	ctx.stats.Read = 1

	if err := conv.ProcessHeader(append([]string(nil), headers...), ctx); err != nil {
		return err
	}
	return ctx.Read(func(record []string) error {
		if len(record) != width {
			ctx.drop(record, width)
			return nil
		}
		return conv.ProcessRecord(record, ctx)
	})
}

// Reorder returns a copy of orig with the element at del removed (del < 0
// removes nothing) and value inserted at insert. insert is taken before
// the removal and shifted down when it lies after the removed slot.
func Reorder(orig []string, del, insert int, value string) []string {
	out := make([]string, 0, len(orig)+1)
	out = append(out, orig...)
	if del >= 0 && del < len(out) {
		out = append(out[:del], out[del+1:]...)
		if del < insert {
			insert--
		}
	}
	if insert > len(out) {
		insert = len(out)
	}
	if insert < 0 {
		insert = 0
	}
	out = append(out, "")
	copy(out[insert+1:], out[insert:])
	out[insert] = value
	return out
}

// ReorderMany removes the slots in dels one after another, each index
// taken against the list as left by the previous removals (negative
// entries are skipped), then inserts values at insert.
func ReorderMany(orig []string, dels []int, insert int, values []string) []string {
	out := append([]string(nil), orig...)
	for _, d := range dels {
		if d < 0 || d >= len(out) {
			continue
		}
		out = append(out[:d], out[d+1:]...)
	}
	if insert > len(out) {
		insert = len(out)
	}
	if insert < 0 {
		insert = 0
	}
	res := make([]string, 0, len(out)+len(values))
	res = append(res, out[:insert]...)
	res = append(res, values...)
	res = append(res, out[insert:]...)
	return res
}
