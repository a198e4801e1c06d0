// Package params declares the typed parameters a convertor accepts and
// resolves raw task values into the values a convertor works with.
//
// Column references are the special case. Their raw value is either a
// 0-based column index or a column name, and names are only meaningful
// against the header of the table at the step where the convertor runs.
// They are resolved once, by kind, when that header is read.
package params

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"tablelinker/internal/config"
)

var (
	// ErrType is wrapped when a raw value has the wrong JSON type.
	ErrType = errors.New("wrong parameter type")
	// ErrValue is wrapped when a raw value has the right type but is not acceptable.
	ErrValue = errors.New("invalid parameter value")
	// ErrMissingParam is wrapped when a required parameter was not supplied.
	ErrMissingParam = errors.New("missing required parameter")
	// ErrUnknownColumn is wrapped when an input column reference does not resolve.
	ErrUnknownColumn = errors.New("unknown column")
)

// Kind tags how a parameter takes part in header resolution.
type Kind int

const (
	// Scalar values are coerced but never resolved against the header.
	Scalar Kind = iota
	// InputColumnRef must name or index an existing column.
	InputColumnRef
	// OutputColumnRef names an existing column or a new trailing one.
	OutputColumnRef
	// InputColumnRefList is a list of InputColumnRef values.
	InputColumnRefList
	// OutputColumnRefList is a list of OutputColumnRef values; new names are
	// appended to the header as they resolve.
	OutputColumnRefList
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case InputColumnRef:
		return "input-column"
	case OutputColumnRef:
		return "output-column"
	case InputColumnRefList:
		return "input-column-list"
	case OutputColumnRefList:
		return "output-column-list"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsColumnRef reports whether the kind is resolved against the header.
func (k Kind) IsColumnRef() bool { return k != Scalar }

// IsInput reports whether the kind refers to existing input columns.
func (k Kind) IsInput() bool { return k == InputColumnRef || k == InputColumnRefList }

// IsList reports whether the kind holds several references.
func (k Kind) IsList() bool { return k == InputColumnRefList || k == OutputColumnRefList }

// Type is the value type of a parameter.
type Type string

const (
	TypeString     Type = "string"
	TypeInt        Type = "int"
	TypeBool       Type = "bool"
	TypeEnum       Type = "enum"
	TypeStringList Type = "string_list"
	TypeDict       Type = "dict"
	TypeColumn     Type = "column"
	TypeColumnList Type = "column_list"
)

// EnumValue is one member of an enum parameter with its display label.
type EnumValue struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// Param is a single parameter declaration.
type Param struct {
	Name        string      `json:"name"`
	Kind        Kind        `json:"-"`
	Type        Type        `json:"type"`
	Label       string      `json:"label,omitempty"`
	Description string      `json:"description,omitempty"`
	HelpText    string      `json:"help_text,omitempty"`
	Required    bool        `json:"required"`
	Default     any         `json:"default,omitempty"`
	Enum        []EnumValue `json:"enum,omitempty"`
}

// Option customizes a declaration built by one of the constructors.
type Option func(*Param)

// Required marks the parameter as mandatory.
func Required() Option { return func(p *Param) { p.Required = true } }

// Default sets the value used when the parameter is absent.
func Default(v any) Option { return func(p *Param) { p.Default = v } }

// Label sets the short display name.
func Label(s string) Option { return func(p *Param) { p.Label = s } }

// Describe sets the description.
func Describe(s string) Option { return func(p *Param) { p.Description = s } }

// Help sets the help text.
func Help(s string) Option { return func(p *Param) { p.HelpText = s } }

func build(name string, kind Kind, typ Type, opts []Option) Param {
	p := Param{Name: name, Kind: kind, Type: typ}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// String declares a string parameter.
func String(name string, opts ...Option) Param { return build(name, Scalar, TypeString, opts) }

// Int declares an integer parameter.
func Int(name string, opts ...Option) Param { return build(name, Scalar, TypeInt, opts) }

// Bool declares a boolean parameter.
func Bool(name string, opts ...Option) Param { return build(name, Scalar, TypeBool, opts) }

// StringList declares a list-of-strings parameter.
func StringList(name string, opts ...Option) Param {
	return build(name, Scalar, TypeStringList, opts)
}

// Dict declares an object parameter whose key order is preserved.
func Dict(name string, opts ...Option) Param { return build(name, Scalar, TypeDict, opts) }

// Enum declares a parameter restricted to values.
func Enum(name string, values []EnumValue, opts ...Option) Param {
	p := build(name, Scalar, TypeEnum, opts)
	p.Enum = values
	return p
}

// InputColumn declares a reference to an existing column.
func InputColumn(name string, opts ...Option) Param {
	return build(name, InputColumnRef, TypeColumn, opts)
}

// OutputColumn declares a reference to an existing or new column.
func OutputColumn(name string, opts ...Option) Param {
	return build(name, OutputColumnRef, TypeColumn, opts)
}

// InputColumns declares a list of references to existing columns.
func InputColumns(name string, opts ...Option) Param {
	return build(name, InputColumnRefList, TypeColumnList, opts)
}

// OutputColumns declares a list of references to existing or new columns.
func OutputColumns(name string, opts ...Option) Param {
	return build(name, OutputColumnRefList, TypeColumnList, opts)
}

// Coerce converts a raw task value to the parameter's Go type:
// string, int, bool, string (enum member), []string, config.OrderedMap,
// and for column references int or string (unresolved name), or []any of
// those for lists. A nil raw value coerces to nil.
func (p Param) Coerce(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch p.Type {
	case TypeString:
		return toString(p.Name, raw)
	case TypeInt:
		return toInt(p.Name, raw)
	case TypeBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("param %q: %w: %q is not a boolean", p.Name, ErrValue, v)
			}
			return b, nil
		}
		return nil, typeErr(p.Name, "boolean", raw)
	case TypeEnum:
		s, err := toString(p.Name, raw)
		if err != nil {
			return nil, err
		}
		for _, e := range p.Enum {
			if e.Value == s {
				return s, nil
			}
		}
		allowed := make([]string, len(p.Enum))
		for i, e := range p.Enum {
			allowed[i] = e.Value
		}
		return nil, fmt.Errorf("param %q: %w: %q is not one of %s", p.Name, ErrValue, s, strings.Join(allowed, ","))
	case TypeStringList:
		switch v := raw.(type) {
		case string:
			return []string{v}, nil
		case []string:
			return append([]string(nil), v...), nil
		case []any:
			out := make([]string, len(v))
			for i, x := range v {
				s, err := toString(p.Name, x)
				if err != nil {
					return nil, err
				}
				out[i] = s
			}
			return out, nil
		}
		return nil, typeErr(p.Name, "list of strings", raw)
	case TypeDict:
		if m, ok := config.AsOrderedMap(raw); ok {
			return m, nil
		}
		return nil, typeErr(p.Name, "object", raw)
	case TypeColumn:
		return toColumn(p.Name, raw)
	case TypeColumnList:
		var items []any
		switch v := raw.(type) {
		case []any:
			items = v
		case []string:
			for _, s := range v {
				items = append(items, s)
			}
		case []int:
			for _, n := range v {
				items = append(items, n)
			}
		default:
			return nil, typeErr(p.Name, "list of column names or indexes", raw)
		}
		out := make([]any, len(items))
		for i, x := range items {
			c, err := toColumn(p.Name, x)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return raw, nil
}

// Resolve turns a coerced column reference into indexes against headers.
// It returns an int for single references and []int for lists, together
// with the header after resolution: output list references append unknown
// names to it. headers itself is never modified.
func (p Param) Resolve(raw any, headers []string) (any, []string, error) {
	v, err := p.Coerce(raw)
	if err != nil {
		return nil, headers, err
	}
	if v == nil {
		return nil, headers, nil
	}
	switch p.Kind {
	case InputColumnRef:
		idx, err := resolveInput(p.Name, 0, v, headers)
		return idx, headers, err
	case OutputColumnRef:
		idx, _ := resolveOutput(v, headers)
		return idx, headers, nil
	case InputColumnRefList:
		items := v.([]any)
		out := make([]int, len(items))
		for i, x := range items {
			idx, err := resolveInput(p.Name, i+1, x, headers)
			if err != nil {
				return nil, headers, err
			}
			out[i] = idx
		}
		return out, headers, nil
	case OutputColumnRefList:
		items := v.([]any)
		hdr := append([]string(nil), headers...)
		out := make([]int, len(items))
		for i, x := range items {
			idx, appended := resolveOutput(x, hdr)
			if appended {
				hdr = append(hdr, x.(string))
			}
			out[i] = idx
		}
		return out, hdr, nil
	}
	return v, headers, nil
}

func resolveInput(name string, pos int, v any, headers []string) (int, error) {
	switch c := v.(type) {
	case int:
		if c >= len(headers) {
			return 0, &ColumnError{Param: name, Value: strconv.Itoa(c), Position: pos, Headers: headers}
		}
		return c, nil
	case string:
		for i, h := range headers {
			if h == c {
				return i, nil
			}
		}
		return 0, &ColumnError{Param: name, Value: c, Position: pos, Headers: headers}
	}
	return 0, fmt.Errorf("param %q: %w: unexpected %T", name, ErrType, v)
}

// resolveOutput returns the index of an output reference and whether the
// name is new, in which case the index is len(headers).
func resolveOutput(v any, headers []string) (int, bool) {
	switch c := v.(type) {
	case int:
		return c, false
	case string:
		for i, h := range headers {
			if h == c {
				return i, false
			}
		}
		return len(headers), true
	}
	return len(headers), false
}

func toString(name string, raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", typeErr(name, "string", raw)
}

func toInt(name string, raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("param %q: %w: %v is not an integer", name, ErrValue, v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("param %q: %w: %q is not an integer", name, ErrValue, v)
		}
		return n, nil
	}
	return 0, typeErr(name, "integer", raw)
}

func toColumn(name string, raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case int, float64:
		n, err := toInt(name, v)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("param %q: %w: column index %d is negative", name, ErrValue, n)
		}
		return n, nil
	}
	return nil, typeErr(name, "column name or index", raw)
}

func typeErr(name, want string, raw any) error {
	return fmt.Errorf("param %q: %w: want %s, got %T", name, ErrType, want, raw)
}
