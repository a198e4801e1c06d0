package params

import (
	"fmt"
	"strings"

	"tablelinker/internal/config"
)

// ParamSet is an ordered, name-keyed collection of declarations.
type ParamSet struct {
	params []Param
	index  map[string]int
}

// NewSet builds a set in declaration order. A later declaration with the
// same name replaces the earlier one in place.
func NewSet(ps ...Param) *ParamSet {
	s := &ParamSet{index: make(map[string]int, len(ps))}
	for _, p := range ps {
		if i, ok := s.index[p.Name]; ok {
			s.params[i] = p
			continue
		}
		s.index[p.Name] = len(s.params)
		s.params = append(s.params, p)
	}
	return s
}

// Concat returns a new set holding s followed by others.
func (s *ParamSet) Concat(others ...*ParamSet) *ParamSet {
	all := append([]Param(nil), s.All()...)
	for _, o := range others {
		all = append(all, o.All()...)
	}
	return NewSet(all...)
}

// Get returns the declaration for name.
func (s *ParamSet) Get(name string) (Param, bool) {
	if s == nil {
		return Param{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}

// Has reports whether name is declared.
func (s *ParamSet) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns the declared names in declaration order.
func (s *ParamSet) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.params))
	for i, p := range s.params {
		out[i] = p.Name
	}
	return out
}

// All returns the declarations in order.
func (s *ParamSet) All() []Param {
	if s == nil {
		return nil
	}
	return s.params
}

// Len returns the number of declarations.
func (s *ParamSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.params)
}

// Validate checks raw values without failing fast.
//
// input is the header the task will run against; when nil, column
// references are only type-checked. output is the set of column names
// already present downstream; output references naming one of them are
// reported as replacements.
func (s *ParamSet) Validate(raw config.Options, input, output []string) config.Issues {
	var issues config.Issues

	for _, k := range raw.Keys() {
		if !s.Has(k) {
			issues = append(issues, config.Issue{
				Severity: config.SeverityWarning,
				Path:     "params." + k,
				Message:  fmt.Sprintf("parameter %q is not declared and will be ignored", k),
			})
		}
	}

	outSet := make(map[string]bool, len(output))
	for _, o := range output {
		outSet[o] = true
	}

	for _, p := range s.All() {
		path := "params." + p.Name
		v, present := raw[p.Name]
		if !present || v == nil {
			if p.Required && !present {
				issues = append(issues, config.Issue{
					Severity: config.SeverityError,
					Path:     path,
					Message:  "required parameter is missing",
				})
			}
			continue
		}
		coerced, err := p.Coerce(v)
		if err != nil {
			issues = append(issues, config.Issue{Severity: config.SeverityError, Path: path, Message: err.Error()})
			continue
		}
		if !p.Kind.IsColumnRef() {
			continue
		}
		if p.Kind.IsInput() && input != nil {
			if _, _, err := p.Resolve(coerced, input); err != nil {
				issues = append(issues, config.Issue{Severity: config.SeverityError, Path: path, Message: err.Error()})
			}
			continue
		}
		if !p.Kind.IsInput() {
			for _, name := range columnNames(coerced) {
				if outSet[name] {
					issues = append(issues, config.Issue{
						Severity: config.SeverityWarning,
						Path:     path,
						Message:  fmt.Sprintf("column %q already exists and will be replaced", name),
					})
				}
			}
		}
	}
	return issues
}

func columnNames(v any) []string {
	switch c := v.(type) {
	case string:
		return []string{c}
	case []any:
		var out []string
		for _, x := range c {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ColumnError reports an input column reference that does not match the
// header. It lists every valid column name.
type ColumnError struct {
	Param string
	Value string
	// Position is the 1-based element for list parameters, 0 otherwise.
	Position int
	Headers  []string
}

func (e *ColumnError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parameter %q", e.Param)
	if e.Position > 0 {
		fmt.Fprintf(&b, " item %d", e.Position)
	}
	fmt.Fprintf(&b, " refers to column %q which is not a valid column; valid columns are: %s",
		e.Value, strings.Join(e.Headers, ","))
	return b.String()
}

func (e *ColumnError) Unwrap() error { return ErrUnknownColumn }

// MissingError reports a required parameter that was not supplied.
type MissingError struct {
	Convertor string
	Param     string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("convertor %q: parameter %q is required", e.Convertor, e.Param)
}

func (e *MissingError) Unwrap() error { return ErrMissingParam }
