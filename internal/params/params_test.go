package params

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"tablelinker/internal/config"
)

func TestCoerce_Scalars(t *testing.T) {
	t.Parallel()

	ops := []EnumValue{{Value: "+", Label: "sum"}, {Value: "/", Label: "quotient"}}
	tests := []struct {
		name    string
		p       Param
		raw     any
		want    any
		wantErr error
	}{
		{"string", String("s"), "abc", "abc", nil},
		{"string from number", String("s"), float64(12), "12", nil},
		{"int from float", Int("n"), float64(3), 3, nil},
		{"int from string", Int("n"), " 4 ", 4, nil},
		{"int fraction", Int("n"), 1.5, nil, ErrValue},
		{"int from bool", Int("n"), true, nil, ErrType},
		{"bool", Bool("b"), true, true, nil},
		{"bool from string", Bool("b"), "false", false, nil},
		{"bool bad string", Bool("b"), "maybe", nil, ErrValue},
		{"enum member", Enum("op", ops), "/", "/", nil},
		{"enum outsider", Enum("op", ops), "%", nil, ErrValue},
		{"list", StringList("l"), []any{"a", float64(2)}, []string{"a", "2"}, nil},
		{"list from string", StringList("l"), "a", []string{"a"}, nil},
		{"list bad", StringList("l"), 3, nil, ErrType},
		{"nil", String("s"), nil, nil, nil},
		{"column index", InputColumn("c"), float64(2), 2, nil},
		{"column name", InputColumn("c"), "pop", "pop", nil},
		{"column negative", InputColumn("c"), -1, nil, ErrValue},
		{"column list", InputColumns("c"), []any{"a", float64(1)}, []any{"a", 1}, nil},
		{"column list wrong", InputColumns("c"), "a", nil, ErrType},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.p.Coerce(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Coerce(%#v) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCoerce_Dict(t *testing.T) {
	t.Parallel()

	m := config.OrderedMap{}
	m.Set("b", "x")
	m.Set("a", nil)
	got, err := Dict("d").Coerce(m)
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	om := got.(config.OrderedMap)
	if !reflect.DeepEqual(om.Keys(), []string{"b", "a"}) {
		t.Fatalf("keys = %v", om.Keys())
	}
	if _, err := Dict("d").Coerce("nope"); !errors.Is(err, ErrType) {
		t.Fatalf("err = %v, want ErrType", err)
	}
}

func TestResolve_Input(t *testing.T) {
	t.Parallel()

	headers := []string{"name", "pop", "area"}

	got, hdr, err := InputColumn("input_col_idx").Resolve("area", headers)
	if err != nil || got != 2 {
		t.Fatalf("Resolve(area) = %v, %v", got, err)
	}
	if !reflect.DeepEqual(hdr, headers) {
		t.Fatalf("headers changed: %v", hdr)
	}

	_, _, err = InputColumn("input_col_idx").Resolve("zzz", headers)
	var ce *ColumnError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ColumnError", err)
	}
	if !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("err does not wrap ErrUnknownColumn")
	}
	if !strings.Contains(err.Error(), "name,pop,area") {
		t.Fatalf("error does not list headers: %v", err)
	}

	_, _, err = InputColumn("input_col_idx").Resolve(7, headers)
	if !errors.As(err, &ce) {
		t.Fatalf("out of range index: err = %v", err)
	}

	list, _, err := InputColumns("input_col_idxs").Resolve([]any{"pop", float64(0)}, headers)
	if err != nil || !reflect.DeepEqual(list, []int{1, 0}) {
		t.Fatalf("list = %v, %v", list, err)
	}

	_, _, err = InputColumns("input_col_idxs").Resolve([]any{"pop", "x"}, headers)
	if !errors.As(err, &ce) || ce.Position != 2 {
		t.Fatalf("list err = %v", err)
	}
}

func TestResolve_Output(t *testing.T) {
	t.Parallel()

	headers := []string{"a", "b"}

	got, hdr, err := OutputColumn("output_col_idx").Resolve("b", headers)
	if err != nil || got != 1 || len(hdr) != 2 {
		t.Fatalf("existing = %v, %v, %v", got, hdr, err)
	}
	got, hdr, err = OutputColumn("output_col_idx").Resolve("new", headers)
	if err != nil || got != 2 || len(hdr) != 2 {
		t.Fatalf("new single ref = %v, %v, %v; header must not grow", got, hdr, err)
	}

	list, hdr, err := OutputColumns("output_col_idxs").Resolve([]any{"x", "a", "y"}, headers)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(list, []int{2, 0, 3}) {
		t.Fatalf("list = %v, want [2 0 3]", list)
	}
	if !reflect.DeepEqual(hdr, []string{"a", "b", "x", "y"}) {
		t.Fatalf("header = %v", hdr)
	}
	if !reflect.DeepEqual(headers, []string{"a", "b"}) {
		t.Fatalf("input header was modified: %v", headers)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	headers := []string{"a", "b", "c"}
	p := InputColumn("input_col_idx")
	first, _, err := p.Resolve("c", headers)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := p.Resolve(first, headers)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("resolving an index again changed it: %v -> %v", first, second)
	}
}

func TestParamSet_OrderAndConcat(t *testing.T) {
	t.Parallel()

	common := NewSet(InputColumn("input_attr_idx", Required()), Bool("overwrite", Default(false)))
	own := NewSet(Int("length", Default(10)), Bool("overwrite", Default(true)))

	s := common.Concat(own)
	if got, want := s.Names(), []string{"input_attr_idx", "overwrite", "length"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	p, ok := s.Get("overwrite")
	if !ok || p.Default != true {
		t.Fatalf("later declaration should win: %#v", p)
	}
	if common.Len() != 2 {
		t.Fatalf("Concat modified the receiver")
	}
	if s.Has("nope") {
		t.Fatalf("Has(nope) = true")
	}
}

func TestParamSet_Validate(t *testing.T) {
	t.Parallel()

	s := NewSet(
		InputColumn("input_col_idx", Required()),
		OutputColumn("output_col_name"),
		Int("length"),
		Enum("operator", []EnumValue{{Value: "+"}}),
	)

	raw := config.Options{
		"input_col_idx":   "zzz",
		"output_col_name": "pop",
		"length":          "ten",
		"operator":        "*",
		"bogus":           1,
	}
	issues := s.Validate(raw, []string{"name", "pop"}, []string{"name", "pop"})

	want := map[string]config.IssueSeverity{
		"params.bogus":           config.SeverityWarning,
		"params.input_col_idx":   config.SeverityError,
		"params.output_col_name": config.SeverityWarning,
		"params.length":          config.SeverityError,
		"params.operator":        config.SeverityError,
	}
	if len(issues) != len(want) {
		t.Fatalf("issues = %+v", issues)
	}
	for _, iss := range issues {
		if sev, ok := want[iss.Path]; !ok || sev != iss.Severity {
			t.Errorf("unexpected issue %+v", iss)
		}
	}

	missing := s.Validate(config.Options{}, nil, nil)
	if !missing.HasErrors() || missing[0].Path != "params.input_col_idx" {
		t.Fatalf("missing required not reported: %+v", missing)
	}

	// Without a header, names are only type-checked.
	if iss := s.Validate(config.Options{"input_col_idx": "anything"}, nil, nil); len(iss) != 0 {
		t.Fatalf("issues without header = %+v", iss)
	}
}
