package basics

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"tablelinker/internal/config"
	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
	"tablelinker/internal/table"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func run(t *testing.T, key string, raw config.Options, rows [][]string) ([][]string, error) {
	t.Helper()
	conv, err := DefaultRegistry().New(key)
	if err != nil {
		t.Fatalf("New(%q): %v", key, err)
	}
	sink := table.NewMemorySink()
	ctx, err := convertor.NewContext(conv, raw, table.NewMemorySource(rows), sink, convertor.WithLogger(quiet))
	if err != nil {
		return nil, err
	}
	if err := ctx.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = convertor.Process(conv, ctx)
	if cerr := ctx.Close(); err == nil {
		err = cerr
	}
	return sink.Rows(), err
}

type convCase struct {
	name string
	key  string
	raw  config.Options
	rows [][]string
	want [][]string
	err  error
}

func runCases(t *testing.T, tests []convCase) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := run(t, tt.key, tt.raw, tt.rows)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got  %v\nwant %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_Builtins(t *testing.T) {
	r := DefaultRegistry()
	keys := r.Keys()
	if len(keys) != len(Factories)-1 {
		t.Fatalf("selectable keys = %d, want %d", len(keys), len(Factories)-1)
	}
	for _, k := range keys {
		if k == "noop" {
			t.Fatalf("noop must not be selectable")
		}
	}
	if _, err := r.New("noop"); err != nil {
		t.Fatalf("noop should still be constructible: %v", err)
	}
	seen := map[string]bool{}
	for _, f := range Factories {
		m := f().Meta()
		if seen[m.Key] {
			t.Fatalf("duplicate key %q", m.Key)
		}
		seen[m.Key] = true
		if m.Params == nil {
			t.Fatalf("%s: nil params", m.Key)
		}
	}
}

func TestMetaList_SingleColumn(t *testing.T) {
	metas := DefaultRegistry().MetaList([]string{"pop"})
	found := map[string]bool{}
	for _, m := range metas {
		found[m.Key] = true
	}
	for _, k := range []string{"to_hankaku", "truncate", "delete_col", "acopy"} {
		if !found[k] {
			t.Errorf("%s should apply to a single column", k)
		}
	}
	if found["rename_cols"] || found["normalize_colnames"] {
		t.Errorf("table-wide convertors should not apply to a single column")
	}
}

func TestColumnCopy(t *testing.T) {
	t.Parallel()
	runCases(t, []convCase{
		{
			name: "acopy appends",
			key:  "acopy",
			raw:  config.Options{"input_attr_idx": "name", "output_attr_name": "name2"},
			rows: [][]string{{"name", "pop"}, {"Tokyo", "14"}},
			want: [][]string{{"name", "pop", "name2"}, {"Tokyo", "14", "Tokyo"}},
		},
		{
			name: "noop",
			key:  "noop",
			rows: [][]string{{"a"}, {"1"}},
			want: [][]string{{"a"}, {"1"}},
		},
	})
}

func TestCalc(t *testing.T) {
	t.Parallel()
	rows := [][]string{{"a", "b"}, {"3", "4"}, {"10", "5"}, {"x", "1"}, {"1", "0"}}
	runCases(t, []convCase{
		{
			name: "default sum",
			key:  "calc",
			raw:  config.Options{"input_col_idx1": "a", "input_col_idx2": "b"},
			rows: rows,
			want: [][]string{{"a", "b", "a+b"}, {"3", "4", "7"}, {"10", "5", "15"}, {"x", "1", ""}, {"1", "0", "1"}},
		},
		{
			name: "division",
			key:  "calc",
			raw:  config.Options{"input_col_idx1": "a", "input_col_idx2": "b", "operator": "/", "output_col_name": "ratio"},
			rows: rows,
			want: [][]string{{"a", "b", "ratio"}, {"3", "4", "0.75"}, {"10", "5", "2.0"}, {"x", "1", ""}, {"1", "0", ""}},
		},
		{
			name: "delete operands",
			key:  "calc",
			raw:  config.Options{"input_col_idx1": 0, "input_col_idx2": 1, "operator": "*", "delete_col": true},
			rows: rows[:3],
			want: [][]string{{"a*b"}, {"12"}, {"50"}},
		},
		{
			name: "unknown operator",
			key:  "calc",
			raw:  config.Options{"input_col_idx1": "a", "input_col_idx2": "b", "operator": "%"},
			rows: rows,
			err:  params.ErrValue,
		},
	})
}

func TestConcat(t *testing.T) {
	t.Parallel()
	rows := [][]string{{"pref", "city", "pop"}, {"東京都", "千代田区", "1"}}
	runCases(t, []convCase{
		{
			name: "append with separator",
			key:  "concat_col",
			raw:  config.Options{"input_col_idx1": "pref", "input_col_idx2": "city", "output_col_name": "addr", "separator": " "},
			rows: rows,
			want: [][]string{{"pref", "city", "pop", "addr"}, {"東京都", "千代田区", "1", "東京都 千代田区"}},
		},
		{
			name: "delete inputs and insert first",
			key:  "concat_col",
			raw: config.Options{"input_col_idx1": "pref", "input_col_idx2": "city",
				"output_col_name": "addr", "output_col_idx": 0, "delete_col": true},
			rows: rows,
			want: [][]string{{"addr", "pop"}, {"東京都千代田区", "1"}},
		},
		{
			name: "replace existing column",
			key:  "concat_col",
			raw:  config.Options{"input_col_idx1": "pref", "input_col_idx2": "city", "output_col_name": "pop"},
			rows: rows,
			want: [][]string{{"pref", "city", "pop"}, {"東京都", "千代田区", "東京都千代田区"}},
		},
		{
			name: "cols with derived name",
			key:  "concat_cols",
			raw:  config.Options{"input_col_idxs": []any{"pref", "city"}},
			rows: rows,
			want: [][]string{{"pref", "city", "pop", "prefcity"}, {"東京都", "千代田区", "1", "東京都千代田区"}},
		},
	})
}

func TestConcatTitle(t *testing.T) {
	t.Parallel()
	rows := [][]string{
		{"title", "", ""},
		{"地域", "人口", ""},
		{"", "男", "女"},
		{"A", "1", "2"},
	}
	runCases(t, []convCase{
		{
			name: "flat",
			key:  "concat_title",
			raw:  config.Options{"lineno_from": 1, "lines": 2},
			rows: rows,
			want: [][]string{{"地域", "人口/男", "女"}, {"A", "1", "2"}},
		},
		{
			name: "hierarchical",
			key:  "concat_title",
			raw:  config.Options{"lineno_from": 1, "lines": 2, "hierarchical_heading": true},
			rows: rows,
			want: [][]string{{"地域", "人口/男", "人口/女"}, {"A", "1", "2"}},
		},
		{
			name: "title past the last row",
			key:  "concat_title",
			raw:  config.Options{"lineno_from": 2, "lines": 3},
			rows: rows,
			err:  io.ErrUnexpectedEOF,
		},
	})
}

func TestDeleteCols(t *testing.T) {
	t.Parallel()
	rows := [][]string{{"a", "b", "c"}, {"1", "2", "3"}}
	runCases(t, []convCase{
		{
			name: "single",
			key:  "delete_col",
			raw:  config.Options{"input_col_idx": "b"},
			rows: rows,
			want: [][]string{{"a", "c"}, {"1", "3"}},
		},
		{
			name: "many with duplicates",
			key:  "delete_cols",
			raw:  config.Options{"input_col_idxs": []any{"c", "a", "c"}},
			rows: rows,
			want: [][]string{{"b"}, {"2"}},
		},
		{
			name: "unknown column",
			key:  "delete_col",
			raw:  config.Options{"input_col_idx": "z"},
			rows: rows,
			err:  params.ErrUnknownColumn,
		},
	})
}

func TestRowFilters(t *testing.T) {
	t.Parallel()
	rows := [][]string{{"city", "code"}, {"東京都", "12-34"}, {"北東京", "5-6"}, {"株式会社X", "x"}}
	runCases(t, []convCase{
		{
			name: "delete exact",
			key:  "delete_string_match",
			raw:  config.Options{"input_attr_idx": "city", "query": "北東京"},
			rows: rows,
			want: [][]string{{"city", "code"}, {"東京都", "12-34"}, {"株式会社X", "x"}},
		},
		{
			name: "delete contains",
			key:  "delete_string_contains",
			raw:  config.Options{"input_attr_idx": "city", "query": "東京"},
			rows: rows,
			want: [][]string{{"city", "code"}, {"株式会社X", "x"}},
		},
		{
			name: "select pattern anchors at start",
			key:  "select_pattern_match",
			raw:  config.Options{"input_attr_idx": "city", "pattern": "東京"},
			rows: rows,
			want: [][]string{{"city", "code"}, {"東京都", "12-34"}},
		},
		{
			name: "select contains",
			key:  "select_string_contains",
			raw:  config.Options{"input_attr_idx": 0, "query": "東京"},
			rows: rows,
			want: [][]string{{"city", "code"}, {"東京都", "12-34"}, {"北東京", "5-6"}},
		},
		{
			name: "update pattern with backrefs",
			key:  "update_pattern_match",
			raw:  config.Options{"input_col_idx": "code", "pattern": `(\d+)-(\d+)`, "new": `\2-\1`},
			rows: rows,
			want: [][]string{{"city", "code"}, {"東京都", "34-12"}, {"北東京", "6-5"}, {"株式会社X", "x"}},
		},
		{
			name: "update contains",
			key:  "update_string_contains",
			raw:  config.Options{"input_col_idx": "city", "query": "株式会社", "new": "(株)"},
			rows: rows,
			want: [][]string{{"city", "code"}, {"東京都", "12-34"}, {"北東京", "5-6"}, {"(株)X", "x"}},
		},
		{
			name: "bad pattern",
			key:  "delete_pattern_match",
			raw:  config.Options{"input_attr_idx": "city", "pattern": "("},
			rows: rows,
			err:  params.ErrValue,
		},
		{
			name: "missing query",
			key:  "select_string_match",
			raw:  config.Options{"input_attr_idx": "city"},
			rows: rows,
			err:  params.ErrMissingParam,
		},
	})
}

func TestDedupRows(t *testing.T) {
	t.Parallel()
	rows := [][]string{{"k", "v"}, {"a", "1"}, {"a", "1"}, {"b", "1"}, {"a", "2"}}
	runCases(t, []convCase{
		{
			name: "all columns",
			key:  "dedup_rows",
			rows: rows,
			want: [][]string{{"k", "v"}, {"a", "1"}, {"b", "1"}, {"a", "2"}},
		},
		{
			name: "by key column",
			key:  "dedup_rows",
			raw:  config.Options{"input_col_idxs": []any{"k"}},
			rows: rows,
			want: [][]string{{"k", "v"}, {"a", "1"}, {"b", "1"}},
		},
	})
}

func TestInsertCols(t *testing.T) {
	t.Parallel()
	rows := [][]string{{"a", "b"}, {"1", "2"}}
	runCases(t, []convCase{
		{
			name: "insert at position",
			key:  "insert_col",
			raw:  config.Options{"output_col_name": "note", "output_col_idx": 1, "value": "-"},
			rows: rows,
			want: [][]string{{"a", "note", "b"}, {"1", "-", "2"}},
		},
		{
			name: "broadcast single value",
			key:  "insert_cols",
			raw:  config.Options{"output_col_names": []any{"x", "y"}, "values": []any{"0"}},
			rows: rows,
			want: [][]string{{"a", "b", "x", "y"}, {"1", "2", "0", "0"}},
		},
		{
			name: "length mismatch",
			key:  "insert_cols",
			raw:  config.Options{"output_col_names": []any{"x", "y"}, "values": []any{"1", "2", "3"}},
			rows: rows,
			err:  params.ErrValue,
		},
	})
}

func TestColumnShaping(t *testing.T) {
	t.Parallel()
	rows := [][]string{{"a", "b", "c"}, {"1", "2", "3"}}
	colMap := config.OrderedMap{Pairs: []config.KV{
		{Key: "C", Value: "c"},
		{Key: "empty", Value: nil},
		{Key: "A", Value: "a"},
	}}
	runCases(t, []convCase{
		{
			name: "mapping",
			key:  "mapping_cols",
			raw:  config.Options{"column_map": colMap},
			rows: rows,
			want: [][]string{{"C", "empty", "A"}, {"3", "", "1"}},
		},
		{
			name: "move to end",
			key:  "move_col",
			raw:  config.Options{"input_col_idx": "a"},
			rows: rows,
			want: [][]string{{"b", "c", "a"}, {"2", "3", "1"}},
		},
		{
			name: "move to front",
			key:  "move_col",
			raw:  config.Options{"input_col_idx": "c", "output_col_idx": 0},
			rows: rows,
			want: [][]string{{"c", "a", "b"}, {"3", "1", "2"}},
		},
		{
			name: "rename one",
			key:  "rename_col",
			raw:  config.Options{"input_attr_idx": "b", "new_col_name": "B"},
			rows: rows,
			want: [][]string{{"a", "B", "c"}, {"1", "2", "3"}},
		},
		{
			name: "rename all",
			key:  "rename_cols",
			raw:  config.Options{"column_list": []any{"x", "y", "z"}},
			rows: rows,
			want: [][]string{{"x", "y", "z"}, {"1", "2", "3"}},
		},
		{
			name: "rename all wrong length",
			key:  "rename_cols",
			raw:  config.Options{"column_list": []any{"x"}},
			rows: rows,
			err:  params.ErrValue,
		},
		{
			name: "reorder and select",
			key:  "reorder_cols",
			raw:  config.Options{"column_list": []any{"c", "a"}},
			rows: rows,
			want: [][]string{{"c", "a"}, {"3", "1"}},
		},
		{
			name: "reorder unknown",
			key:  "reorder_cols",
			raw:  config.Options{"column_list": []any{"c", "zz"}},
			rows: rows,
			err:  params.ErrUnknownColumn,
		},
	})
}

func TestSplit(t *testing.T) {
	t.Parallel()
	rows := [][]string{{"id", "v"}, {"1", "a,b,c"}, {"2", "a"}}
	runCases(t, []convCase{
		{
			name: "split col keeps remainder",
			key:  "split_col",
			raw:  config.Options{"input_col_idx": "v", "output_col_names": []any{"x", "y"}},
			rows: rows,
			want: [][]string{{"id", "v", "x", "y"}, {"1", "a,b,c", "a", "b,c"}, {"2", "a", "a", ""}},
		},
		{
			name: "split row",
			key:  "split_row",
			raw:  config.Options{"input_col_idx": "v", "separator": ",\\s*"},
			rows: rows,
			want: [][]string{{"id", "v"}, {"1", "a"}, {"1", "b"}, {"1", "c"}, {"2", "a"}},
		},
	})
}

func TestWidth(t *testing.T) {
	t.Parallel()
	runCases(t, []convCase{
		{
			name: "to hankaku",
			key:  "to_hankaku",
			raw:  config.Options{"input_attr_idx": "v", "output_attr_name": "h"},
			rows: [][]string{{"v"}, {"ＡＢＣ１２３　ガギ"}},
			want: [][]string{{"v", "h"}, {"ＡＢＣ１２３　ガギ", "ABC123 ｶﾞｷﾞ"}},
		},
		{
			name: "to hankaku keeps digits",
			key:  "to_hankaku",
			raw:  config.Options{"input_attr_idx": "v", "overwrite": true, "digit": false},
			rows: [][]string{{"v"}, {"Ａ１"}},
			want: [][]string{{"v"}, {"A１"}},
		},
		{
			name: "to zenkaku",
			key:  "to_zenkaku",
			raw:  config.Options{"input_attr_idx": "v", "overwrite": true},
			rows: [][]string{{"v"}, {"AB 12 ｶﾞｷﾞﾊﾟｱ"}},
			want: [][]string{{"v"}, {"ＡＢ　１２　ガギパア"}},
		},
		{
			name: "to zenkaku ignoring chars",
			key:  "to_zenkaku",
			raw:  config.Options{"input_attr_idx": "v", "overwrite": true, "ignore_chars": "-"},
			rows: [][]string{{"v"}, {"A-B"}},
			want: [][]string{{"v"}, {"Ａ-Ｂ"}},
		},
		{
			name: "to zenkaku kana only",
			key:  "to_zenkaku",
			raw:  config.Options{"input_attr_idx": "v", "overwrite": true, "ascii": false, "digit": false},
			rows: [][]string{{"v"}, {"ｱ1a"}},
			want: [][]string{{"v"}, {"ア1a"}},
		},
	})
}

func TestNumbers(t *testing.T) {
	t.Parallel()
	runCases(t, []convCase{
		{
			name: "truncate",
			key:  "truncate",
			raw:  config.Options{"input_attr_idx": "s", "overwrite": true, "length": 3},
			rows: [][]string{{"s"}, {"あいうえお"}, {"abc"}},
			want: [][]string{{"s"}, {"あいう…"}, {"abc"}},
		},
		{
			name: "truncate bad length",
			key:  "truncate",
			raw:  config.Options{"input_attr_idx": "s", "length": 0},
			rows: [][]string{{"s"}, {"x"}},
			err:  params.ErrValue,
		},
		{
			name: "round",
			key:  "round",
			raw:  config.Options{"input_attr_idx": "n", "output_attr_name": "r", "ndigits": 1},
			rows: [][]string{{"n"}, {"3.14159"}, {"１，２３４．５６"}, {"n/a"}, {"2"}},
			want: [][]string{{"n", "r"}, {"3.14159", "3.1"}, {"１，２３４．５６", "1234.6"}, {"n/a", "n/a"}, {"2", "2.0"}},
		},
	})
}

func TestNormalizeColnames(t *testing.T) {
	t.Parallel()
	runCases(t, []convCase{
		{
			name: "normalize",
			key:  "normalize_colnames",
			rows: [][]string{
				{"Café Name", "ＰＯＰ", "pop", "--", "人口 (人)"},
				{"1", "2", "3", "4", "5"},
			},
			want: [][]string{
				{"cafe_name", "pop", "pop_2", "col", "人口_人"},
				{"1", "2", "3", "4", "5"},
			},
		},
	})
}

func TestFormatFloat(t *testing.T) {
	t.Parallel()
	tests := map[float64]string{
		2:      "2.0",
		0.75:   "0.75",
		-1.5:   "-1.5",
		1e21:   "1000000000000000000000.0",
		0.0001: "0.0001",
	}
	for in, want := range tests {
		if got := formatFloat(in); got != want {
			t.Errorf("formatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}
