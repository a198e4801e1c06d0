package extras

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"tablelinker/internal/config"
	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
	"tablelinker/internal/table"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func run(t *testing.T, key string, raw config.Options, rows [][]string) ([][]string, error) {
	t.Helper()
	r := convertor.NewRegistry()
	Register(r)
	conv, err := r.New(key)
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

// column runs key over a single column v and returns the values written
// to the new column out.
func column(t *testing.T, key string, raw config.Options, values ...string) []string {
	t.Helper()
	rows := [][]string{{"v"}}
	for _, v := range values {
		rows = append(rows, []string{v})
	}
	opts := config.Options{"input_attr_idx": "v", "output_attr_name": "out"}
	for k, v := range raw {
		opts[k] = v
	}
	got, err := run(t, key, opts, rows)
	if err != nil {
		t.Fatalf("%s: %v", key, err)
	}
	if !reflect.DeepEqual(got[0], []string{"v", "out"}) {
		t.Fatalf("header = %v", got[0])
	}
	out := make([]string, 0, len(values))
	for _, row := range got[1:] {
		out = append(out, row[1])
	}
	return out
}

func TestDateExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  config.Options
		in   string
		want string
	}{
		{"kanji date in text", nil, "開催期間: 2023年1月2日〜1月5日", "2023-01-02"},
		{"era first year", nil, "令和元年5月1日", "2019-05-01"},
		{"fullwidth digits", nil, "２０２３／４／１", "2023-04-01"},
		{"year needed", config.Options{"default": "-"}, "１月５日", "-"},
		{"month and day only", config.Options{"format": "%m/%d"}, "１月５日", "01/05"},
		{"invalid date", config.Options{"default": "-"}, "2023/2/30", "-"},
		{"era year out of range", config.Options{"default": "-"}, "平成32年1月1日", "-"},
		{"time is dropped", config.Options{"format": "%Y-%m-%d %H:%M"}, "2023-01-02 10:30", "2023-01-02 00:00"},
		{"nothing found", nil, "未定", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := column(t, "date_extract", tt.raw, tt.in)
			if got[0] != tt.want {
				t.Fatalf("date_extract(%q) = %q, want %q", tt.in, got[0], tt.want)
			}
		})
	}
}

func TestDatetimeExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  config.Options
		in   string
		want string
	}{
		{"iso", nil, "2023-01-02T10:30:00", "2023-01-02 10:30:00"},
		{"kanji clock", config.Options{"format": "%Y/%m/%d %H:%M"}, "2023年1月2日 10時30分", "2023/01/02 10:30"},
		{"seconds needed", config.Options{"default": "?"}, "2023年1月2日 10時30分", "?"},
		{"clock only", config.Options{"format": "%H:%M"}, "受付 9:05 から", "09:05"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := column(t, "datetime_extract", tt.raw, tt.in)
			if got[0] != tt.want {
				t.Fatalf("datetime_extract(%q) = %q, want %q", tt.in, got[0], tt.want)
			}
		})
	}
}

func TestExtractDatetimes_Order(t *testing.T) {
	got := extractDatetimes("1月5日、2023年1月2日")
	if len(got) != 2 {
		t.Fatalf("found %d stamps, want 2", len(got))
	}
	if got[0].set[fYear] || got[0].v[fDay] != 5 {
		t.Fatalf("first stamp = %+v", got[0])
	}
	if !got[1].set[fYear] || got[1].v[fYear] != 2023 {
		t.Fatalf("second stamp = %+v", got[1])
	}
}

func TestToSeireki(t *testing.T) {
	t.Parallel()
	got := column(t, "to_seireki", nil,
		"令和5年4月1日",
		"平成元年",
		"昭和64年1月7日",
		"平成32年",
		"西暦です",
	)
	want := []string{"2023年4月1日", "1989年", "1989年1月7日", "平成32年", "西暦です"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestToWareki(t *testing.T) {
	t.Parallel()
	in := []string{"2019年5月1日", "2019年4月30日", "2023-01-02", "西暦2000年", "1800年", "2023"}
	got := column(t, "to_wareki", nil, in...)
	want := []string{"令和1年5月1日", "平成31年4月30日", "令和5年1月2日", "平成12年", "1800年", "令和5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got = column(t, "to_wareki", config.Options{"use_gannen": true}, "2019年5月1日")
	if got[0] != "令和元年5月1日" {
		t.Fatalf("use_gannen: got %q", got[0])
	}
}

func TestEraYear(t *testing.T) {
	tests := []struct {
		date time.Time
		era  string
		year int
	}{
		{time.Date(1989, 1, 7, 0, 0, 0, 0, time.UTC), "昭和", 64},
		{time.Date(1989, 1, 8, 0, 0, 0, 0, time.UTC), "平成", 1},
		{time.Date(2019, 4, 30, 0, 0, 0, 0, time.UTC), "平成", 31},
		{time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC), "令和", 1},
	}
	for _, tt := range tests {
		name, year, ok := eraYear(tt.date)
		if !ok || name != tt.era || year != tt.year {
			t.Errorf("eraYear(%s) = %s %d %v, want %s %d", tt.date.Format("2006-01-02"), name, year, ok, tt.era, tt.year)
		}
	}
	if _, _, ok := eraYear(time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC)); ok {
		t.Errorf("1800 should have no era")
	}
}

func TestAutoMappingCols(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"施設名称", "住所", "緯度", "経度", "備考"},
		{"A", "東京", "35", "139", "x"},
	}
	targets := []any{"名称", "所在地", "経度", "緯度", "説明"}
	tests := []struct {
		name string
		raw  config.Options
		want [][]string
		err  error
	}{
		{
			name: "keep source names",
			raw:  config.Options{"column_list": targets, "keep_colname": true},
			want: [][]string{
				{"名称 / 施設名称", "所在地", "経度", "緯度", "説明"},
				{"A", "", "139", "35", ""},
			},
		},
		{
			name: "target names",
			raw:  config.Options{"column_list": targets},
			want: [][]string{
				{"名称", "所在地", "経度", "緯度", "説明"},
				{"A", "", "139", "35", ""},
			},
		},
		{
			name: "high threshold",
			raw:  config.Options{"column_list": targets, "threshold": 80},
			want: [][]string{
				{"名称", "所在地", "経度", "緯度", "説明"},
				{"", "", "139", "35", ""},
			},
		},
		{
			name: "threshold out of range",
			raw:  config.Options{"column_list": targets, "threshold": 101},
			err:  params.ErrValue,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := run(t, "auto_mapping_cols", tt.raw, rows)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got  %v\nwant %v", got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"緯度", "緯度", 1},
		{"Name", "name ", 1},
		{"名称", "施設名称", 0.75},
		{"経度", "緯度", 0},
		{"所在地", "住所", 0},
		{"", "x", 0},
	}
	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
