package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/text/encoding/japanese"

	"tablelinker/internal/config"
	"tablelinker/internal/params"
	"tablelinker/internal/table"
)

func mustRows(t *testing.T, tb *Table) [][]string {
	t.Helper()
	rows, err := tb.Rows()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestOpen_CleansShiftJIS(t *testing.T) {
	t.Parallel()

	text := "観光施設一覧\n" +
		"名称\t所在地\t電話\n" +
		"城址公園\t島原市\t0957-00\n" +
		"資料館\t島原市\t0957-11\n" +
		"温泉\t雲仙市\t0957-22\n" +
		"展望台\t雲仙市\t0957-33\n" +
		"水族館\t長崎市\t095-444\n"
	raw, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sjis.txt")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	r := newRunner(t)
	tb, err := r.Open(context.Background(), path, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer tb.Close()

	rows := mustRows(t, tb)
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want 6: %v", len(rows), rows)
	}
	if !reflect.DeepEqual(rows[0], []string{"名称", "所在地", "電話"}) {
		t.Fatalf("header = %v", rows[0])
	}
}

func TestOpen_URL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	tb, err := newRunner(t).Open(context.Background(), srv.URL+"/t.csv", OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer tb.Close()
	if got := mustRows(t, tb); !reflect.DeepEqual(got, [][]string{{"a", "b"}, {"1", "2"}}) {
		t.Fatalf("rows = %v", got)
	}
}

func TestTable_ConvertSaveWrite(t *testing.T) {
	t.Parallel()

	r := newRunner(t)
	ctx := context.Background()
	tb, err := r.FromRows(cities)
	if err != nil {
		t.Fatal(err)
	}
	defer tb.Close()

	conv, err := tb.Convert(ctx, task("delete_col", config.Options{"input_col_idx": "area"}))
	if err != nil {
		t.Fatal(err)
	}
	if got := mustRows(t, tb); !reflect.DeepEqual(got, cities) {
		t.Fatalf("source table changed: %v", got)
	}
	if got := mustRows(t, conv); !reflect.DeepEqual(got, [][]string{{"name", "pop"}, {"Tokyo", "100"}}) {
		t.Fatalf("converted = %v", got)
	}

	var buf bytes.Buffer
	if err := conv.Write(&buf, true, table.CSVOptions{Comma: '\t'}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Tokyo\t100\n" {
		t.Fatalf("Write = %q", buf.String())
	}

	book := filepath.Join(t.TempDir(), "out.xlsx")
	if err := conv.Save(book, table.CSVOptions{}); err != nil {
		t.Fatal(err)
	}
	back, err := r.Open(ctx, book, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer back.Close()
	if got := mustRows(t, back); !reflect.DeepEqual(got, mustRows(t, conv)) {
		t.Fatalf("workbook round trip = %v", got)
	}

	path := conv.Path()
	if err := conv.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("temp file left after Close: %v", err)
	}
}

func TestTable_Merge(t *testing.T) {
	t.Parallel()

	r := newRunner(t)
	ctx := context.Background()
	a, err := r.FromRows([][]string{{"name", "pop"}, {"Tokyo", "100"}})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := r.FromRows([][]string{{"pop", "area", "name"}, {"50", "3", "Osaka"}})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	m, err := a.Merge(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	want := [][]string{{"name", "pop"}, {"Tokyo", "100"}, {"Osaka", "50"}}
	if got := mustRows(t, m); !reflect.DeepEqual(got, want) {
		t.Fatalf("merged = %v, want %v", got, want)
	}

	c, err := r.FromRows([][]string{{"name"}, {"Kyoto"}})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := a.Merge(ctx, c); !errors.Is(err, params.ErrUnknownColumn) {
		t.Fatalf("err = %v, want ErrUnknownColumn", err)
	}
}
