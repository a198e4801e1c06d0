package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

type fakeRepo struct {
	mu      sync.Mutex
	execs   []string
	batches [][][]any
	cols    []string
	failAt  int
	closed  bool
}

func (f *fakeRepo) Exec(_ context.Context, sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeRepo) CopyFrom(_ context.Context, cols []string, rows [][]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt > 0 && len(f.batches)+1 == f.failAt {
		return 0, errors.New("disk full")
	}
	cp := make([][]any, len(rows))
	copy(cp, rows)
	f.batches = append(f.batches, cp)
	f.cols = cols
	return int64(len(rows)), nil
}

func (f *fakeRepo) Close() { f.closed = true }

func init() {
	RegisterDDL("fake", func(table string, cols []string) string {
		return "CREATE " + table + " (" + strings.Join(cols, ",") + ")"
	})
}

func TestSink(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	s := NewSink(context.Background(), repo, Config{Kind: "fake", Table: "t"}, SinkOptions{BatchSize: 2})
	rows := [][]string{{"name", "", "name"}, {"a", "1", "x"}, {"b", "2"}, {"c", "3", "z"}}
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if err := s.Append(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if want := []string{"CREATE t (name,col_2,name_2)"}; !reflect.DeepEqual(repo.execs, want) {
		t.Errorf("execs = %v, want %v", repo.execs, want)
	}
	if len(repo.batches) != 2 || len(repo.batches[0]) != 2 || len(repo.batches[1]) != 1 {
		t.Fatalf("batches = %v", repo.batches)
	}
	if got := repo.batches[0][1]; !reflect.DeepEqual(got, []any{"b", "2", ""}) {
		t.Errorf("short row = %v, want padded", got)
	}
	if s.Exported() != 3 {
		t.Errorf("exported = %d, want 3", s.Exported())
	}
}

func TestSink_CopyError(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{failAt: 1}
	s := NewSink(context.Background(), repo, Config{Kind: "fake", Table: "t"}, SinkOptions{BatchSize: 1})
	s.Open()
	var err error
	for _, r := range [][]string{{"a"}, {"1"}, {"2"}, {"3"}, {"4"}} {
		if err = s.Append(r); err != nil {
			break
		}
	}
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want disk full", err)
	}
}

func TestSink_HeaderOnly(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	s := NewSink(context.Background(), repo, Config{Kind: "fake", Table: "t"}, SinkOptions{})
	s.Open()
	if err := s.Append([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if len(repo.execs) != 1 || len(repo.batches) != 0 {
		t.Fatalf("execs = %v batches = %v", repo.execs, repo.batches)
	}
}

func TestNew(t *testing.T) {
	Register("fake", func(_ context.Context, cfg Config) (Repository, error) { return &fakeRepo{}, nil })

	if _, err := New(context.Background(), Config{Kind: "nope", Table: "t"}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
	if _, err := New(context.Background(), Config{Kind: "fake"}); err == nil {
		t.Fatal("expected error for empty table")
	}
	repo, err := New(context.Background(), Config{Kind: "fake", Table: "t"})
	if err != nil {
		t.Fatal(err)
	}
	repo.Close()
	if err := EnsureTable(context.Background(), "nope", repo, "t", []string{"a"}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("EnsureTable err = %v", err)
	}
}

func TestColumnNames(t *testing.T) {
	got := ColumnNames([]string{" id ", "", "Name", "name", "name"})
	want := []string{"id", "col_2", "Name", "name_2", "name_3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ColumnNames = %v, want %v", got, want)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{QuoteWith("public.t", `"`, `"`), `"public"."t"`},
		{QuoteWith("dbo.a]b", "[", "]"), "[dbo].[a]]b]"},
		{QuoteIdent("人口.男", "`", "`"), "`人口.男`"},
		{QuoteIdent(`a"b`, `"`, `"`), `"a""b"`},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %s, want %s", tt.got, tt.want)
		}
	}
}
