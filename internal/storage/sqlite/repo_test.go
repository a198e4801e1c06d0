package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tablelinker/internal/storage"
)

func TestCreateTableSQL(t *testing.T) {
	got := CreateTableSQL("main.pop", []string{"name", `a"b`})
	want := "CREATE TABLE IF NOT EXISTS \"main\".\"pop\" (\n  \"name\" TEXT,\n  \"a\"\"b\" TEXT\n);"
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}

func TestSinkRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "out.db")
	cfg := storage.Config{Kind: "sqlite", DSN: dsn, Table: "cities"}

	repo, err := storage.New(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	sink := storage.NewSink(ctx, repo, cfg, storage.SinkOptions{BatchSize: 2})
	rows := [][]string{{"name", "人口"}, {"Tokyo", "100"}, {"Osaka", "50"}, {"Nagoya", "30"}}
	if err := sink.Open(); err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if err := sink.Append(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := repo.(*wrappedRepo).Query(ctx, `SELECT name, "人口" FROM cities ORDER BY rowid`)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rows[1:]) {
		t.Fatalf("rows = %v, want %v", got, rows[1:])
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	_, _, err := NewRepository(context.Background(), Config{})
	if err == nil || !strings.Contains(err.Error(), "DSN") {
		t.Fatalf("err = %v", err)
	}
}

func TestRegistrationUsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var got Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: "x.db", Table: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if got != (Config{DSN: "x.db", Table: "t"}) {
		t.Errorf("config = %+v", got)
	}
	repo.Close()
	if !closed {
		t.Errorf("Close did not reach the repository")
	}
}
