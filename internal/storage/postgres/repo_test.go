package postgres

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"

	"tablelinker/internal/storage"
)

func TestCreateTableSQL(t *testing.T) {
	got := CreateTableSQL("public.cities", []string{"name", "人口"})
	want := "CREATE TABLE IF NOT EXISTS \"public\".\"cities\" (\n  \"name\" text,\n  \"人口\" text\n);"
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}

func TestSplitFQN(t *testing.T) {
	tests := []struct {
		in   string
		want pgx.Identifier
	}{
		{"cities", pgx.Identifier{"cities"}},
		{"public.cities", pgx.Identifier{"public", "cities"}},
		{"public.a.b", pgx.Identifier{"public", "a.b"}},
	}
	for _, tt := range tests {
		if got := splitFQN(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitFQN(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFactoryPassesConfig(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	boom := errors.New("boom")
	var got Config
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return nil, nil, boom
	}
	_, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://x", Table: "public.t"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if got != (Config{DSN: "postgres://x", Table: "public.t"}) {
		t.Errorf("config = %+v", got)
	}
}
