package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "table.csv")
	if err := os.WriteFile(present, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		path    string
		ctx     context.Context
		wantErr error
		want    string
	}{
		{name: "reads", path: present, ctx: context.Background(), want: "a,b\n1,2\n"},
		{name: "missing", path: filepath.Join(dir, "none.csv"), ctx: context.Background(), wantErr: os.ErrNotExist},
		{name: "canceled", path: present, ctx: canceled, wantErr: context.Canceled},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rc, err := NewLocal(tt.path).Open(tt.ctx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if rc != nil {
					t.Fatalf("got reader on error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer rc.Close()
			b, _ := io.ReadAll(rc)
			if string(b) != tt.want {
				t.Fatalf("content = %q, want %q", b, tt.want)
			}
		})
	}
}
