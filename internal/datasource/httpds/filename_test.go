package httpds

import "testing"

func TestBaseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/files/data.xlsx?dl=1", "data.xlsx"},
		{"https://example.com/a/b.csv", "b.csv"},
		{"https://example.com/", HashString("https://example.com/")},
		{"https://example.com", HashString("https://example.com")},
		{":// not a url", HashString(":// not a url")},
	}
	for _, tt := range tests {
		if got := BaseName(tt.url); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestHashString_Stable(t *testing.T) {
	t.Parallel()
	a, b := HashString("x"), HashString("x")
	if a == "" || a != b || a == HashString("y") {
		t.Fatalf("HashString not stable or not distinct: %q %q", a, b)
	}
}
