package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tablelinker/internal/pipeline"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	runner := &pipeline.Runner{
		TempDir: t.TempDir(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	ts := httptest.NewServer(New(Config{}, runner).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postConvert(t *testing.T, url string, fields map[string]string, file string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != "" {
		fw, err := mw.CreateFormFile("file", "in.csv")
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, file)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url+"/convert", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(b) != "ok\n" {
		t.Fatalf("status=%d body=%q", resp.StatusCode, b)
	}
}

func TestConvertors(t *testing.T) {
	ts := newTestServer(t)

	list := func(t *testing.T, query string) []metaView {
		t.Helper()
		resp, err := http.Get(ts.URL + "/convertors" + query)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var out []metaView
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		return out
	}
	find := func(ms []metaView, key string) (metaView, bool) {
		for _, m := range ms {
			if m.Key == key {
				return m, true
			}
		}
		return metaView{}, false
	}

	tests := []struct {
		name   string
		query  string
		key    string
		wantIn bool
	}{
		{"all", "", "rename_col", true},
		{"one column", "?attrs=1", "rename_col", true},
		{"no column", "?attrs=0", "rename_col", false},
		{"extras registered", "", "to_seireki", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := find(list(t, tt.query), tt.key)
			if ok != tt.wantIn {
				t.Fatalf("%s listed = %v, want %v", tt.key, ok, tt.wantIn)
			}
		})
	}

	t.Run("param kinds", func(t *testing.T) {
		m, ok := find(list(t, ""), "rename_col")
		if !ok {
			t.Fatal("rename_col missing")
		}
		if len(m.Params) != 2 || m.Params[0].Name != "input_attr_idx" || m.Params[0].Kind != "input-column" || !m.Params[0].Required {
			t.Fatalf("params = %+v", m.Params)
		}
	})

	t.Run("bad attrs", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/convertors?attrs=x")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
}

func TestConvert(t *testing.T) {
	ts := newTestServer(t)
	const input = "name,pop\nTokyo,100\nOsaka,50\n"

	tests := []struct {
		name     string
		fields   map[string]string
		file     string
		status   int
		wantBody string
		wantCode string
	}{
		{
			name:     "rename",
			fields:   map[string]string{"task": `{"convertor":"rename_col","params":{"input_attr_idx":"pop","new_col_name":"人口"}}`},
			file:     input,
			status:   http.StatusOK,
			wantBody: "name,人口\nTokyo,100\nOsaka,50\n",
		},
		{
			name: "tab output without header",
			fields: map[string]string{
				"task":        `[{"convertor":"delete_col","params":{"input_col_idx":0}}]`,
				"delimiter":   "\t",
				"skip_header": "true",
			},
			file:     input,
			status:   http.StatusOK,
			wantBody: "100\n50\n",
		},
		{
			name:     "unknown convertor",
			fields:   map[string]string{"task": `{"convertor":"nope","params":{}}`},
			file:     input,
			status:   http.StatusBadRequest,
			wantCode: "invalid_task",
		},
		{
			name:     "unknown column",
			fields:   map[string]string{"task": `{"convertor":"delete_col","params":{"input_col_idx":"area"}}`},
			file:     input,
			status:   http.StatusBadRequest,
			wantCode: "invalid_task",
		},
		{
			name:     "malformed task",
			fields:   map[string]string{"task": `{"convertor":"noop"}`},
			file:     input,
			status:   http.StatusBadRequest,
			wantCode: "invalid_task",
		},
		{
			name:     "missing file",
			fields:   map[string]string{"task": `{"convertor":"noop","params":{}}`},
			status:   http.StatusBadRequest,
			wantCode: "bad_request",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postConvert(t, ts.URL, tt.fields, tt.file)
			b, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, tt.status, b)
			}
			if tt.status == http.StatusOK {
				if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
					t.Errorf("content type = %q", ct)
				}
				if string(b) != tt.wantBody {
					t.Fatalf("body = %q, want %q", b, tt.wantBody)
				}
				return
			}
			var er errorResponse
			if err := json.Unmarshal(b, &er); err != nil {
				t.Fatalf("decode %s: %v", b, err)
			}
			if er.Code != tt.wantCode || er.Error == "" {
				t.Fatalf("error = %+v, want code %s", er, tt.wantCode)
			}
		})
	}
}
