package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tablelinker/internal/config"
	"tablelinker/internal/convertor"
	"tablelinker/internal/logging"
	"tablelinker/internal/params"
	"tablelinker/internal/pipeline"
	"tablelinker/internal/table"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	code := "internal"
	switch {
	case status == http.StatusBadRequest && pipeline.IsConfigError(err):
		code = "invalid_task"
	case status == http.StatusBadRequest:
		code = "bad_request"
	case status == http.StatusRequestEntityTooLarge:
		code = "too_large"
	}
	level := logging.FromContext(r.Context()).Warn
	if status >= 500 {
		level = logging.FromContext(r.Context()).Error
	}
	level("request error", "path", r.URL.Path, "status", status, "code", code, "error", err)

	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

type paramView struct {
	params.Param
	Kind string `json:"kind"`
}

type metaView struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	HelpText    string      `json:"help_text,omitempty"`
	Params      []paramView `json:"params"`
}

func newMetaView(m *convertor.Meta) metaView {
	v := metaView{Key: m.Key, Name: m.Name, Description: m.Description, HelpText: m.HelpText, Params: []paramView{}}
	if m.Params != nil {
		for _, p := range m.Params.All() {
			v.Params = append(v.Params, paramView{Param: p, Kind: p.Kind.String()})
		}
	}
	return v
}

// handleConvertors lists the selectable convertors. With attrs=N only
// those that apply to a selection of N columns are returned.
func (s *Server) handleConvertors(w http.ResponseWriter, r *http.Request) {
	var metas []*convertor.Meta
	reg := s.runner.Registry
	if raw := r.URL.Query().Get("attrs"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, r, fmt.Errorf("attrs must be a non-negative integer, got %q", raw), http.StatusBadRequest)
			return
		}
		attrs := make([]string, n)
		for i := range attrs {
			attrs[i] = "col" + strconv.Itoa(i)
		}
		metas = reg.MetaList(attrs)
	} else {
		for _, key := range reg.Keys() {
			if m, ok := reg.Meta(key); ok {
				metas = append(metas, m)
			}
		}
	}

	out := make([]metaView, 0, len(metas))
	for _, m := range metas {
		out = append(out, newMetaView(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleConvert runs the posted task over the posted table. Optional form
// fields: no_clean (bool), delimiter (output), skip_header (bool).
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("parse form: %w", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	tasks, err := config.DecodeTasks(strings.NewReader(r.FormValue("task")))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("file: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	opt := pipeline.OpenOptions{NoClean: formBool(r, "no_clean")}
	in, err := s.runner.FromReader(r.Context(), file, opt)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer in.Close()

	out, err := in.Convert(r.Context(), tasks...)
	if err != nil {
		status := http.StatusInternalServerError
		if pipeline.IsConfigError(err) {
			status = http.StatusBadRequest
		}
		s.respondError(w, r, err, status)
		return
	}
	defer out.Close()

	wopt := table.CSVOptions{}
	if d := []rune(r.FormValue("delimiter")); len(d) == 1 {
		wopt.Comma = d[0]
	}
	// Buffer so a late write error can still become an error reply.
	var buf bytes.Buffer
	if err := out.Write(&buf, formBool(r, "skip_header"), wopt); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func formBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.FormValue(key))
	return b
}
