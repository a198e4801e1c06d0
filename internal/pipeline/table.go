package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tablelinker/internal/cleaner"
	"tablelinker/internal/config"
	"tablelinker/internal/datasource"
	"tablelinker/internal/datasource/httpds"
	"tablelinker/internal/table"
)

// OpenOptions controls how Open reads an input.
type OpenOptions struct {
	// Encoding, Delimiter and SkipLines override detection.
	Encoding  string
	Delimiter rune
	SkipLines *int

	// NoClean reads the input as UTF-8 CSV with Delimiter as is.
	NoClean bool

	// Sheet selects the worksheet of an .xlsx input. Empty means the first.
	Sheet string

	// HTTP fetches URL inputs. Nil uses a default client.
	HTTP *httpds.Client
}

// Table is a clean UTF-8 CSV file managed by a Runner. Tables created by
// the runner own their file and remove it on Close.
type Table struct {
	r     *Runner
	path  string
	owned bool
}

// Open reads a local path or URL into a new table. Delimited text is
// passed through the cleaner; .xlsx workbooks are read with their first
// (or the named) sheet. A .tsv input is read as tab separated unless
// opt names a delimiter.
func (r *Runner) Open(ctx context.Context, loc string, opt OpenOptions) (*Table, error) {
	src := datasource.Resolve(loc, opt.HTTP)
	switch datasource.Ext(loc) {
	case ".xlsx":
		return r.openWorkbook(ctx, loc, src, opt.Sheet)
	case ".tsv":
		if opt.Delimiter == 0 {
			opt.Delimiter = '\t'
		}
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return r.FromReader(ctx, rc, opt)
}

// FromReader cleans the delimited text read from in into a new table.
func (r *Runner) FromReader(ctx context.Context, in io.Reader, opt OpenOptions) (*Table, error) {
	copt := cleaner.Options{Encoding: opt.Encoding, Delimiter: opt.Delimiter, SkipLines: opt.SkipLines}
	if opt.NoClean {
		zero := 0
		copt = cleaner.Options{Encoding: "utf-8", Delimiter: opt.Delimiter, SkipLines: &zero}
		if copt.Delimiter == 0 {
			copt.Delimiter = ','
		}
	}

	t := r.newTable()
	f, err := os.Create(t.path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", t.path, err)
	}
	res, err := cleaner.Clean(in, f, copt)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		t.Close()
		return nil, err
	}
	r.logger(ctx).Debug("input cleaned",
		"encoding", res.Encoding,
		"delimiter", string(res.Delimiter),
		"skip_lines", res.SkipLines,
		"rows", res.Rows,
	)
	return t, nil
}

func (r *Runner) openWorkbook(ctx context.Context, loc string, src datasource.Source, sheet string) (*Table, error) {
	path := loc
	if datasource.IsURL(loc) {
		rc, err := src.Open(ctx)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		path = strings.TrimSuffix(r.tempPath(), ".csv") + ".xlsx"
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		defer os.Remove(path)
		_, err = io.Copy(f, rc)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", loc, err)
		}
	}

	t := r.newTable()
	if err := table.Copy(table.NewXLSXSource(path, sheet), table.NewCSVSink(t.path, table.CSVOptions{})); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// FromRows writes rows to a new table.
func (r *Runner) FromRows(rows [][]string) (*Table, error) {
	t := r.newTable()
	if err := table.Copy(table.NewMemorySource(rows), table.NewCSVSink(t.path, table.CSVOptions{})); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func (r *Runner) newTable() *Table {
	return &Table{r: r, path: r.tempPath(), owned: true}
}

// Path returns the backing CSV file.
func (t *Table) Path() string { return t.path }

// Source returns a fresh source over the table.
func (t *Table) Source() table.Source {
	return table.NewCSVSource(t.path, table.CSVOptions{LazyQuotes: true})
}

// Convert applies tasks in order and returns the result as a new table.
// t is left unchanged.
func (t *Table) Convert(ctx context.Context, tasks ...config.Task) (*Table, error) {
	out := t.r.newTable()
	if err := t.r.RunFile(ctx, tasks, t.path, out.path, table.CSVOptions{LazyQuotes: true}); err != nil {
		return nil, err
	}
	return out, nil
}

// Rows reads the whole table, header first.
func (t *Table) Rows() ([][]string, error) {
	src := t.Source()
	if err := src.Open(); err != nil {
		return nil, err
	}
	defer src.Close()
	return table.ReadAll(src)
}

// Header returns the first row.
func (t *Table) Header() ([]string, error) {
	src := t.Source()
	if err := src.Open(); err != nil {
		return nil, err
	}
	defer src.Close()
	row, err := src.Next()
	if err == io.EOF {
		return nil, nil
	}
	return row, err
}

// Write copies the table to w, optionally without its header.
func (t *Table) Write(w io.Writer, skipHeader bool, opt table.CSVOptions) error {
	return copyRows(t.Source(), table.NewWriterSink(w, opt), skipHeader)
}

// Save writes the table to path: a workbook for .xlsx, delimited text
// otherwise.
func (t *Table) Save(path string, opt table.CSVOptions) error {
	var sink table.Sink = table.NewCSVSink(path, opt)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		sink = table.NewXLSXSink(path, "")
	}
	if err := table.Copy(t.Source(), sink); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Merge returns a new table holding t followed by the rows of other.
// other's columns are reordered to t's header; a header name other does
// not have fails with a column error.
func (t *Table) Merge(ctx context.Context, other *Table) (*Table, error) {
	header, err := t.Header()
	if err != nil {
		return nil, err
	}
	cols := make([]any, len(header))
	for i, h := range header {
		cols[i] = h
	}
	aligned, err := other.Convert(ctx, config.Task{
		Convertor: "reorder_cols",
		Params:    config.Options{"column_list": cols},
	})
	if err != nil {
		return nil, err
	}
	defer aligned.Close()

	out := t.r.newTable()
	sink := table.NewCSVSink(out.path, table.CSVOptions{})
	if err := sink.Open(); err != nil {
		return nil, err
	}
	err = drain(t.Source(), sink, false)
	if err == nil {
		err = drain(aligned.Source(), sink, true)
	}
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}

// drain appends src to an already open sink.
func drain(src table.Source, sink table.Sink, skipHeader bool) (err error) {
	if err := src.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); err == nil {
			err = cerr
		}
	}()
	return appendRows(src, sink, skipHeader)
}

// Close removes the backing file of a table created by the runner.
func (t *Table) Close() error {
	if !t.owned {
		return nil
	}
	t.owned = false
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// copyRows appends every row of src to sink, skipping the first one when
// skipHeader is set.
func copyRows(src table.Source, sink table.Sink, skipHeader bool) error {
	return table.Scoped(src, sink, func() error {
		return appendRows(src, sink, skipHeader)
	})
}

func appendRows(src table.Source, sink table.Sink, skipHeader bool) error {
	for i := 0; ; i++ {
		row, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if i == 0 && skipHeader {
			continue
		}
		if err := sink.Append(row); err != nil {
			return err
		}
	}
}
