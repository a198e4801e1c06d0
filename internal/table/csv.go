package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\uFEFF"

// CSVOptions tunes delimited-text reading and writing.
type CSVOptions struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// LazyQuotes relaxes quote handling on read.
	LazyQuotes bool
	// UseCRLF writes \r\n line endings.
	UseCRLF bool
}

func (o CSVOptions) comma() rune {
	if o.Comma == 0 {
		return ','
	}
	return o.Comma
}

// CSVSource reads rows from a delimited text file. Rows may have varying
// field counts; width policy is left to the caller. A UTF-8 BOM on the first
// cell is stripped.
type CSVSource struct {
	path string
	opt  CSVOptions

	f    *os.File
	cr   *csv.Reader
	line int
}

// NewCSVSource returns a source over the file at path.
func NewCSVSource(path string, opt CSVOptions) *CSVSource {
	return &CSVSource{path: path, opt: opt}
}

func (s *CSVSource) Open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	s.f = f
	s.rewind()
	return nil
}

func (s *CSVSource) rewind() {
	cr := csv.NewReader(bufio.NewReader(s.f))
	cr.Comma = s.opt.comma()
	cr.LazyQuotes = s.opt.LazyQuotes
	cr.FieldsPerRecord = -1 // tolerant; width is checked by the convertor
	s.cr = cr
	s.line = 0
}

func (s *CSVSource) Reset() error {
	if s.f == nil {
		return ErrNotOpen
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", s.path, err)
	}
	s.rewind()
	return nil
}

func (s *CSVSource) Next() ([]string, error) {
	if s.cr == nil {
		return nil, ErrNotOpen
	}
	rec, err := s.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("%s: %w", s.path, err)
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if s.line == 0 && len(rec) > 0 {
		rec[0] = strings.TrimPrefix(rec[0], utf8BOM)
	}
	s.line++
	return rec, nil
}

func (s *CSVSource) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f, s.cr = nil, nil
	return err
}

// CSVSink writes rows to a delimited text file, truncating it on Open.
type CSVSink struct {
	path string
	opt  CSVOptions

	f *os.File
	w *csv.Writer
}

// NewCSVSink returns a sink writing to path.
func NewCSVSink(path string, opt CSVOptions) *CSVSink {
	return &CSVSink{path: path, opt: opt}
}

// Path returns the destination file.
func (s *CSVSink) Path() string { return s.path }

func (s *CSVSink) Open() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	s.f = f
	s.w = NewCSVWriter(f, s.opt)
	return nil
}

func (s *CSVSink) Append(row []string) error {
	if s.w == nil {
		return ErrNotOpen
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *CSVSink) Close() error {
	if s.f == nil {
		return nil
	}
	s.w.Flush()
	werr := s.w.Error()
	cerr := s.f.Close()
	s.f, s.w = nil, nil
	if werr != nil {
		return fmt.Errorf("flush %s: %w", s.path, werr)
	}
	return cerr
}

// WriterSink writes rows to an arbitrary writer, e.g. stdout or an HTTP
// response. Close flushes but does not close the writer.
type WriterSink struct {
	out io.Writer
	opt CSVOptions
	w   *csv.Writer
}

// NewWriterSink returns a sink writing delimited text to w.
func NewWriterSink(w io.Writer, opt CSVOptions) *WriterSink {
	return &WriterSink{out: w, opt: opt}
}

func (s *WriterSink) Open() error {
	s.w = NewCSVWriter(s.out, s.opt)
	return nil
}

func (s *WriterSink) Append(row []string) error {
	if s.w == nil {
		return ErrNotOpen
	}
	return s.w.Write(row)
}

func (s *WriterSink) Close() error {
	if s.w == nil {
		return nil
	}
	s.w.Flush()
	err := s.w.Error()
	s.w = nil
	return err
}

// NewCSVWriter returns a csv.Writer configured from opt.
func NewCSVWriter(w io.Writer, opt CSVOptions) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = opt.comma()
	cw.UseCRLF = opt.UseCRLF
	return cw
}
