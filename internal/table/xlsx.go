package table

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXSource serves the rows of one worksheet. The sheet is read into memory
// on Open; excelize omits trailing empty cells, so every row is padded to the
// width of the widest row.
type XLSXSource struct {
	path  string
	sheet string

	rows [][]string
	pos  int
	open bool
}

// NewXLSXSource returns a source over sheet of the workbook at path. An
// empty sheet name selects the first worksheet.
func NewXLSXSource(path, sheet string) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet}
}

func (s *XLSXSource) Open() error {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	sheet := s.sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return errors.New("no sheets found in " + s.path)
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q of %s: %w", sheet, s.path, err)
	}

	// leading blank rows are not part of the table
	for len(rows) > 0 && len(rows[0]) == 0 {
		rows = rows[1:]
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for i, r := range rows {
		if len(r) < width {
			rows[i] = append(r, make([]string, width-len(r))...)
		}
	}

	s.rows, s.pos, s.open = rows, 0, true
	return nil
}

func (s *XLSXSource) Reset() error {
	if !s.open {
		return ErrNotOpen
	}
	s.pos = 0
	return nil
}

func (s *XLSXSource) Next() ([]string, error) {
	if !s.open {
		return nil, ErrNotOpen
	}
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := append([]string(nil), s.rows[s.pos]...)
	s.pos++
	return row, nil
}

func (s *XLSXSource) Close() error {
	s.rows, s.open = nil, false
	return nil
}

// XLSXSink writes rows to a single-sheet workbook, saved on Close.
type XLSXSink struct {
	path  string
	sheet string

	f   *excelize.File
	row int
}

// NewXLSXSink returns a sink writing to path. An empty sheet name keeps
// the workbook's default sheet.
func NewXLSXSink(path, sheet string) *XLSXSink {
	return &XLSXSink{path: path, sheet: sheet}
}

func (s *XLSXSink) Open() error {
	f := excelize.NewFile()
	if s.sheet != "" {
		if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
			_ = f.Close()
			return fmt.Errorf("name sheet %q: %w", s.sheet, err)
		}
	} else {
		s.sheet = f.GetSheetName(0)
	}
	s.f, s.row = f, 0
	return nil
}

func (s *XLSXSink) Append(row []string) error {
	if s.f == nil {
		return ErrNotOpen
	}
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	vals := make([]any, len(row))
	for i, v := range row {
		vals[i] = v
	}
	if err := s.f.SetSheetRow(s.sheet, cell, &vals); err != nil {
		return fmt.Errorf("write row %d: %w", s.row, err)
	}
	return nil
}

func (s *XLSXSink) Close() error {
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	if err := f.SaveAs(s.path); err != nil {
		_ = f.Close()
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}
	return f.Close()
}
