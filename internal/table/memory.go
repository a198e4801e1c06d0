package table

import "io"

// MemorySource serves rows from an in-memory slice.
type MemorySource struct {
	rows   [][]string
	pos    int
	pulled int
	open   bool
}

// NewMemorySource returns a source over rows. Rows are copied on Next, so
// convertors may modify what they receive.
func NewMemorySource(rows [][]string) *MemorySource {
	return &MemorySource{rows: rows}
}

func (m *MemorySource) Open() error {
	m.open = true
	m.pos = 0
	return nil
}

func (m *MemorySource) Reset() error {
	if !m.open {
		return ErrNotOpen
	}
	m.pos = 0
	return nil
}

func (m *MemorySource) Next() ([]string, error) {
	if !m.open {
		return nil, ErrNotOpen
	}
	if m.pos >= len(m.rows) {
		return nil, io.EOF
	}
	row := append([]string(nil), m.rows[m.pos]...)
	m.pos++
	m.pulled++
	return row, nil
}

func (m *MemorySource) Close() error {
	m.open = false
	return nil
}

// Pulled returns how many rows Next has handed out over the source's life.
func (m *MemorySource) Pulled() int { return m.pulled }

// MemorySink collects appended rows.
type MemorySink struct {
	rows [][]string
	open bool
}

// NewMemorySink returns an empty collector.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Open discards rows from a previous use.
func (m *MemorySink) Open() error {
	m.open = true
	m.rows = nil
	return nil
}

func (m *MemorySink) Append(row []string) error {
	if !m.open {
		return ErrNotOpen
	}
	m.rows = append(m.rows, append([]string(nil), row...))
	return nil
}

func (m *MemorySink) Close() error {
	m.open = false
	return nil
}

// Rows returns the collected rows, header first.
func (m *MemorySink) Rows() [][]string { return m.rows }
