package convertor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"tablelinker/internal/config"
	"tablelinker/internal/params"
	"tablelinker/internal/table"
)

// ErrUndeclaredParam is returned by GetParam for a name the convertor never
// declared. It indicates a bug in the convertor, not in the task.
var ErrUndeclaredParam = errors.New("parameter not declared")

// Data keys set by Process.
const (
	DataHeaders      = "headers"
	DataNumOfColumns = "num_of_columns"
)

// Stats counts rows for one convertor run. Read includes the header.
type Stats struct {
	Read    int
	Emitted int
	Dropped int
}

// Context binds one convertor instance to its raw parameters, a source and
// a sink. Every row a convertor sees or emits goes through it.
type Context struct {
	conv Convertor
	meta *Meta
	raw  config.Options

	// resolved holds column references after header resolution. It is
	// written once in Process and only read afterwards.
	resolved map[string]any

	src  table.Source
	sink table.Sink

	current []string
	data    map[string]any
	stats   Stats
	log     *slog.Logger
}

// ContextOption customizes a Context.
type ContextOption func(*Context)

// WithLogger sets the logger for warnings about parameters and dropped rows.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// NewContext checks raw against the convertor's declarations. Undeclared
// keys are logged and ignored; a missing required parameter fails with a
// *params.MissingError before any row is read.
func NewContext(conv Convertor, raw config.Options, src table.Source, sink table.Sink, opts ...ContextOption) (*Context, error) {
	c := &Context{
		conv:     conv,
		meta:     conv.Meta(),
		raw:      raw.Clone(),
		resolved: map[string]any{},
		src:      src,
		sink:     sink,
		data:     map[string]any{},
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("convertor", c.meta.Key)

	for _, k := range c.raw.Keys() {
		if !c.meta.Params.Has(k) {
			c.log.Warn("parameter is not available for this convertor", "param", k)
		}
	}
	for _, p := range c.meta.Params.All() {
		if p.Required && !c.raw.Has(p.Name) {
			c.log.Error("required parameter is missing", "param", p.Name)
			return nil, &params.MissingError{Convertor: c.meta.Key, Param: p.Name}
		}
	}
	return c, nil
}

// Convertor returns the bound convertor.
func (c *Context) Convertor() Convertor { return c.conv }

// Logger returns the context logger, tagged with the convertor key.
func (c *Context) Logger() *slog.Logger { return c.log }

// Open opens the source and then the sink.
func (c *Context) Open() error {
	if err := c.src.Open(); err != nil {
		return err
	}
	if err := c.sink.Open(); err != nil {
		_ = c.src.Close()
		return err
	}
	return nil
}

// Close closes the sink and the source, returning the first error.
func (c *Context) Close() error {
	serr := c.sink.Close()
	rerr := c.src.Close()
	if serr != nil {
		return serr
	}
	return rerr
}

// Reset rewinds the source to the header row.
func (c *Context) Reset() error {
	c.current = nil
	return c.src.Reset()
}

// Next reads one row and makes it current. It returns io.EOF at the end.
func (c *Context) Next() ([]string, error) {
	row, err := c.src.Next()
	if err != nil {
		return nil, err
	}
	c.stats.Read++
	c.current = row
	return row, nil
}

// Read calls fn for each remaining row. It stops at the end of the source
// or at the first error from fn. A second pass needs Reset.
func (c *Context) Read(fn func(row []string) error) error {
	for {
		row, err := c.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// Current returns the row most recently read.
func (c *Context) Current() []string { return c.current }

// Output appends row to the sink.
func (c *Context) Output(row []string) error {
	if err := c.sink.Append(row); err != nil {
		return err
	}
	c.stats.Emitted++
	return nil
}

// SetData stores a value for the lifetime of the context.
func (c *Context) SetData(name string, v any) { c.data[name] = v }

// GetData returns a value stored with SetData.
func (c *Context) GetData(name string) (any, bool) {
	v, ok := c.data[name]
	return v, ok
}

// Headers returns the resolved input header stored by Process.
func (c *Context) Headers() []string {
	h, _ := c.data[DataHeaders].([]string)
	return h
}

// Stats returns the row counters so far.
func (c *Context) Stats() Stats { return c.stats }

func (c *Context) drop(record []string, width int) {
	c.stats.Dropped++
	c.log.Warn("row dropped", "num_of_columns", width, "fields", len(record), "row", c.stats.Read)
}

// GetParam returns the value of a declared parameter: the resolved index
// for column references once the header has been read, otherwise the
// coerced raw value, or the declared default when absent.
func (c *Context) GetParam(name string) (any, error) {
	p, ok := c.meta.Params.Get(name)
	if !ok {
		c.log.Error("accessing undeclared parameter", "param", name)
		return nil, fmt.Errorf("convertor %q: %w: %q", c.meta.Key, ErrUndeclaredParam, name)
	}
	if v, ok := c.resolved[name]; ok {
		return v, nil
	}
	v, present := c.raw[name]
	if !present || v == nil {
		if p.Required && !present {
			return nil, &params.MissingError{Convertor: c.meta.Key, Param: name}
		}
		return p.Default, nil
	}
	out, err := p.Coerce(v)
	if err != nil {
		return nil, fmt.Errorf("convertor %q: %w", c.meta.Key, err)
	}
	return out, nil
}

// resolveColumns resolves every column reference against headers and
// returns the header after resolution. References already resolved are
// left as they are.
func (c *Context) resolveColumns(headers []string) ([]string, error) {
	for _, p := range c.meta.Params.All() {
		if !p.Kind.IsColumnRef() {
			continue
		}
		if _, done := c.resolved[p.Name]; done {
			continue
		}
		v, present := c.raw[p.Name]
		if !present || v == nil {
			v = p.Default
		}
		if v == nil {
			continue
		}
		idx, hdr, err := p.Resolve(v, headers)
		if err != nil {
			return headers, fmt.Errorf("convertor %q: %w", c.meta.Key, err)
		}
		c.resolved[p.Name] = idx
		headers = hdr
	}
	return headers, nil
}

// String returns a string parameter, "" when absent.
func (c *Context) String(name string) (string, error) {
	v, err := c.GetParam(name)
	if err != nil || v == nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %q: %w: got %T", name, params.ErrType, v)
	}
	return s, nil
}

// Int returns an integer parameter, 0 when absent.
func (c *Context) Int(name string) (int, error) {
	v, err := c.GetParam(name)
	if err != nil || v == nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("param %q: %w: got %T", name, params.ErrType, v)
	}
	return n, nil
}

// Bool returns a boolean parameter, false when absent.
func (c *Context) Bool(name string) (bool, error) {
	v, err := c.GetParam(name)
	if err != nil || v == nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %q: %w: got %T", name, params.ErrType, v)
	}
	return b, nil
}

// Strings returns a string list parameter.
func (c *Context) Strings(name string) ([]string, error) {
	v, err := c.GetParam(name)
	if err != nil || v == nil {
		return nil, err
	}
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, len(l))
		for i, x := range l {
			s, ok := x.(string)
			if !ok {
				return nil, fmt.Errorf("param %q: %w: item %d is %T", name, params.ErrType, i+1, x)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("param %q: %w: got %T", name, params.ErrType, v)
}

// Dict returns an object parameter with its key order.
func (c *Context) Dict(name string) (config.OrderedMap, error) {
	v, err := c.GetParam(name)
	if err != nil || v == nil {
		return config.OrderedMap{}, err
	}
	m, ok := config.AsOrderedMap(v)
	if !ok {
		return config.OrderedMap{}, fmt.Errorf("param %q: %w: got %T", name, params.ErrType, v)
	}
	return m, nil
}

// Index returns a resolved single column reference. ok is false when the
// parameter was not supplied and has no default.
func (c *Context) Index(name string) (idx int, ok bool, err error) {
	v, err := c.GetParam(name)
	if err != nil || v == nil {
		return 0, false, err
	}
	n, isInt := v.(int)
	if !isInt {
		return 0, false, fmt.Errorf("param %q: column is not resolved (%T)", name, v)
	}
	return n, true, nil
}

// Indexes returns a resolved column reference list.
func (c *Context) Indexes(name string) ([]int, error) {
	v, err := c.GetParam(name)
	if err != nil || v == nil {
		return nil, err
	}
	l, ok := v.([]int)
	if !ok {
		return nil, fmt.Errorf("param %q: columns are not resolved (%T)", name, v)
	}
	return l, nil
}
