package convertor

import (
	"fmt"

	"tablelinker/internal/params"
)

// Names of the parameters shared by the column-shaping bases.
const (
	ParamInput       = "input_attr_idx"
	ParamOutputName  = "output_attr_name"
	ParamOutputNames = "output_attr_names"
	ParamOutputIdx   = "output_attr_idx"
	ParamOverwrite   = "overwrite"
)

// InputOutputParams returns the parameters every single-output convertor
// starts with. Convertors append their own with Concat.
func InputOutputParams() *params.ParamSet {
	return params.NewSet(
		params.InputColumn(ParamInput, params.Required(),
			params.Label("入力列"), params.Describe("処理をする対象の列")),
		params.String(ParamOutputName,
			params.Label("出力列名"), params.Describe("変換結果を出力する列名です。"),
			params.Help("空もしくは既存の名前が指定された場合、置換となります。")),
		params.OutputColumn(ParamOutputIdx,
			params.Label("出力列の位置"), params.Describe("新しい列の挿入位置です。")),
		params.Bool(ParamOverwrite, params.Default(false),
			params.Label("上書き"), params.Describe("既に値が存在する場合に上書きするか指定します。")),
	)
}

// InputOutputsParams returns the parameters every multi-output convertor
// starts with.
func InputOutputsParams() *params.ParamSet {
	return params.NewSet(
		params.InputColumn(ParamInput, params.Required(),
			params.Label("入力列"), params.Describe("処理をする対象の列")),
		params.StringList(ParamOutputNames, params.Default([]string{}),
			params.Label("出力列名のリスト"), params.Describe("変換結果を出力する列名のリストです。"),
			params.Help("既存の列名が指定された場合、置換となります。")),
		params.OutputColumn(ParamOutputIdx,
			params.Label("出力列の位置"), params.Describe("新しい列の挿入位置です。")),
		params.Bool(ParamOverwrite, params.Default(false),
			params.Label("上書き"), params.Describe("既に値が存在する場合に上書きするか指定します。")),
	)
}

// ValueFunc computes the output cell for one record. Returning ok == false
// leaves the destination as it was: the existing value, or "" for a new
// column. The row is emitted either way.
type ValueFunc func(record []string, ctx *Context) (value string, ok bool)

// SetupFunc reads convertor-specific parameters once per run.
type SetupFunc func(ctx *Context) error

// InputOutput is the base for convertors that compute one column from one
// input column. It handles where the result goes: replacing the input
// column, replacing a named column, or inserting a new one.
type InputOutput struct {
	meta  *Meta
	value ValueFunc
	setup SetupFunc

	Input      int
	OutputName string
	Output     int

	del       int
	overwrite bool
}

// NewInputOutput returns the base for meta. A nil value copies the input
// cell.
func NewInputOutput(meta *Meta, value ValueFunc, setup SetupFunc) *InputOutput {
	return &InputOutput{meta: meta, value: value, setup: setup, Output: -1, del: -1}
}

func (c *InputOutput) Meta() *Meta { return c.meta }

func (c *InputOutput) Initial(ctx *Context) error {
	var err error
	if c.Input, _, err = ctx.Index(ParamInput); err != nil {
		return err
	}
	if c.OutputName, err = ctx.String(ParamOutputName); err != nil {
		return err
	}
	out, ok, err := ctx.Index(ParamOutputIdx)
	if err != nil {
		return err
	}
	c.Output = -1
	if ok {
		c.Output = out
	}
	if c.overwrite, err = ctx.Bool(ParamOverwrite); err != nil {
		return err
	}
	if c.setup != nil {
		return c.setup(ctx)
	}
	return nil
}

func (c *InputOutput) ProcessHeader(headers []string, ctx *Context) error {
	c.del = -1
	switch {
	case c.OutputName == "":
		c.OutputName = headers[c.Input]
		c.del = c.Input
	default:
		for i, h := range headers {
			if h == c.OutputName {
				c.del = i
				break
			}
		}
		if c.del < 0 {
			c.overwrite = true
		}
	}
	if c.Output < 0 {
		if c.del >= 0 {
			c.Output = c.del
		} else {
			c.Output = len(headers)
		}
	}
	return ctx.Output(Reorder(headers, c.del, c.Output, c.OutputName))
}

func (c *InputOutput) ProcessRecord(record []string, ctx *Context) error {
	var old string
	if c.del >= 0 && c.del < len(record) {
		old = record[c.del]
	}
	value := old
	if c.overwrite || old == "" {
		if v, ok := c.compute(record, ctx); ok {
			value = v
		}
	}
	return ctx.Output(Reorder(record, c.del, c.Output, value))
}

func (c *InputOutput) compute(record []string, ctx *Context) (string, bool) {
	if c.value == nil {
		return record[c.Input], true
	}
	return c.value(record, ctx)
}

// Overwrite reports the effective overwrite flag. It is forced on once the
// header shows the output column is new.
func (c *InputOutput) Overwrite() bool { return c.overwrite }

// ValuesFunc computes all output cells for one record. ok == false keeps
// every destination as it was.
type ValuesFunc func(record []string, ctx *Context) (values []string, ok bool)

// InputOutputs is the base for convertors that compute several columns
// from one input column. Each output independently keeps a non-empty
// existing value unless overwrite is set.
type InputOutputs struct {
	meta   *Meta
	values ValuesFunc
	setup  SetupFunc

	Input       int
	OutputNames []string
	Output      int

	overwrite bool
	// old holds the header position of each output name, -1 when new.
	old []int
	// dels holds the same positions adjusted for earlier removals.
	dels []int
}

// NewInputOutputs returns the base for meta.
func NewInputOutputs(meta *Meta, values ValuesFunc, setup SetupFunc) *InputOutputs {
	return &InputOutputs{meta: meta, values: values, setup: setup, Output: -1}
}

func (c *InputOutputs) Meta() *Meta { return c.meta }

func (c *InputOutputs) Initial(ctx *Context) error {
	var err error
	if c.Input, _, err = ctx.Index(ParamInput); err != nil {
		return err
	}
	if c.OutputNames, err = ctx.Strings(ParamOutputNames); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.OutputNames))
	for _, name := range c.OutputNames {
		if seen[name] {
			return fmt.Errorf("param %q: %w: duplicate column %q", ParamOutputNames, params.ErrValue, name)
		}
		seen[name] = true
	}
	out, ok, err := ctx.Index(ParamOutputIdx)
	if err != nil {
		return err
	}
	c.Output = -1
	if ok {
		c.Output = out
	}
	if c.overwrite, err = ctx.Bool(ParamOverwrite); err != nil {
		return err
	}
	if c.setup != nil {
		return c.setup(ctx)
	}
	return nil
}

func (c *InputOutputs) ProcessHeader(headers []string, ctx *Context) error {
	c.old = make([]int, len(c.OutputNames))
	for i, name := range c.OutputNames {
		c.old[i] = -1
		for j, h := range headers {
			if h == name {
				c.old[i] = j
				break
			}
		}
	}
	if c.Output < 0 || c.Output >= len(headers) {
		c.Output = len(headers)
	}

	c.dels = append([]int(nil), c.old...)
	for i := range c.dels {
		d := c.dels[i]
		if d < 0 {
			continue
		}
		if d < c.Output {
			c.Output--
		}
		for j := i + 1; j < len(c.dels); j++ {
			if c.dels[j] >= 0 && d < c.dels[j] {
				c.dels[j]--
			}
		}
	}
	return ctx.Output(ReorderMany(headers, c.dels, c.Output, c.OutputNames))
}

func (c *InputOutputs) ProcessRecord(record []string, ctx *Context) error {
	olds := make([]string, len(c.old))
	for i, idx := range c.old {
		if idx >= 0 && idx < len(record) {
			olds[i] = record[idx]
		}
	}

	var (
		computed []string
		done     bool
		ok       bool
	)
	compute := func() {
		if !done {
			computed, ok = c.compute(record, ctx)
			done = true
		}
	}

	vals := make([]string, len(olds))
	for i, old := range olds {
		vals[i] = old
		if !c.overwrite && old != "" {
			continue
		}
		compute()
		if ok && i < len(computed) {
			vals[i] = computed[i]
		} else if ok {
			vals[i] = ""
		}
	}
	return ctx.Output(ReorderMany(record, c.dels, c.Output, vals))
}

func (c *InputOutputs) compute(record []string, ctx *Context) ([]string, bool) {
	if c.values == nil {
		return []string{record[c.Input]}, true
	}
	return c.values(record, ctx)
}
