package basics

import (
	"fmt"
	"regexp"
	"strings"

	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

// matcher decides whether a cell value matches the task's condition.
type matcher interface {
	setup(ctx *convertor.Context) error
	match(v string) bool
	// replace returns the updated cell for update_* convertors.
	replace(v, repl string) string
}

type exactMatch struct{ query string }

func (m *exactMatch) setup(ctx *convertor.Context) (err error) {
	m.query, err = ctx.String("query")
	return err
}
func (m *exactMatch) match(v string) bool { return v == m.query }
func (m *exactMatch) replace(v, repl string) string {
	if v == m.query {
		return repl
	}
	return v
}

type containsMatch struct{ query string }

func (m *containsMatch) setup(ctx *convertor.Context) (err error) {
	m.query, err = ctx.String("query")
	return err
}
func (m *containsMatch) match(v string) bool { return strings.Contains(v, m.query) }
func (m *containsMatch) replace(v, repl string) string {
	if m.query == "" {
		return v
	}
	return strings.ReplaceAll(v, m.query, repl)
}

// patternMatch anchors at the start of the cell for delete_ and select_,
// and replaces every match for update_.
type patternMatch struct{ re *regexp.Regexp }

func (m *patternMatch) setup(ctx *convertor.Context) error {
	p, err := ctx.String("pattern")
	if err != nil {
		return err
	}
	if m.re, err = regexp.Compile(p); err != nil {
		return fmt.Errorf("param %q: %w: %v", "pattern", params.ErrValue, err)
	}
	return nil
}
func (m *patternMatch) match(v string) bool {
	loc := m.re.FindStringIndex(v)
	return loc != nil && loc[0] == 0
}
func (m *patternMatch) replace(v, repl string) string {
	return m.re.ReplaceAllString(v, backref.ReplaceAllString(repl, "$${$1}"))
}

// backref matches \1 style group references, accepted alongside ${1}.
var backref = regexp.MustCompile(`\\(\d+)`)

type rowAction int

const (
	actionDelete rowAction = iota
	actionSelect
	actionUpdate
)

// rowFilter drops, keeps or rewrites rows depending on one column.
type rowFilter struct {
	meta   *convertor.Meta
	action rowAction
	m      matcher
	col    int
	repl   string
}

func (c *rowFilter) Meta() *convertor.Meta { return c.meta }

func (c *rowFilter) Initial(ctx *convertor.Context) error {
	name := "input_attr_idx"
	if c.action == actionUpdate {
		name = "input_col_idx"
	}
	var err error
	if c.col, _, err = ctx.Index(name); err != nil {
		return err
	}
	if c.action == actionUpdate {
		if c.repl, err = ctx.String("new"); err != nil {
			return err
		}
	}
	return c.m.setup(ctx)
}

func (c *rowFilter) ProcessHeader(headers []string, ctx *convertor.Context) error {
	return ctx.Output(headers)
}

func (c *rowFilter) ProcessRecord(record []string, ctx *convertor.Context) error {
	v := record[c.col]
	switch c.action {
	case actionDelete:
		if c.m.match(v) {
			return nil
		}
	case actionSelect:
		if !c.m.match(v) {
			return nil
		}
	case actionUpdate:
		record[c.col] = c.m.replace(v, c.repl)
	}
	return ctx.Output(record)
}

func rowMeta(key, name, desc string, action rowAction, pattern bool) *convertor.Meta {
	col := "input_attr_idx"
	if action == actionUpdate {
		col = "input_col_idx"
	}
	ps := []params.Param{params.InputColumn(col, params.Required(), params.Label("対象列"))}
	if pattern {
		ps = append(ps, params.String("pattern", params.Required(), params.Label("正規表現")))
	} else {
		ps = append(ps, params.String("query", params.Required(), params.Label("文字列")))
	}
	m := &convertor.Meta{Key: key, Name: name, Description: desc}
	if action == actionUpdate {
		ps = append(ps, params.String("new", params.Required(), params.Label("新しい文字列")))
	} else {
		m.CanApply = noColumns
	}
	m.Params = params.NewSet(ps...)
	return m
}

var (
	deleteStringMatchMeta    = rowMeta("delete_string_match", "文字列一致行削除", "指定した列が文字列と一致する行を削除します", actionDelete, false)
	deleteStringContainsMeta = rowMeta("delete_string_contains", "文字列包含行削除", "指定した列が文字列を含む行を削除します", actionDelete, false)
	deletePatternMatchMeta   = rowMeta("delete_pattern_match", "正規表現一致行削除", "指定した列が正規表現に一致する行を削除します", actionDelete, true)

	selectStringMatchMeta    = rowMeta("select_string_match", "文字列一致行選択", "指定した列が文字列と一致する行を選択します", actionSelect, false)
	selectStringContainsMeta = rowMeta("select_string_contains", "文字列包含行選択", "指定した列が文字列を含む行を選択します", actionSelect, false)
	selectPatternMatchMeta   = rowMeta("select_pattern_match", "正規表現一致行選択", "指定した列が正規表現に一致する行を選択します", actionSelect, true)

	updateStringMatchMeta    = rowMeta("update_string_match", "文字列一致置換", "指定した列が文字列と一致する場合に置き換えます", actionUpdate, false)
	updateStringContainsMeta = rowMeta("update_string_contains", "文字列包含置換", "指定した列に含まれる文字列を置き換えます", actionUpdate, false)
	updatePatternMatchMeta   = rowMeta("update_pattern_match", "正規表現置換", "指定した列の正規表現に一致する部分を置き換えます", actionUpdate, true)
)

func newDeleteStringMatch() convertor.Convertor {
	return &rowFilter{meta: deleteStringMatchMeta, action: actionDelete, m: &exactMatch{}}
}

func newDeleteStringContains() convertor.Convertor {
	return &rowFilter{meta: deleteStringContainsMeta, action: actionDelete, m: &containsMatch{}}
}

func newDeletePatternMatch() convertor.Convertor {
	return &rowFilter{meta: deletePatternMatchMeta, action: actionDelete, m: &patternMatch{}}
}

func newSelectStringMatch() convertor.Convertor {
	return &rowFilter{meta: selectStringMatchMeta, action: actionSelect, m: &exactMatch{}}
}

func newSelectStringContains() convertor.Convertor {
	return &rowFilter{meta: selectStringContainsMeta, action: actionSelect, m: &containsMatch{}}
}

func newSelectPatternMatch() convertor.Convertor {
	return &rowFilter{meta: selectPatternMatchMeta, action: actionSelect, m: &patternMatch{}}
}

func newUpdateStringMatch() convertor.Convertor {
	return &rowFilter{meta: updateStringMatchMeta, action: actionUpdate, m: &exactMatch{}}
}

func newUpdateStringContains() convertor.Convertor {
	return &rowFilter{meta: updateStringContainsMeta, action: actionUpdate, m: &containsMatch{}}
}

func newUpdatePatternMatch() convertor.Convertor {
	return &rowFilter{meta: updatePatternMatchMeta, action: actionUpdate, m: &patternMatch{}}
}
