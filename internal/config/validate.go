// This file holds the structural checks applied to task files before any
// convertor runs. Findings are reported as Issue values so that callers can
// surface all of them at once.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// ErrInvalidTask is wrapped by errors returned from DecodeTasks when the task
// structure is malformed.
var ErrInvalidTask = errors.New("invalid task")

// Issue describes a single validation finding.
//
// Path is a dotted path into the task file (e.g. "[1].params.input_col_idx").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Issues is a list of findings.
type Issues []Issue

// HasErrors reports whether any issue has SeverityError.
func (is Issues) HasErrors() bool {
	for _, i := range is {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Err returns nil when there are no error-severity issues, otherwise an
// error wrapping ErrInvalidTask that lists them.
func (is Issues) Err() error {
	var msgs []string
	for _, i := range is {
		if i.Severity == SeverityError {
			msgs = append(msgs, i.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidTask, strings.Join(msgs, "; "))
}

var taskKeys = map[string]bool{
	"convertor": true,
	"params":    true,
	"note":      true,
}

// DecodeTasks reads a task file holding either one task object or an array
// of them. Unknown keys and missing "convertor" or "params" keys are errors.
func DecodeTasks(r io.Reader) ([]Task, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty task description", ErrInvalidTask)
	}

	var raws []json.RawMessage
	if b[0] == '[' {
		if err := json.Unmarshal(b, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTask, err)
		}
	} else {
		raws = []json.RawMessage{b}
	}

	var (
		tasks  = make([]Task, 0, len(raws))
		issues Issues
	)
	for i, raw := range raws {
		path := fmt.Sprintf("[%d]", i)
		if len(raws) == 1 && b[0] != '[' {
			path = "task"
		}
		t, iss := decodeTask(path, raw)
		issues = append(issues, iss...)
		tasks = append(tasks, t)
	}
	if err := issues.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// LoadTasks opens path and decodes it with DecodeTasks.
func LoadTasks(path string) ([]Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	tasks, err := DecodeTasks(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}

func decodeTask(path string, raw json.RawMessage) (Task, Issues) {
	var (
		t      Task
		issues Issues
		fields map[string]json.RawMessage
	)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return t, Issues{{Severity: SeverityError, Path: path, Message: "task must be a JSON object: " + err.Error()}}
	}

	var unknown []string
	for k := range fields {
		if !taskKeys[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + "." + k,
			Message:  fmt.Sprintf("unknown key %q; allowed keys are convertor, params, note", k),
		})
	}

	if c, ok := fields["convertor"]; !ok {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".convertor", Message: "convertor is required"})
	} else if err := json.Unmarshal(c, &t.Convertor); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".convertor", Message: "convertor must be a string"})
	}

	if p, ok := fields["params"]; !ok {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".params", Message: "params is required"})
	} else if err := json.Unmarshal(p, &t.Params); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".params", Message: err.Error()})
	}

	if n, ok := fields["note"]; ok {
		if err := json.Unmarshal(n, &t.Note); err != nil {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".note", Message: "note must be a string"})
		}
	}

	if t.Params == nil {
		t.Params = Options{}
	}
	if _, ok := fields["convertor"]; ok {
		issues = append(issues, ValidateTask(path, t)...)
	}
	return t, issues
}

// ValidateTask performs the static checks that do not need a registry.
func ValidateTask(path string, t Task) Issues {
	var issues Issues
	if strings.TrimSpace(t.Convertor) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".convertor",
			Message:  "convertor must not be empty",
		})
	}
	for _, k := range t.Params.Keys() {
		if strings.TrimSpace(k) != k || k == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".params",
				Message:  fmt.Sprintf("param name %q has surrounding spaces or is empty", k),
			})
		}
	}
	return issues
}
