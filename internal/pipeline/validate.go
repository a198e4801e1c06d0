package pipeline

import (
	"context"
	"fmt"

	"tablelinker/internal/config"
	"tablelinker/internal/table"
)

// Validate checks tasks without reading any data. Every task is looked up
// in the registry and its params are type checked. When header is given,
// column references are also resolved: the header is carried through the
// steps so later tasks are checked against the columns earlier ones
// produce. Once a step cannot run its successors are only type checked.
func (r *Runner) Validate(ctx context.Context, tasks []config.Task, header []string) config.Issues {
	var issues config.Issues
	input := header
	for i, t := range tasks {
		path := fmt.Sprintf("[%d]", i)
		issues = append(issues, config.ValidateTask(path, t)...)
		meta, ok := r.registry().Meta(t.Convertor)
		if !ok {
			issues = append(issues, config.Issue{
				Severity: config.SeverityError,
				Path:     path + ".convertor",
				Message:  fmt.Sprintf("unknown convertor %q", t.Convertor),
			})
			input = nil
			continue
		}

		stepIssues := meta.Params.Validate(t.Params, input, nil)
		for _, iss := range stepIssues {
			iss.Path = path + "." + iss.Path
			issues = append(issues, iss)
		}
		if input == nil || stepIssues.HasErrors() {
			input = nil
			continue
		}

		sink := table.NewMemorySink()
		if _, err := r.runStep(ctx, t, table.NewMemorySource([][]string{input}), sink); err != nil {
			issues = append(issues, config.Issue{Severity: config.SeverityError, Path: path, Message: err.Error()})
			input = nil
			continue
		}
		if rows := sink.Rows(); len(rows) > 0 {
			input = rows[0]
		} else {
			input = nil
		}
	}
	return issues
}
