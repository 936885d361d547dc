package orchestrator

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/terrafan/terrafan/internal/model"
)

// ConsoleReporter aggregates task outcomes and writes their output blocks to a
// single writer. Tool output of concurrent tasks is captured by the tasks and
// printed here only when the scheduler observes the terminal transition, so the
// scheduler goroutine is the sole console writer and blocks never interleave.
type ConsoleReporter struct {
	w       io.Writer
	results []model.TaskResult
	failed  []string
	total   int
}

// NewConsoleReporter creates a reporter writing to w (stdout when nil).
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleReporter{w: w}
}

// TaskStarted announces a task's admission.
func (r *ConsoleReporter) TaskStarted(t *Task) {
	fmt.Fprintf(r.w, "Starting %s...\n", t.Workspace().Name())
}

// TaskFinished records a terminal transition and prints the task's output block.
func (r *ConsoleReporter) TaskFinished(res model.TaskResult) {
	r.total++
	r.results = append(r.results, res)

	msg := res.Output
	if msg == "" && res.Error != "" {
		msg = res.Error
	}
	if msg != "" {
		fmt.Fprint(r.w, formatBlock(res.Workspace.Name(), string(res.Action), msg))
	}

	if res.Status == model.TaskStatusFailed {
		r.failed = append(r.failed, res.Workspace.Name())
		fmt.Fprintf(r.w, "%s had errors...\n", res.Workspace.Name())
		return
	}
	fmt.Fprintf(r.w, "%s completed successfully...\n", res.Workspace.Name())
}

// Results returns every recorded task result in the order observed.
func (r *ConsoleReporter) Results() []model.TaskResult { return r.results }

// Summary computes the run summary. Valid once all tasks are terminal.
func (r *ConsoleReporter) Summary() model.RunSummary {
	return model.RunSummary{
		Total:            r.total,
		Completed:        r.total - len(r.failed),
		Failed:           len(r.failed),
		FailedWorkspaces: append([]string{}, r.failed...),
	}
}

// PrintSummary prints the final run summary for an action.
func (r *ConsoleReporter) PrintSummary(action model.Action) {
	s := r.Summary()

	fmt.Fprintf(r.w, "\n\n%s\n", strings.Repeat("=", 7))
	fmt.Fprintln(r.w, "Summary")
	fmt.Fprintf(r.w, "%s\n\n", strings.Repeat("=", 7))
	fmt.Fprintf(r.w, "* %d/%d terraform %s completed successfully\n", s.Completed, s.Total, action)

	if s.Failed > 0 {
		fmt.Fprintf(r.w, "* %d/%d failed\n", s.Failed, s.Total)
		for _, name := range s.FailedWorkspaces {
			fmt.Fprintf(r.w, "  - workspace %s\n", name)
		}
	}
}

// formatBlock frames a task's output under a workspace/stage header so whole
// blocks read as one unit in the shared console.
func formatBlock(workspace, stage, msg string) string {
	msg = strings.TrimRight(msg, "\n")

	indented := make([]string, 0, 8)
	maxLen := 0
	for _, row := range strings.Split(msg, "\n") {
		row = "  " + row
		if len(row) > maxLen {
			maxLen = len(row)
		}
		indented = append(indented, row)
	}

	header := fmt.Sprintf("%s - %s", workspace, stage)
	rule := strings.Repeat("=", len(header))

	return fmt.Sprintf("\n%s\n%s\n%s\n%s\n%s\n", rule, header, rule, strings.Join(indented, "\n"), strings.Repeat("=", maxLen))
}
