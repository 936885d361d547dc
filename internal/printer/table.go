package printer

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/terrafan/terrafan/internal/model"
)

// TablePrinter prints run and account information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRunList prints runs in a table format.
func (t *TablePrinter) PrintRunList(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "ID\tACTION\tTASKS\tCOMPLETED\tFAILED\tCREATED")

	// Print rows
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.ID, r.Action, r.Total, r.Completed, r.Failed, TimeAgo(r.CreatedAt))
	}

	return nil
}

// PrintRunDetail prints one run with its per-task outcomes.
func (t *TablePrinter) PrintRunDetail(run model.Run, tasks []model.TaskResult) error {
	fmt.Fprintf(t.writer, "ID:        %s\n", run.ID)
	fmt.Fprintf(t.writer, "Action:    %s\n", run.Action)
	fmt.Fprintf(t.writer, "Tasks:     %d (%d completed, %d failed)\n", run.Total, run.Completed, run.Failed)
	fmt.Fprintf(t.writer, "Created:   %s\n", FormatTimestamp(run.CreatedAt))
	fmt.Fprintf(t.writer, "Finished:  %s\n", FormatTimestamp(run.FinishedAt))

	if len(tasks) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "WORKSPACE\tSTATUS\tDURATION\tERROR")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", task.Workspace.Name(), task.Status, task.FinishedAt.Sub(task.StartedAt).Round(time.Second), task.Error)
	}

	return nil
}

// PrintAccounts prints accounts in a table format.
func (t *TablePrinter) PrintAccounts(accounts []model.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tSTATUS")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Email, a.Status)
	}

	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}
