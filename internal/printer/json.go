package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/terrafan/terrafan/internal/model"
)

// JSONPrinter prints run and account information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// runItem represents a run in the list output.
type runItem struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Total      int       `json:"total"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// taskItem represents one task outcome in the run detail output.
type taskItem struct {
	Workspace  string    `json:"workspace"`
	Dir        string    `json:"dir"`
	Status     string    `json:"status"`
	ExitCode   int       `json:"exit_code"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// runDetailOutput represents the full run detail output.
type runDetailOutput struct {
	runItem
	Tasks []taskItem `json:"tasks"`
}

// accountItem represents one account in the accounts output.
type accountItem struct {
	ID       string    `json:"Id"`
	Name     string    `json:"Name"`
	Email    string    `json:"Email"`
	Status   string    `json:"Status"`
	JoinedAt time.Time `json:"JoinedTimestamp"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

func newRunItem(r model.Run) runItem {
	return runItem{
		ID:         r.ID,
		Action:     string(r.Action),
		Total:      r.Total,
		Completed:  r.Completed,
		Failed:     r.Failed,
		CreatedAt:  r.CreatedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
	}
}

// PrintRunList prints runs in JSON format.
func (j *JSONPrinter) PrintRunList(runs []model.Run) error {
	items := make([]runItem, len(runs))
	for i, r := range runs {
		items[i] = newRunItem(r)
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintRunDetail prints one run with its per-task outcomes in JSON format.
func (j *JSONPrinter) PrintRunDetail(run model.Run, tasks []model.TaskResult) error {
	output := runDetailOutput{
		runItem: newRunItem(run),
		Tasks:   make([]taskItem, len(tasks)),
	}
	for i, t := range tasks {
		output.Tasks[i] = taskItem{
			Workspace:  t.Workspace.Name(),
			Dir:        t.Workspace.Dir,
			Status:     string(t.Status),
			ExitCode:   t.ExitCode,
			Error:      t.Error,
			StartedAt:  t.StartedAt.UTC(),
			FinishedAt: t.FinishedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintAccounts prints accounts in JSON format. The field names follow the
// organizations API document shape so the output can feed other tooling.
func (j *JSONPrinter) PrintAccounts(accounts []model.Account) error {
	items := make([]accountItem, len(accounts))
	for i, a := range accounts {
		items[i] = accountItem{
			ID:       a.ID,
			Name:     a.Name,
			Email:    a.Email,
			Status:   a.Status,
			JoinedAt: a.JoinedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
