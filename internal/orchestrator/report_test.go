package orchestrator_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terrafan/terrafan/internal/model"
	"github.com/terrafan/terrafan/internal/orchestrator"
)

func taskResult(t *testing.T, dir string, status model.TaskStatus, output string) model.TaskResult {
	t.Helper()

	return model.TaskResult{
		Workspace: mustWorkspace(t, dir),
		Action:    model.ActionPlan,
		Status:    status,
		Output:    output,
	}
}

func TestConsoleReporterTaskFinished(t *testing.T) {
	var out bytes.Buffer
	rep := orchestrator.NewConsoleReporter(&out)

	rep.TaskFinished(taskResult(t, "infra/net", model.TaskStatusCompleted, "Plan: 1 to add."))
	rep.TaskFinished(taskResult(t, "infra/db", model.TaskStatusFailed, "Error: timeout"))

	got := out.String()
	assert.Contains(t, got, "net - plan")
	assert.Contains(t, got, "  Plan: 1 to add.")
	assert.Contains(t, got, "net completed successfully...")
	assert.Contains(t, got, "db - plan")
	assert.Contains(t, got, "db had errors...")

	assert.Len(t, rep.Results(), 2)
}

func TestConsoleReporterSummary(t *testing.T) {
	tests := map[string]struct {
		results []model.TaskResult
		exp     model.RunSummary
	}{
		"No tasks": {
			exp: model.RunSummary{FailedWorkspaces: []string{}},
		},
		"All completed": {
			results: []model.TaskResult{
				{Workspace: model.Workspace{Dir: "a"}, Status: model.TaskStatusCompleted},
				{Workspace: model.Workspace{Dir: "b"}, Status: model.TaskStatusCompleted},
			},
			exp: model.RunSummary{Total: 2, Completed: 2, FailedWorkspaces: []string{}},
		},
		"Failures keep observation order": {
			results: []model.TaskResult{
				{Workspace: model.Workspace{Dir: "a"}, Status: model.TaskStatusFailed},
				{Workspace: model.Workspace{Dir: "b"}, Status: model.TaskStatusCompleted},
				{Workspace: model.Workspace{Dir: "c"}, Status: model.TaskStatusFailed},
			},
			exp: model.RunSummary{Total: 3, Completed: 1, Failed: 2, FailedWorkspaces: []string{"a", "c"}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rep := orchestrator.NewConsoleReporter(&bytes.Buffer{})
			for _, res := range tt.results {
				rep.TaskFinished(res)
			}

			assert.Equal(t, tt.exp, rep.Summary())
		})
	}
}

func TestConsoleReporterPrintSummary(t *testing.T) {
	tests := map[string]struct {
		results     []model.TaskResult
		expContains []string
		expAbsent   []string
	}{
		"All succeeded prints no failed list": {
			results: []model.TaskResult{
				{Workspace: model.Workspace{Dir: "infra/net"}, Status: model.TaskStatusCompleted},
				{Workspace: model.Workspace{Dir: "infra/db"}, Status: model.TaskStatusCompleted},
			},
			expContains: []string{"Summary", "* 2/2 terraform apply completed successfully"},
			expAbsent:   []string{"failed"},
		},
		"Failures are itemized by workspace name": {
			results: []model.TaskResult{
				{Workspace: model.Workspace{Dir: "infra/net"}, Status: model.TaskStatusFailed},
				{Workspace: model.Workspace{Dir: "infra/db"}, Status: model.TaskStatusCompleted},
				{Workspace: model.Workspace{Dir: "infra/dns"}, Status: model.TaskStatusFailed},
			},
			expContains: []string{
				"* 1/3 terraform apply completed successfully",
				"* 2/3 failed",
				"  - workspace net",
				"  - workspace dns",
			},
		},
		"Zero tasks": {
			expContains: []string{"* 0/0 terraform apply completed successfully"},
			expAbsent:   []string{"failed"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			rep := orchestrator.NewConsoleReporter(&out)
			for _, res := range tt.results {
				rep.TaskFinished(res)
			}

			rep.PrintSummary(model.ActionApply)

			got := out.String()
			for _, exp := range tt.expContains {
				assert.Contains(t, got, exp)
			}
			for _, notExp := range tt.expAbsent {
				assert.NotContains(t, got, notExp)
			}
		})
	}
}
