package printer_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrafan/terrafan/internal/model"
	"github.com/terrafan/terrafan/internal/printer"
)

func testRuns() []model.Run {
	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return []model.Run{
		{
			ID:         "01JE8ZC2V3TESTRUN000000001",
			Action:     model.ActionApply,
			Total:      5,
			Completed:  3,
			Failed:     2,
			CreatedAt:  created,
			FinishedAt: created.Add(3 * time.Minute),
		},
	}
}

func TestTablePrintRunList(t *testing.T) {
	var out bytes.Buffer
	p := printer.NewTablePrinter(&out)

	require.NoError(t, p.PrintRunList(testRuns()))

	got := out.String()
	assert.Contains(t, got, "ID")
	assert.Contains(t, got, "ACTION")
	assert.Contains(t, got, "01JE8ZC2V3TESTRUN000000001")
	assert.Contains(t, got, "apply")
}

func TestTablePrintRunListEmpty(t *testing.T) {
	var out bytes.Buffer
	p := printer.NewTablePrinter(&out)

	require.NoError(t, p.PrintRunList(nil))
	assert.Empty(t, out.String())
}

func TestTablePrintRunDetail(t *testing.T) {
	var out bytes.Buffer
	p := printer.NewTablePrinter(&out)

	run := testRuns()[0]
	tasks := []model.TaskResult{
		{
			Workspace:  model.Workspace{Dir: "infra/net"},
			Action:     model.ActionApply,
			Status:     model.TaskStatusFailed,
			ExitCode:   1,
			Error:      "terraform exited with status 1: action failed",
			StartedAt:  run.CreatedAt,
			FinishedAt: run.CreatedAt.Add(90 * time.Second),
		},
	}

	require.NoError(t, p.PrintRunDetail(run, tasks))

	got := out.String()
	assert.Contains(t, got, "ID:        01JE8ZC2V3TESTRUN000000001")
	assert.Contains(t, got, "Tasks:     5 (3 completed, 2 failed)")
	assert.Contains(t, got, "net")
	assert.Contains(t, got, "failed")
	assert.Contains(t, got, "1m30s")
}

func TestJSONPrintRunList(t *testing.T) {
	var out bytes.Buffer
	p := printer.NewJSONPrinter(&out)

	require.NoError(t, p.PrintRunList(testRuns()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))

	require.Len(t, decoded, 1)
	assert.Equal(t, "01JE8ZC2V3TESTRUN000000001", decoded[0]["id"])
	assert.Equal(t, "apply", decoded[0]["action"])
	assert.Equal(t, float64(5), decoded[0]["total"])
}

func TestJSONPrintRunDetail(t *testing.T) {
	var out bytes.Buffer
	p := printer.NewJSONPrinter(&out)

	run := testRuns()[0]
	tasks := []model.TaskResult{
		{Workspace: model.Workspace{Dir: "infra/net"}, Status: model.TaskStatusCompleted},
	}

	require.NoError(t, p.PrintRunDetail(run, tasks))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))

	assert.Equal(t, "01JE8ZC2V3TESTRUN000000001", decoded["id"])
	tasksOut, ok := decoded["tasks"].([]any)
	require.True(t, ok)
	require.Len(t, tasksOut, 1)
	assert.Equal(t, "net", tasksOut[0].(map[string]any)["workspace"])
}

func TestJSONPrintAccounts(t *testing.T) {
	var out bytes.Buffer
	p := printer.NewJSONPrinter(&out)

	accounts := []model.Account{
		{ID: "111111111111", Name: "prod", Email: "prod@example.com", Status: "ACTIVE"},
	}

	require.NoError(t, p.PrintAccounts(accounts))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))

	require.Len(t, decoded, 1)
	assert.Equal(t, "111111111111", decoded[0]["Id"])
	assert.Equal(t, "ACTIVE", decoded[0]["Status"])
}

func TestTablePrintAccounts(t *testing.T) {
	var out bytes.Buffer
	p := printer.NewTablePrinter(&out)

	accounts := []model.Account{
		{ID: "111111111111", Name: "prod", Email: "prod@example.com", Status: "ACTIVE"},
	}

	require.NoError(t, p.PrintAccounts(accounts))

	got := out.String()
	assert.Contains(t, got, "111111111111")
	assert.Contains(t, got, "prod@example.com")
}
