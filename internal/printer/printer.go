package printer

import "github.com/terrafan/terrafan/internal/model"

// Printer knows how to print run history and account information in different formats.
type Printer interface {
	PrintRunList(runs []model.Run) error
	PrintRunDetail(run model.Run, tasks []model.TaskResult) error
	PrintAccounts(accounts []model.Account) error
	PrintMessage(msg string) error
}
