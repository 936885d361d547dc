//go:build !linux

package orchestrator

import "fmt"

// hostTotalMemory is not supported on non-Linux platforms, set
// BudgetConfig.TotalMemoryBytes or MaxTasks explicitly instead.
func hostTotalMemory() (uint64, error) {
	return 0, fmt.Errorf("host memory probing not supported on this platform")
}
