package orchestrator

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// hostTotalMemory returns the total physical memory of the host in bytes.
func hostTotalMemory() (uint64, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}

	return uint64(si.Totalram) * uint64(si.Unit), nil
}
