package monitor

import (
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUName returns the CPU model string for the report header.
func CPUName() string {
	infos, err := cpu.Info()
	if err != nil || len(infos) == 0 {
		return "Unknown CPU"
	}
	name := strings.TrimSpace(infos[0].ModelName)
	if name == "" {
		return "Unknown CPU"
	}
	return name
}

// ThreadCount returns the number of hardware threads, at least 1.
func ThreadCount() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}
