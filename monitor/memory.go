package monitor

import (
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const bytesPerMB = 1024 * 1024

// ProcessMemoryMB returns this process's resident set size in megabytes, 0
// if it cannot be determined.
func ProcessMemoryMB() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS / bytesPerMB
}

// TotalSystemMemoryMB returns the machine's physical memory in megabytes, 0
// if it cannot be determined.
func TotalSystemMemoryMB() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil || vm == nil {
		return 0
	}
	return vm.Total / bytesPerMB
}
