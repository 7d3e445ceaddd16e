// Package monitor samples host telemetry for the benchmark: system-wide CPU
// utilization over a measurement window, process and system memory, and the
// CPU identity printed in the report header.
package monitor

import (
	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUMonitor measures system-wide CPU utilization between StartMeasurement
// and CPUUsage, as the busy share of aggregate /proc-style time deltas.
type CPUMonitor struct {
	start cpu.TimesStat
	valid bool
}

// NewCPUMonitor returns an idle monitor; call StartMeasurement to snapshot
// the window start.
func NewCPUMonitor() *CPUMonitor {
	return &CPUMonitor{}
}

// StartMeasurement snapshots cumulative CPU times at the window start.
func (m *CPUMonitor) StartMeasurement() {
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		m.valid = false
		return
	}
	m.start = times[0]
	m.valid = true
}

// CPUUsage returns the utilization percentage since StartMeasurement.
// Returns 0 when no measurement window is open or the window is empty.
func (m *CPUMonitor) CPUUsage() float64 {
	if !m.valid {
		return 0
	}
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return 0
	}

	busyDelta, totalDelta := busyAndTotal(times[0], m.start)
	if totalDelta <= 0 {
		return 0
	}
	return 100 * busyDelta / totalDelta
}

// busyAndTotal computes the busy and total time deltas between two
// cumulative samples. Idle and iowait both count as idle.
func busyAndTotal(curr, prev cpu.TimesStat) (busy float64, total float64) {
	idle := (curr.Idle + curr.Iowait) - (prev.Idle + prev.Iowait)
	busy = (curr.User + curr.Nice + curr.System + curr.Irq + curr.Softirq + curr.Steal) -
		(prev.User + prev.Nice + prev.System + prev.Irq + prev.Softirq + prev.Steal)
	total = busy + idle
	return busy, total
}
