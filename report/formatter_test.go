package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/video-bench/benchmark"
)

func TestResultLinePassed(t *testing.T) {
	line := ResultLine(benchmark.StreamTestResult{
		StreamCount: 1,
		AvgFPS:      29.97,
		MinFPS:      29.5,
		MaxFPS:      30.2,
		CPUUsage:    42.7,
		FPSPassed:   true,
		CPUPassed:   true,
		Passed:      true,
	})
	assert.Equal(t, " 1 stream:    29fps (min:29/avg:29/max:30) (CPU: 42%) ✓", line)
}

func TestResultLineFPSFailure(t *testing.T) {
	line := ResultLine(benchmark.StreamTestResult{
		StreamCount: 8,
		AvgFPS:      21.4,
		MinFPS:      19.8,
		MaxFPS:      24.1,
		CPUUsage:    77,
		CPUPassed:   true,
	})
	assert.Equal(t, " 8 streams:   21fps (min:19/avg:21/max:24) (CPU: 77%) ✗ FPS below target", line)
}

func TestResultLineCPUFailure(t *testing.T) {
	line := ResultLine(benchmark.StreamTestResult{
		StreamCount: 12,
		AvgFPS:      30,
		MinFPS:      30,
		MaxFPS:      30,
		CPUUsage:    92.3,
		FPSPassed:   true,
	})
	assert.Equal(t, "12 streams:   30fps (min:30/avg:30/max:30) (CPU: 92%) ✗ CPU threshold exceeded", line)
}

func TestStatusSymbols(t *testing.T) {
	assert.Equal(t, "✓", benchmark.StreamTestResult{Passed: true}.StatusSymbol())
	assert.Equal(t, "✗", benchmark.StreamTestResult{}.StatusSymbol())
}
