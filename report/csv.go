package report

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/nvr-ai/video-bench/benchmark"
)

const csvHeader = "stream_count,avg_fps,min_fps,max_fps,cpu_usage,memory_mb,fps_passed,cpu_passed,passed\n"

// ExportCSV writes one row per tested stream count, in probe order.
func ExportCSV(result benchmark.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to open CSV file: %s", path)
	}
	defer f.Close()

	if _, err := f.WriteString(csvHeader); err != nil {
		return errors.Wrapf(err, "Failed to write CSV file: %s", path)
	}

	for _, test := range result.TestResults {
		row := fmt.Sprintf("%d,%s,%s,%s,%s,%d,%t,%t,%t\n",
			test.StreamCount,
			formatFloat(test.AvgFPS),
			formatFloat(test.MinFPS),
			formatFloat(test.MaxFPS),
			formatFloat(test.CPUUsage),
			test.MemoryMB,
			test.FPSPassed,
			test.CPUPassed,
			test.Passed)
		if _, err := f.WriteString(row); err != nil {
			return errors.Wrapf(err, "Failed to write CSV file: %s", path)
		}
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
