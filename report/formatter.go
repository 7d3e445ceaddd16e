// Package report renders benchmark progress and results to the console and
// exports them to CSV. Every console line is mirrored to the log file.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/nvr-ai/video-bench/benchmark"
	"github.com/nvr-ai/video-bench/logging"
)

func infoLine(line string) {
	fmt.Println(line)
	logging.Info(line)
}

// PrintHeader prints the system and source description shown before the
// probe starts.
func PrintHeader(result benchmark.Result) {
	infoLine(fmt.Sprintf("CPU: %s (%d threads)", result.CPUName, result.ThreadCount))

	sourceLabel := "File: "
	videoLabel := "Video: "
	if result.Video.IsLive {
		sourceLabel = "Source: "
		videoLabel = "Source: "
	}
	infoLine(sourceLabel + result.Video.Path)

	videoLine := fmt.Sprintf("%s%s %s, %dfps",
		videoLabel, result.Video.Resolution, result.Video.CodecName, int(result.Video.FPS))
	if result.Video.IsLive {
		videoLine += " (live)"
	}
	infoLine(videoLine)

	fmt.Println()
}

// PrintTestingStart prints the line separating the header from run results.
func PrintTestingStart() {
	infoLine("Testing...")
}

// ResultLine renders one run as its console line:
//
//	 N stream(s): XXXfps (min:XX/avg:XX/max:XX) (CPU: YY%) ✓|✗[ reason]
func ResultLine(result benchmark.StreamTestResult) string {
	streamWord := "streams:"
	if result.StreamCount == 1 {
		streamWord = "stream: "
	}

	line := fmt.Sprintf("%2d %s%5dfps (min:%d/avg:%d/max:%d) (CPU: %2d%%) %s",
		result.StreamCount, streamWord,
		int(result.AvgFPS),
		int(result.MinFPS), int(result.AvgFPS), int(result.MaxFPS),
		int(result.CPUUsage),
		result.StatusSymbol())

	if !result.Passed {
		line += " " + result.FailureReason()
	}
	return line
}

// PrintTestResult prints one run line to the console and the log.
func PrintTestResult(result benchmark.StreamTestResult) {
	infoLine(ResultLine(result))

	// Per-stream frame counts go to the log file only.
	if len(result.PerStreamFrames) > 0 {
		var b strings.Builder
		b.WriteString("  decoded frames per stream: [")
		for i, frames := range result.PerStreamFrames {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d", frames)
		}
		b.WriteString("]")
		logging.Info(b.String())
	}
}

// PrintSummary prints the final capacity verdict.
func PrintSummary(result benchmark.Result) {
	fmt.Println()

	if result.MaxStreams > 0 {
		plural := "s"
		if result.MaxStreams == 1 {
			plural = ""
		}
		infoLine(fmt.Sprintf("Result: Maximum %d concurrent stream%s can be decoded in real-time",
			result.MaxStreams, plural))
	} else {
		infoLine("Result: Could not achieve real-time decoding even with 1 stream")
	}
}

// PrintError writes an error line to stderr, mirrored to the log.
func PrintError(message string) {
	line := "Error: " + message
	fmt.Fprintln(os.Stderr, line)
	logging.Error(line)
}
