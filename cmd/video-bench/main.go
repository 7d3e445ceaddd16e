// Command video-bench measures how many concurrent video streams a machine
// can decode in real time. It repeatedly decodes N parallel copies of one
// source at the source's frame rate and reports the largest N for which
// every stream held the rate with CPU usage at or below the threshold.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/asticode/go-astiav"

	"github.com/nvr-ai/video-bench/benchmark"
	"github.com/nvr-ai/video-bench/logging"
	"github.com/nvr-ai/video-bench/media"
	"github.com/nvr-ai/video-bench/monitor"
	"github.com/nvr-ai/video-bench/report"
)

const (
	programName = "video-bench"
	version     = "1.0.0"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	defer logging.Shutdown()

	var (
		maxStreams  int
		targetFPS   float64
		logFile     string
		csvFile     string
		showVersion bool
	)

	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&maxStreams, "max-streams", 0, "")
	fs.IntVar(&maxStreams, "m", 0, "")
	fs.Float64Var(&targetFPS, "target-fps", 0, "")
	fs.Float64Var(&targetFPS, "f", 0, "")
	fs.StringVar(&logFile, "log-file", "", "")
	fs.StringVar(&logFile, "l", "", "")
	fs.StringVar(&csvFile, "csv-file", "", "")
	fs.StringVar(&csvFile, "c", "", "")
	fs.BoolVar(&showVersion, "version", false, "")
	fs.BoolVar(&showVersion, "v", false, "")
	// Usage is printed once by the ErrHelp handler below.
	fs.Usage = func() {}

	parseErr := fs.Parse(args)

	// The log file is opened before anything else so even argument errors
	// leave a trace.
	logPath := logFile
	if logPath == "" {
		logPath = logging.DefaultLogFilePath
	}
	if err := logging.Initialize(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize log file '%s': %v\n", logPath, err)
	} else {
		logging.Info("Log file: " + logPath)
		logging.Info("Command: " + programName + " " + strings.Join(args, " "))
	}

	if parseErr != nil {
		if parseErr == flag.ErrHelp {
			printUsage(os.Stdout)
			return 0
		}
		return usageError(parseErr.Error())
	}

	if showVersion {
		fmt.Printf("%s version %s\n", programName, version)
		return 0
	}

	cfg := benchmark.DefaultConfig()
	cfg.LogFile = logPath
	cfg.CSVFile = csvFile

	flagsSet := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { flagsSet[f.Name] = true })

	if (flagsSet["m"] || flagsSet["max-streams"]) && maxStreams <= 0 {
		return usageError("Invalid value for --max-streams: must be a positive integer")
	}
	cfg.MaxStreams = maxStreams

	if (flagsSet["f"] || flagsSet["target-fps"]) && targetFPS <= 0 {
		return usageError("Invalid value for --target-fps: must be a positive number")
	}
	cfg.TargetFPS = targetFPS

	switch fs.NArg() {
	case 0:
		return usageError("Missing video file path or RTSP URL")
	case 1:
	default:
		return usageError("Too many arguments")
	}
	source := fs.Arg(0)

	if !media.IsLiveURL(source) {
		if _, err := os.Stat(source); err != nil {
			return usageError("File not found: " + source)
		}
	}
	cfg.Source = source

	// Quiet FFmpeg's own chatter; decode errors surface through results.
	astiav.SetLogLevel(astiav.LogLevelError)

	info, err := media.Probe(source)
	if err != nil {
		report.PrintError(err.Error())
		return 1
	}
	if !info.CodecSupported() {
		report.PrintError("Unsupported codec: " + info.CodecName)
		return 1
	}

	video := benchmark.VideoInfo{
		Path:       source,
		Resolution: info.ResolutionString(),
		CodecName:  info.CodecName,
		FPS:        info.FPS,
		IsLive:     info.IsLive,
	}

	header := benchmark.Result{
		CPUName:             monitor.CPUName(),
		ThreadCount:         monitor.ThreadCount(),
		TotalSystemMemoryMB: monitor.TotalSystemMemoryMB(),
		Video:               video,
	}
	report.PrintHeader(header)
	report.PrintTestingStart()

	runner := benchmark.NewRunner(benchmark.RunnerOptions{
		Config: cfg,
		Video:  video,
		Opener: media.NewOpener(source, info.IsLive),
	})

	result := runner.Run(report.PrintTestResult)

	if !result.Success {
		report.PrintError(result.ErrorMessage)
		return 1
	}

	report.PrintSummary(result)

	if cfg.CSVFile != "" {
		if err := report.ExportCSV(result, cfg.CSVFile); err != nil {
			report.PrintError(err.Error())
			return 1
		}
		logging.Info("CSV results exported to: " + cfg.CSVFile)
	}

	return 0
}

func usageError(message string) int {
	report.PrintError(message)
	hint := fmt.Sprintf("Try '%s --help' for more information.", programName)
	fmt.Fprintln(os.Stderr, hint)
	logging.Error(hint)
	return 1
}

func printUsage(w io.Writer) {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage: %s [OPTIONS] <video_source>\n", prog)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Video decoding benchmark tool - measures concurrent decoding capacity")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  <video_source>         Path to video file or RTSP URL")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -m, --max-streams N    Maximum number of streams to test (default: CPU thread count)")
	fmt.Fprintln(w, "  -f, --target-fps FPS   Target FPS for real-time threshold (default: video's native FPS)")
	fmt.Fprintln(w, "  -l, --log-file PATH    Log file path (default: video-benchmark.log)")
	fmt.Fprintln(w, "  -c, --csv-file PATH    Export results to CSV file")
	fmt.Fprintln(w, "  -h, --help             Show this help message")
	fmt.Fprintln(w, "  -v, --version          Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported codecs: H.264, H.265/HEVC, VP9, AV1")
	fmt.Fprintln(w, "Supported inputs: Local files, RTSP streams (rtsp://)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s video.mp4\n", prog)
	fmt.Fprintf(w, "  %s --max-streams 8 video.mp4\n", prog)
	fmt.Fprintf(w, "  %s rtsp://192.168.1.100:554/stream\n", prog)
	fmt.Fprintf(w, "  %s -f 30 -m 4 rtsp://camera.local/live\n", prog)
}
