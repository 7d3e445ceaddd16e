// Package benchmark drives capacity measurement: it runs one paced
// multi-stream decode per candidate stream count and searches for the
// largest count the machine sustains in real time.
package benchmark

import "time"

// Default thresholds for a run.
const (
	// DefaultMeasurementDuration is how long each stream count is decoded
	// before being judged.
	DefaultMeasurementDuration = 10 * time.Second

	// DefaultCPUThreshold is the system-wide CPU percentage a passing run
	// must not exceed.
	DefaultCPUThreshold = 85.0
)

// Config captures one benchmark invocation. Immutable after construction.
type Config struct {
	// Source is a video file path or rtsp[s]:// URL.
	Source string

	// MaxStreams caps the candidate stream counts. 0 means the machine's
	// hardware thread count.
	MaxStreams int

	// TargetFPS is the pacing rate each stream must sustain. 0 means the
	// source's native frame rate.
	TargetFPS float64

	// LogFile and CSVFile are output paths; empty CSVFile disables export.
	LogFile string
	CSVFile string

	// MeasurementDuration is the decode window per tested stream count.
	MeasurementDuration time.Duration

	// CPUThreshold is the pass/fail CPU ceiling in percent.
	CPUThreshold float64
}

// DefaultConfig returns a Config with standard thresholds; the caller fills
// in the source and any overrides.
func DefaultConfig() Config {
	return Config{
		MeasurementDuration: DefaultMeasurementDuration,
		CPUThreshold:        DefaultCPUThreshold,
	}
}

// VideoInfo is the probed source description the benchmark consumes. The
// media package produces the full probe; this carries only what runs and
// reports need, keeping this package free of FFmpeg bindings.
type VideoInfo struct {
	Path       string  `json:"path"`
	Resolution string  `json:"resolution"`
	CodecName  string  `json:"codec_name"`
	FPS        float64 `json:"fps"`
	IsLive     bool    `json:"is_live"`
}
