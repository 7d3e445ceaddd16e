package benchmark

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nvr-ai/video-bench/decode"
	"github.com/nvr-ai/video-bench/monitor"
)

const (
	// fpsTolerance allows 2% timing overhead in real-time paced decoding.
	fpsTolerance = 0.98

	// multiThreadStreamThreshold: from this stream count on, codec frame
	// threading is disabled in direct mode.
	multiThreadStreamThreshold = 4

	// Candidate sequence shape: powers of two up to powerOfTwoMaxStreams,
	// an extra step at extraStepStreams, then linear steps of linearStepSize
	// starting at linearStepStart.
	powerOfTwoMaxStreams = 16
	extraStepStreams     = 12
	linearStepSize       = 4
	linearStepStart      = 20
)

// ProgressFunc receives each completed run as the probe advances.
type ProgressFunc func(StreamTestResult)

// Runner executes the capacity probe for one configuration.
type Runner struct {
	cfg    Config
	video  VideoInfo
	opener decode.Opener
	cores  int

	// runTest is the single-count measurement, swappable in tests.
	runTest func(streamCount int, targetFPS float64) (StreamTestResult, error)
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Config Config
	Video  VideoInfo

	// Opener produces one demuxer per stream; media.NewOpener in
	// production, a stub in tests.
	Opener decode.Opener

	// CPUCores overrides the detected hardware thread count (tests only).
	CPUCores int
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	cores := opts.CPUCores
	if cores <= 0 {
		cores = monitor.ThreadCount()
	}
	r := &Runner{
		cfg:    opts.Config,
		video:  opts.Video,
		opener: opts.Opener,
		cores:  cores,
	}
	r.runTest = r.runSingleTest
	return r
}

// regimeFor picks the thread layout for one stream count: direct mode below
// the core count, pooled mode at or above it.
func (r *Runner) regimeFor(streamCount int) (usePool bool, decoderThreads, readerCount int) {
	if streamCount >= r.cores {
		return true, 1, r.cores
	}
	if streamCount >= multiThreadStreamThreshold {
		decoderThreads = 1
	} else {
		decoderThreads = maxInt(1, r.cores/streamCount)
	}
	return false, decoderThreads, streamCount
}

// streamCounts produces the ordered candidate list up to maxStreams.
func (r *Runner) streamCounts(maxStreams int) []int {
	var counts []int
	contains := func(v int) bool {
		for _, c := range counts {
			if c == v {
				return true
			}
		}
		return false
	}

	for n := 1; n <= powerOfTwoMaxStreams && n <= maxStreams; n *= 2 {
		counts = append(counts, n)
	}

	if maxStreams >= extraStepStreams && !contains(extraStepStreams) {
		counts = append(counts, extraStepStreams)
	}

	for n := linearStepStart; n <= maxStreams; n += linearStepSize {
		counts = append(counts, n)
	}

	if !contains(maxStreams) {
		counts = append(counts, maxStreams)
	}

	sortInts(counts)
	return counts
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// runSingleTest measures one stream count. The returned error aborts the
// whole benchmark.
func (r *Runner) runSingleTest(streamCount int, targetFPS float64) (StreamTestResult, error) {
	// Pooled regime keeps total thread count near N + cores + 1 by letting
	// R=cores reader threads service all N queues.
	_, decoderThreads, readerCount := r.regimeFor(streamCount)

	var stop atomic.Bool
	pool := decode.NewPool(decode.Config{
		StreamCount:    streamCount,
		Opener:         r.opener,
		TargetFPS:      targetFPS,
		DecoderThreads: decoderThreads,
		IsLive:         r.video.IsLive,
		WorkerCount:    streamCount,
		ReaderCount:    readerCount,
	}, &stop)

	if msg := pool.InitError(); msg != "" {
		// Barrier safety: release the workers so they can observe the
		// failure and return, then tear down.
		pool.Start()
		stop.Store(true)
		pool.Join()
		return StreamTestResult{}, fmt.Errorf("%s", msg)
	}

	cpuMon := monitor.NewCPUMonitor()

	pool.Start()
	cpuMon.StartMeasurement()
	tStart := time.Now()

	time.Sleep(r.cfg.MeasurementDuration)

	stop.Store(true)

	cpuUsage := cpuMon.CPUUsage()
	memoryMB := monitor.ProcessMemoryMB()

	elapsed := time.Since(tStart)

	pool.Join()
	streamResults := pool.Results(elapsed)

	for _, sr := range streamResults {
		if !sr.Success() {
			return StreamTestResult{}, fmt.Errorf("Stream %d: %s", sr.StreamID, sr.Err)
		}
	}

	return computeTestResult(streamResults, elapsed, cpuUsage, memoryMB, streamCount, targetFPS, r.cfg.CPUThreshold), nil
}

// computeTestResult derives the per-run verdict from joined stream results.
func computeTestResult(streams []decode.StreamResult, elapsed time.Duration,
	cpuUsage float64, memoryMB uint64, streamCount int, targetFPS, cpuThreshold float64) StreamTestResult {

	perFPS := make([]float64, 0, len(streams))
	perFrames := make([]int64, 0, len(streams))
	var totalFrames int64

	for _, s := range streams {
		perFPS = append(perFPS, s.FPS)
		perFrames = append(perFrames, s.FramesDecoded)
		totalFrames += s.FramesDecoded
	}

	minFPS, maxFPS := perFPS[0], perFPS[0]
	for _, f := range perFPS[1:] {
		if f < minFPS {
			minFPS = f
		}
		if f > maxFPS {
			maxFPS = f
		}
	}

	avgFPS := 0.0
	if elapsed > 0 && streamCount > 0 {
		avgFPS = float64(totalFrames) / elapsed.Seconds() / float64(streamCount)
	}

	res := StreamTestResult{
		StreamCount:     streamCount,
		AvgFPS:          avgFPS,
		MinFPS:          minFPS,
		MaxFPS:          maxFPS,
		PerStreamFPS:    perFPS,
		PerStreamFrames: perFrames,
		CPUUsage:        cpuUsage,
		MemoryMB:        memoryMB,
	}
	res.FPSPassed = res.MinFPS >= targetFPS*fpsTolerance
	res.CPUPassed = res.CPUUsage <= cpuThreshold
	res.Passed = res.FPSPassed && res.CPUPassed
	return res
}

// Run executes the full capacity probe: the shaped candidate sequence, then
// a binary search localizing the true capacity after the first failure.
func (r *Runner) Run(progress ProgressFunc) Result {
	result := Result{
		CPUName:             monitor.CPUName(),
		ThreadCount:         r.cores,
		TotalSystemMemoryMB: monitor.TotalSystemMemoryMB(),
		Video:               r.video,
	}

	result.TargetFPS = r.cfg.TargetFPS
	if result.TargetFPS <= 0 {
		result.TargetFPS = r.video.FPS
	}

	maxStreams := r.cfg.MaxStreams
	if maxStreams <= 0 {
		maxStreams = r.cores
	}

	record := func(tr StreamTestResult) {
		result.TestResults = append(result.TestResults, tr)
		if progress != nil {
			progress(tr)
		}
	}

	lastPassing := 0

	for _, count := range r.streamCounts(maxStreams) {
		tr, err := r.runTest(count, result.TargetFPS)
		if err != nil {
			result.ErrorMessage = err.Error()
			return result
		}
		record(tr)

		if tr.Passed {
			lastPassing = count
			continue
		}

		// First failure: binary-search the gap to the last passing count.
		if lastPassing > 0 && count-lastPassing > 1 {
			lo, hi := lastPassing+1, count-1
			for lo <= hi {
				mid := lo + (hi-lo)/2
				midResult, err := r.runTest(mid, result.TargetFPS)
				if err != nil {
					result.ErrorMessage = err.Error()
					return result
				}
				record(midResult)

				if midResult.Passed {
					lastPassing = mid
					lo = mid + 1
				} else {
					hi = mid - 1
				}
			}
		}
		break
	}

	result.MaxStreams = lastPassing
	result.Success = true
	return result
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
