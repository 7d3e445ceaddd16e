package decode

import (
	"sync/atomic"
	"time"
)

// streamContext is the per-stream state of one decode pipeline within a run.
// The owning worker is the only goroutine that touches the pacing fields and
// totalFrames; framesDecoded is the published counter other threads may read
// while the run is in flight.
type streamContext struct {
	id int

	queue   *PacketQueue
	reader  *StreamReader
	decoder Decoder
	demuxer Demuxer

	// Real-time pacing state, owned by the assigned worker.
	nextFrameTime time.Time
	frameInterval time.Duration

	totalFrames   int64
	framesDecoded atomic.Int64
	lagCount      int64
	maxLagMS      float64

	hasError atomic.Bool
	errMsg   string
	finished atomic.Bool
}

func (c *streamContext) setError(msg string) {
	c.errMsg = msg
	c.hasError.Store(true)
}

func (c *streamContext) active() bool {
	return !c.finished.Load() && !c.hasError.Load()
}

// StreamResult is the outcome of one stream after the run has joined.
type StreamResult struct {
	StreamID      int
	FramesDecoded int64
	FPS           float64
	LagCount      int64
	MaxLagMS      float64
	Err           string
}

// Success reports whether the stream completed without error.
func (r StreamResult) Success() bool {
	return r.Err == ""
}
