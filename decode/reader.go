package decode

import (
	"errors"
	"io"
	"sync/atomic"
	"time"
)

// pushRetryTimeout bounds how long a dedicated reader blocks on a full queue
// before re-checking the stop flag. It is also the worst-case shutdown
// latency of the reader path.
const pushRetryTimeout = 100 * time.Millisecond

// ErrStreamEnded marks EOF on a live source, where the stream was expected
// to be continuous.
var ErrStreamEnded = errors.New("Stream ended")

// ReadStatus is the outcome of one non-blocking ReadNext step in pool mode.
type ReadStatus int

const (
	// ReadQueued: a video packet was read and enqueued.
	ReadQueued ReadStatus = iota
	// ReadQueueFull: a video packet is pending but its queue has no space.
	ReadQueueFull
	// ReadSkipped: nothing was enqueued but the reader made progress: a
	// non-video packet was read and discarded, or file-mode EOF rewound the
	// source and queued a flush marker.
	ReadSkipped
	// ReadDone: the reader has terminated (stop, error, or live EOF).
	ReadDone
)

// StreamReader pulls packets from one demuxer and feeds one queue. In direct
// mode it runs on its own goroutine via Run; in pooled mode the reader pool
// drives it one step at a time via ReadNext.
type StreamReader struct {
	demuxer Demuxer
	queue   *PacketQueue
	stop    *atomic.Bool
	isLive  bool

	// Pool-mode state: a video packet that could not be queued yet, and
	// whether the reader has reached its terminal state.
	pending Packet
	done    bool

	hasErr atomic.Bool
	errMsg string
}

// NewStreamReader wires a reader to its demuxer, queue and the run's shared
// stop flag.
func NewStreamReader(d Demuxer, q *PacketQueue, stop *atomic.Bool, isLive bool) *StreamReader {
	return &StreamReader{demuxer: d, queue: q, stop: stop, isLive: isLive}
}

// Run loops reading packets until the stop flag is set, a read error occurs,
// or a live stream ends. File-mode EOF rewinds the source and pushes a flush
// marker so the decoder drops references to pre-seek data. Always signals
// EOF on the queue before returning.
func (r *StreamReader) Run() {
	defer r.queue.SignalEOF()

	for !r.stop.Load() {
		pkt, video, err := r.demuxer.ReadPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if r.isLive {
					r.fail(ErrStreamEnded.Error())
					return
				}
				if seekErr := r.demuxer.SeekStart(); seekErr != nil {
					r.fail("Failed to seek to start: " + seekErr.Error())
					return
				}
				r.queue.PushFlushMarker(pushRetryTimeout)
				continue
			}
			r.fail("Read error: " + err.Error())
			return
		}

		if !video {
			if pkt != nil {
				pkt.Free()
			}
			continue
		}

		for !r.queue.Push(pkt, pushRetryTimeout) {
			if r.stop.Load() || r.queue.EOF() {
				pkt.Free()
				return
			}
			// Queue full; retry until space opens or the run stops.
		}
	}
}

// ReadNext performs one non-blocking read-and-enqueue step for the reader
// pool. A video packet that finds its queue full is retained and retried on
// the next call, so no packet is ever dropped for lack of space.
func (r *StreamReader) ReadNext() ReadStatus {
	if r.done {
		return ReadDone
	}
	if r.stop.Load() {
		r.finish()
		return ReadDone
	}

	if r.pending != nil {
		if !r.queue.TryPush(r.pending) {
			return ReadQueueFull
		}
		r.pending = nil
		return ReadQueued
	}

	pkt, video, err := r.demuxer.ReadPacket()
	if err != nil {
		if errors.Is(err, io.EOF) {
			if r.isLive {
				r.errMsg = ErrStreamEnded.Error()
				r.hasErr.Store(true)
				r.finish()
				return ReadDone
			}
			if seekErr := r.demuxer.SeekStart(); seekErr != nil {
				r.errMsg = "Failed to seek to start: " + seekErr.Error()
				r.hasErr.Store(true)
				r.finish()
				return ReadDone
			}
			r.queue.PushFlushMarker(0)
			return ReadSkipped
		}
		r.errMsg = "Read error: " + err.Error()
		r.hasErr.Store(true)
		r.finish()
		return ReadDone
	}

	if !video {
		if pkt != nil {
			pkt.Free()
		}
		return ReadSkipped
	}

	if !r.queue.TryPush(pkt) {
		r.pending = pkt
		return ReadQueueFull
	}
	return ReadQueued
}

// SignalDone is called by the reader pool on exit so the consumer side
// observes EOF even if this reader never reached it on its own.
func (r *StreamReader) SignalDone() {
	r.finish()
}

func (r *StreamReader) finish() {
	if !r.done {
		r.done = true
		if r.pending != nil {
			r.pending.Free()
			r.pending = nil
		}
		r.queue.SignalEOF()
	}
}

func (r *StreamReader) fail(msg string) {
	r.errMsg = msg
	r.hasErr.Store(true)
}

// HasError reports whether the reader terminated with an error.
func (r *StreamReader) HasError() bool {
	return r.hasErr.Load()
}

// Err returns the reader's error message, empty if none.
func (r *StreamReader) Err() string {
	if !r.hasErr.Load() {
		return ""
	}
	return r.errMsg
}
