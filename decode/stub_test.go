package decode

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Test doubles for the media contracts. One stubDemuxer/stubDecoder pair is
// only ever driven by a single goroutine at a time, matching the production
// ownership model; counters crossed between test and pipeline goroutines are
// atomic.

type stubPacket struct {
	freed atomic.Bool
	frees *atomic.Int64
}

func (p *stubPacket) Free() {
	if p.freed.CompareAndSwap(false, true) && p.frees != nil {
		p.frees.Add(1)
	}
}

// stubDemuxer emits video packets, optionally interleaved with non-video
// ones, and reaches EOF after packetsPerLoop reads (never, if <= 0).
type stubDemuxer struct {
	packetsPerLoop int
	nonVideoEvery  int // every k-th read is non-video (0 = never)
	readErrAfter   int // total reads before a hard read error (0 = never)
	readDelay      time.Duration
	seekErr        error
	decoderErr     error
	decoder        *stubDecoder

	reads      int
	totalReads int
	seeks      atomic.Int64
	frees      *atomic.Int64
	closed     atomic.Bool
}

func (d *stubDemuxer) ReadPacket() (Packet, bool, error) {
	if d.readDelay > 0 {
		time.Sleep(d.readDelay)
	}
	if d.readErrAfter > 0 && d.totalReads >= d.readErrAfter {
		return nil, false, errors.New("I/O failure")
	}
	if d.packetsPerLoop > 0 && d.reads >= d.packetsPerLoop {
		return nil, false, io.EOF
	}
	d.reads++
	d.totalReads++
	if d.nonVideoEvery > 0 && d.totalReads%d.nonVideoEvery == 0 {
		return &stubPacket{frees: d.frees}, false, nil
	}
	return &stubPacket{frees: d.frees}, true, nil
}

func (d *stubDemuxer) SeekStart() error {
	if d.seekErr != nil {
		return d.seekErr
	}
	d.seeks.Add(1)
	d.reads = 0
	return nil
}

func (d *stubDemuxer) NewDecoder(threadCount int) (Decoder, error) {
	if d.decoderErr != nil {
		return nil, d.decoderErr
	}
	if d.decoder == nil {
		d.decoder = &stubDecoder{}
	}
	d.decoder.threadCount = threadCount
	return d.decoder, nil
}

func (d *stubDemuxer) Close() error {
	d.closed.Store(true)
	return nil
}

// stubDecoder produces one frame per packet, except every reorderEvery-th
// packet which buffers without output, mimicking B-frame reordering.
type stubDecoder struct {
	reorderEvery int
	frameDelay   time.Duration
	failAfter    int // decoded packets before a hard decode error (0 = never)
	flushFrames  int // frames FlushDecoder still drains at run end

	threadCount   int
	packets       int
	frames        atomic.Int64
	bufferFlushes atomic.Int64
	drained       int
	closed        atomic.Bool
}

func (s *stubDecoder) DecodeFromPacket(p Packet) (bool, error) {
	s.packets++
	if s.failAfter > 0 && s.packets > s.failAfter {
		return false, errors.New("decode failure")
	}
	if s.reorderEvery > 0 && s.packets%s.reorderEvery == 0 {
		return false, nil
	}
	if s.frameDelay > 0 {
		time.Sleep(s.frameDelay)
	}
	s.frames.Add(1)
	return true, nil
}

func (s *stubDecoder) FlushBuffers() {
	s.bufferFlushes.Add(1)
}

func (s *stubDecoder) FlushDecoder() (bool, error) {
	if s.drained < s.flushFrames {
		s.drained++
		return true, nil
	}
	return false, nil
}

func (s *stubDecoder) Close() error {
	s.closed.Store(true)
	return nil
}

// stubOpener builds one demuxer per stream via the build callback,
// optionally failing a specific open call.
type stubOpener struct {
	build  func() *stubDemuxer
	failAt int // 1-based open call that fails (0 = never)

	mu       sync.Mutex
	opens    int
	demuxers []*stubDemuxer
}

// endlessDemuxer is the default build: an infinite video-packet source with
// a one-frame-per-packet decoder.
func endlessDemuxer() *stubDemuxer {
	return &stubDemuxer{decoder: &stubDecoder{}}
}

func (o *stubOpener) Open() (Demuxer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opens++
	if o.failAt > 0 && o.opens == o.failAt {
		return nil, errors.New("open failed")
	}

	build := o.build
	if build == nil {
		build = endlessDemuxer
	}
	d := build()
	if d.decoder == nil {
		d.decoder = &stubDecoder{}
	}
	o.demuxers = append(o.demuxers, d)
	return d, nil
}
