package decode

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// poolIdleWait bounds how long a reader-pool thread sleeps when every one of
// its queues is full; consumer pops wake it earlier through the queue space
// callbacks.
const poolIdleWait = 10 * time.Millisecond

// Config describes one Pool run.
type Config struct {
	// StreamCount is the number of concurrent decode pipelines.
	StreamCount int

	// Opener produces one independent demuxer per stream.
	Opener Opener

	// TargetFPS is the per-stream pacing rate. Must be positive.
	TargetFPS float64

	// DecoderThreads configures codec frame threading (1 disables it).
	DecoderThreads int

	// IsLive marks the source as continuous; EOF becomes an error.
	IsLive bool

	// WorkerCount is the number of decode worker goroutines. Defaults to
	// StreamCount, preserving 1:1 pacing quality.
	WorkerCount int

	// ReaderCount is the number of reader goroutines. A value below
	// StreamCount selects the pooled reader layout; otherwise each stream
	// gets a dedicated reader. Defaults to StreamCount.
	ReaderCount int

	// QueueCapacity overrides the per-stream packet queue bound.
	QueueCapacity int
}

// Pool runs N paced decode pipelines: per-stream readers feeding bounded
// packet queues, and workers that own decoders and enforce frame cadence.
// With ReaderCount < StreamCount the readers are serviced round-robin by a
// fixed set of pool goroutines instead of one goroutine each.
//
// Lifecycle: NewPool spawns the readers, which start filling the queues at
// once, and the workers, which park on the start barrier. Start releases the
// workers and begins the measurement. Setting the stop flag and then calling
// Join tear the run down and finalize per-stream counts.
type Pool struct {
	cfg     Config
	streams []*streamContext
	stop    *atomic.Bool

	barrier  *barrier
	initDone atomic.Bool
	startAt  time.Time

	workerWG sync.WaitGroup
	readerWG sync.WaitGroup

	// Reader-pool wakeup: queue space callbacks post here so idle pool
	// threads resume as soon as a consumer pops.
	wake chan struct{}

	initErr string
}

// NewPool constructs all stream contexts, spawns the reader goroutines, and
// spawns the worker goroutines parked on the start barrier. If any stream
// fails to initialize, the pool records the first error (see InitError),
// spawns no readers, and the workers still reach the barrier count and
// return immediately after Start.
func NewPool(cfg Config, stop *atomic.Bool) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = cfg.StreamCount
	}
	if cfg.ReaderCount <= 0 {
		cfg.ReaderCount = cfg.StreamCount
	}

	p := &Pool{
		cfg:  cfg,
		stop: stop,
		// Workers plus the caller's Start.
		barrier: newBarrier(cfg.WorkerCount + 1),
		wake:    make(chan struct{}, 1),
	}

	interval := time.Duration(float64(time.Second) / cfg.TargetFPS)

	p.streams = make([]*streamContext, 0, cfg.StreamCount)
	for i := 0; i < cfg.StreamCount; i++ {
		c := &streamContext{id: i, frameInterval: interval}

		if p.initErr == "" {
			if err := p.initStream(c); err != nil {
				p.initErr = fmt.Sprintf("Stream %d: %s", i, err.Error())
			}
		}
		p.streams = append(p.streams, c)
	}

	pooledReaders := p.initErr == "" && cfg.ReaderCount < cfg.StreamCount

	if pooledReaders {
		// Consumer pops create space; notify the reader pool.
		for _, c := range p.streams {
			c.queue.SetSpaceCallback(p.notifySpace)
		}
	}

	// Reader goroutines. Skipped entirely on init failure: queues without a
	// producer would never EOF, but failed runs never pop from them either.
	if p.initErr == "" {
		if pooledReaders {
			for r := 0; r < cfg.ReaderCount; r++ {
				p.readerWG.Add(1)
				go func(id int) {
					defer p.readerWG.Done()
					p.readerLoop(id)
				}(r)
			}
		} else {
			for _, c := range p.streams {
				p.readerWG.Add(1)
				go func(rd *StreamReader) {
					defer p.readerWG.Done()
					rd.Run()
				}(c.reader)
			}
		}
	}

	for w := 0; w < cfg.WorkerCount; w++ {
		p.workerWG.Add(1)
		go func(id int) {
			defer p.workerWG.Done()
			p.workerLoop(id)
		}(w)
	}

	return p
}

func (p *Pool) initStream(c *streamContext) error {
	d, err := p.cfg.Opener.Open()
	if err != nil {
		return err
	}

	c.queue = NewPacketQueue(p.cfg.QueueCapacity)
	c.reader = NewStreamReader(d, c.queue, p.stop, p.cfg.IsLive)

	dec, err := d.NewDecoder(p.cfg.DecoderThreads)
	if err != nil {
		d.Close()
		return err
	}
	c.decoder = dec
	c.demuxer = d
	return nil
}

// InitError returns the first per-stream initialization error, empty if all
// streams came up.
func (p *Pool) InitError() string {
	return p.initErr
}

// Start releases the barrier and begins the run. Returns the shared start
// time once worker 0 has seeded every stream's first frame deadline.
func (p *Pool) Start() time.Time {
	p.barrier.Arrive()
	for !p.initDone.Load() {
		runtime.Gosched()
	}
	return p.startAt
}

func (p *Pool) workerLoop(id int) {
	p.barrier.Arrive()

	if p.initErr != "" {
		// Barrier safety: arrive, then bail without touching streams.
		if id == 0 {
			p.initDone.Store(true)
		}
		return
	}

	// Worker 0 establishes the common t0 every stream paces against.
	if id == 0 {
		p.startAt = time.Now()
		for _, c := range p.streams {
			c.nextFrameTime = p.startAt
		}
		p.initDone.Store(true)
	} else {
		for !p.initDone.Load() {
			runtime.Gosched()
		}
	}

	// Round-robin stream ownership.
	var mine []*streamContext
	for i := id; i < p.cfg.StreamCount; i += p.cfg.WorkerCount {
		mine = append(mine, p.streams[i])
	}

	switch len(mine) {
	case 0:
	case 1:
		p.runSingleStream(mine[0])
	default:
		p.runScan(mine)
	}
}

func (p *Pool) readerLoop(id int) {
	var mine []*StreamReader
	for i := id; i < p.cfg.StreamCount; i += p.cfg.ReaderCount {
		mine = append(mine, p.streams[i].reader)
	}

	timer := time.NewTimer(poolIdleWait)
	defer timer.Stop()

	for !p.stop.Load() {
		anyActive := false
		anyDidWork := false

		for _, rd := range mine {
			switch rd.ReadNext() {
			case ReadQueued, ReadSkipped:
				anyActive = true
				anyDidWork = true
			case ReadQueueFull:
				anyActive = true
			case ReadDone:
			}
		}

		if !anyActive {
			break
		}

		if !anyDidWork {
			// Every queue full: sleep until a consumer pops or the wait
			// elapses.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(poolIdleWait)
			select {
			case <-p.wake:
			case <-timer.C:
			}
		}
	}

	for _, rd := range mine {
		rd.SignalDone()
	}
}

func (p *Pool) notifySpace() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Join waits for workers, drains each decoder's buffered frames into the
// final counts, wakes and joins the readers, and releases all per-stream
// resources. Call after the stop flag is set (or after Start on a pool that
// reported an init error).
func (p *Pool) Join() {
	p.workerWG.Wait()

	for _, c := range p.streams {
		if c.decoder != nil && !c.hasError.Load() {
			for {
				frame, err := c.decoder.FlushDecoder()
				if err != nil || !frame {
					break
				}
				c.totalFrames++
			}
		}
		c.framesDecoded.Store(c.totalFrames)
	}

	p.notifySpace()
	p.readerWG.Wait()

	for _, c := range p.streams {
		if c.queue != nil {
			c.queue.Clear()
		}
		if c.decoder != nil {
			c.decoder.Close()
		}
		if c.demuxer != nil {
			c.demuxer.Close()
		}
	}
}

// StreamFrames returns the published frame count for one stream. Safe to
// call while the run is in flight; the value may trail the true count by up
// to one batch.
func (p *Pool) StreamFrames(id int) int64 {
	if id < 0 || id >= len(p.streams) {
		return 0
	}
	return p.streams[id].framesDecoded.Load()
}

// Results gathers per-stream outcomes. elapsed is the measured wall-clock
// window the FPS figures are computed against. Call after Join.
func (p *Pool) Results(elapsed time.Duration) []StreamResult {
	results := make([]StreamResult, 0, len(p.streams))
	for _, c := range p.streams {
		frames := c.framesDecoded.Load()
		fps := 0.0
		if elapsed > 0 {
			fps = float64(frames) / elapsed.Seconds()
		}
		errMsg := ""
		if c.hasError.Load() {
			errMsg = c.errMsg
		}
		results = append(results, StreamResult{
			StreamID:      c.id,
			FramesDecoded: frames,
			FPS:           fps,
			LagCount:      c.lagCount,
			MaxLagMS:      c.maxLagMS,
			Err:           errMsg,
		})
	}
	return results
}
