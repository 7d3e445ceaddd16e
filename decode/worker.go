package decode

import (
	"time"
)

const (
	// batchSize is the granularity at which workers publish frame counts and
	// check the stop flag. Exit correctness tolerates up to one batch of
	// extra work after stop.
	batchSize = 16

	// popTimeout is the blocking pop used on the single-stream fast path.
	// Doubles as a liveness check: the loop wakes even when no packet comes.
	popTimeout = 100 * time.Millisecond

	// lagTolerance is the grace past a frame's deadline before it counts as
	// a lag event.
	lagTolerance = time.Millisecond

	// drainPopTimeout is the short pop used by the multi-stream scan path so
	// one starved stream cannot stall its siblings.
	drainPopTimeout = time.Millisecond

	// starveSleep is the scan-path yield when a due stream had no packet;
	// the reader side will deliver shortly.
	starveSleep = 500 * time.Microsecond
)

// pace advances the stream's frame deadline after a decoded frame and sleeps
// off any earliness. A frame later than deadline+tolerance is a lag event;
// the deadline then resets to now so debt cannot accumulate without bound
// under sustained overload.
func (c *streamContext) pace(sleepWhenEarly bool) {
	c.nextFrameTime = c.nextFrameTime.Add(c.frameInterval)
	now := time.Now()

	switch {
	case now.After(c.nextFrameTime.Add(lagTolerance)):
		c.lagCount++
		lagMS := float64(now.Sub(c.nextFrameTime)) / float64(time.Millisecond)
		if lagMS > c.maxLagMS {
			c.maxLagMS = lagMS
		}
		c.nextFrameTime = now
	case now.Before(c.nextFrameTime):
		if sleepWhenEarly {
			time.Sleep(c.nextFrameTime.Sub(now))
		}
	}
}

func (c *streamContext) countFrame() {
	c.totalFrames++
	if c.totalFrames%batchSize == 0 {
		c.framesDecoded.Store(c.totalFrames)
	}
}

// runSingleStream is the minimum-overhead loop used for every worker that
// owns exactly one stream, in both the thread-per-stream and pooled layouts.
func (p *Pool) runSingleStream(c *streamContext) {
	for {
		if c.totalFrames%batchSize == 0 && p.stop.Load() {
			return
		}

		it, ok := c.queue.Pop(popTimeout)
		if !ok {
			if c.queue.EOF() {
				if c.reader.HasError() {
					c.setError(c.reader.Err())
				}
				c.finished.Store(true)
				return
			}
			// Timeout: loop around. The stop flag is re-checked at the top
			// only while the frame count sits on a batch boundary; otherwise
			// the reader's EOF on stop ends the loop.
			continue
		}

		if it.Flush {
			c.decoder.FlushBuffers()
			continue
		}

		frame, err := c.decoder.DecodeFromPacket(it.Packet)
		it.Packet.Free()
		if err != nil {
			c.setError(err.Error())
			return
		}
		if !frame {
			// Codec still buffering (B-frame reorder); no pacing advance.
			continue
		}

		c.countFrame()
		c.pace(true)
	}
}

// drainUntilFrame pops and decodes until one frame is produced, the queue is
// exhausted, the stop flag is set, or an error occurs. On success the pacing
// step advances without sleeping (the scan loop owns the sleep decision).
func (p *Pool) drainUntilFrame(c *streamContext, popTO time.Duration) bool {
	for !p.stop.Load() {
		it, ok := c.queue.Pop(popTO)
		if !ok {
			if c.queue.EOF() {
				if c.reader.HasError() {
					c.setError(c.reader.Err())
				}
				c.finished.Store(true)
			}
			return false
		}

		if it.Flush {
			c.decoder.FlushBuffers()
			continue
		}

		frame, err := c.decoder.DecodeFromPacket(it.Packet)
		it.Packet.Free()
		if err != nil {
			c.setError(err.Error())
			return false
		}
		if !frame {
			continue
		}

		c.countFrame()
		c.pace(false)
		return true
	}
	return false
}

// runScan interleaves k > 1 streams on one worker: one frame per due stream
// per pass, prioritized by due-time, with a short yield when packets are not
// arriving fast enough.
func (p *Pool) runScan(streams []*streamContext) {
	for !p.stop.Load() {
		now := time.Now()
		var earliest time.Time
		anyActive := false
		anyStarved := false

		for _, c := range streams {
			if !c.active() {
				continue
			}
			anyActive = true

			if !now.Before(c.nextFrameTime) {
				got := p.drainUntilFrame(c, drainPopTimeout)
				if !got && c.active() {
					anyStarved = true
				}
				now = time.Now()
			}

			if c.active() {
				if earliest.IsZero() || c.nextFrameTime.Before(earliest) {
					earliest = c.nextFrameTime
				}
			}
		}

		if !anyActive {
			return
		}

		now = time.Now()
		switch {
		case anyStarved:
			time.Sleep(starveSleep)
		case !earliest.IsZero() && earliest.After(now.Add(lagTolerance)):
			time.Sleep(earliest.Sub(now))
		}
	}
}
