package decode

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamReaderFileLoopPushesFlushMarker(t *testing.T) {
	d := &stubDemuxer{packetsPerLoop: 3}
	q := NewPacketQueue(16)
	var stop atomic.Bool

	r := NewStreamReader(d, q, &stop, false)

	go r.Run()

	// 3 packets, then a flush marker, then the next loop's packets.
	var items []Item
	deadline := time.After(2 * time.Second)
	for len(items) < 5 {
		it, ok := q.Pop(50 * time.Millisecond)
		if !ok {
			select {
			case <-deadline:
				t.Fatal("timed out waiting for items")
			default:
			}
			continue
		}
		items = append(items, it)
		if it.Packet != nil {
			it.Packet.Free()
		}
	}

	stop.Store(true)

	assert.False(t, items[0].Flush)
	assert.False(t, items[1].Flush)
	assert.False(t, items[2].Flush)
	assert.True(t, items[3].Flush)
	assert.False(t, items[4].Flush)
	assert.GreaterOrEqual(t, d.seeks.Load(), int64(1))
	assert.False(t, r.HasError())
}

func TestStreamReaderLiveEOFIsError(t *testing.T) {
	d := &stubDemuxer{packetsPerLoop: 2}
	q := NewPacketQueue(16)
	var stop atomic.Bool

	r := NewStreamReader(d, q, &stop, true)
	r.Run()

	require.True(t, r.HasError())
	assert.Equal(t, "Stream ended", r.Err())
	assert.Equal(t, int64(0), d.seeks.Load())

	// EOF must be signaled so the consumer can finish draining.
	for {
		if _, ok := q.Pop(time.Millisecond); !ok {
			break
		}
	}
	assert.True(t, q.EOF())
}

func TestStreamReaderReadError(t *testing.T) {
	d := &stubDemuxer{readErrAfter: 2}
	q := NewPacketQueue(16)
	var stop atomic.Bool

	r := NewStreamReader(d, q, &stop, false)
	r.Run()

	require.True(t, r.HasError())
	assert.Contains(t, r.Err(), "Read error")
}

func TestStreamReaderSkipsNonVideo(t *testing.T) {
	var frees atomic.Int64
	d := &stubDemuxer{nonVideoEvery: 2, frees: &frees}
	q := NewPacketQueue(4)
	var stop atomic.Bool

	r := NewStreamReader(d, q, &stop, false)
	go r.Run()

	for i := 0; i < 4; i++ {
		it, ok := q.Pop(time.Second)
		require.True(t, ok)
		require.NotNil(t, it.Packet)
		it.Packet.Free()
	}
	stop.Store(true)

	// Discarded non-video packets were released, not queued: the 4 video
	// packets freed above came from reads 1, 3, 5, 7, and the reader freed
	// the non-video reads 2, 4, 6 before read 7.
	assert.GreaterOrEqual(t, frees.Load(), int64(7))
}

func TestStreamReaderStopSignalsEOF(t *testing.T) {
	d := &stubDemuxer{}
	q := NewPacketQueue(2)
	var stop atomic.Bool

	r := NewStreamReader(d, q, &stop, false)

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	stop.Store(true)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}

	q.Clear()
	assert.True(t, q.EOF())
}

func TestReadNextStates(t *testing.T) {
	d := &stubDemuxer{nonVideoEvery: 3}
	q := NewPacketQueue(2)
	var stop atomic.Bool

	r := NewStreamReader(d, q, &stop, false)

	assert.Equal(t, ReadQueued, r.ReadNext())
	assert.Equal(t, ReadQueued, r.ReadNext())
	// Third read is non-video.
	assert.Equal(t, ReadSkipped, r.ReadNext())
	// Queue now full: the packet is retained as pending.
	assert.Equal(t, ReadQueueFull, r.ReadNext())
	assert.Equal(t, ReadQueueFull, r.ReadNext())

	// A pop frees space; the pending packet goes through on the next step.
	it, ok := q.Pop(time.Millisecond)
	require.True(t, ok)
	it.Packet.Free()
	assert.Equal(t, ReadQueued, r.ReadNext())
}

func TestReadNextLiveEOFEndsReader(t *testing.T) {
	d := &stubDemuxer{packetsPerLoop: 1}
	q := NewPacketQueue(4)
	var stop atomic.Bool

	r := NewStreamReader(d, q, &stop, true)

	assert.Equal(t, ReadQueued, r.ReadNext())
	assert.Equal(t, ReadDone, r.ReadNext())
	assert.Equal(t, ReadDone, r.ReadNext())
	require.True(t, r.HasError())
	assert.Equal(t, "Stream ended", r.Err())

	q.Clear()
	assert.True(t, q.EOF())
}

func TestReadNextFileEOFSeeksAndContinues(t *testing.T) {
	d := &stubDemuxer{packetsPerLoop: 1}
	q := NewPacketQueue(4)
	var stop atomic.Bool

	r := NewStreamReader(d, q, &stop, false)

	assert.Equal(t, ReadQueued, r.ReadNext())
	// EOF: seek + flush marker counts as progress, not completion.
	assert.Equal(t, ReadSkipped, r.ReadNext())
	assert.Equal(t, int64(1), d.seeks.Load())
	assert.Equal(t, ReadQueued, r.ReadNext())

	it, ok := q.Pop(time.Millisecond)
	require.True(t, ok)
	assert.False(t, it.Flush)
	it.Packet.Free()

	it, ok = q.Pop(time.Millisecond)
	require.True(t, ok)
	assert.True(t, it.Flush)
}

func TestReadNextStopFinishes(t *testing.T) {
	d := &stubDemuxer{}
	q := NewPacketQueue(4)
	var stop atomic.Bool

	r := NewStreamReader(d, q, &stop, false)
	assert.Equal(t, ReadQueued, r.ReadNext())

	stop.Store(true)
	assert.Equal(t, ReadDone, r.ReadNext())
	assert.False(t, r.HasError())
	q.Clear()
	assert.True(t, q.EOF())
}
