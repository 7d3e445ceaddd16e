// Package decode implements the real-time paced multi-stream decode scheduler:
// bounded packet queues fed by I/O readers, paced worker loops that own
// decoders, and a pooled reader/worker layout for high stream counts.
//
// The package is independent of any particular demux/decode library. The
// media package provides FFmpeg-backed implementations of the contracts
// below; tests use in-memory stubs.
package decode

// Packet is one owned compressed packet. The holder is responsible for
// releasing it with Free exactly once.
type Packet interface {
	Free()
}

// Demuxer pulls packets from a single opened source. Implementations retain
// the video substream's codec parameters so NewDecoder can build a matching
// decoder without reopening the source.
type Demuxer interface {
	// ReadPacket reads the next packet from the container. Packets that do
	// not belong to the selected video substream are reported with
	// video=false and no Packet. Returns io.EOF at end of stream; any other
	// error is a read error. The returned Packet is owned by the caller.
	ReadPacket() (pkt Packet, video bool, err error)

	// SeekStart rewinds the source to its beginning (file mode only).
	SeekStart() error

	// NewDecoder builds a decoder from the retained video codec parameters.
	// threadCount 1 disables frame threading; larger values enable it.
	// Hardware acceleration is never used.
	NewDecoder(threadCount int) (Decoder, error)

	Close() error
}

// Decoder wraps one per-stream software codec context.
type Decoder interface {
	// DecodeFromPacket submits p and attempts to receive one frame. frame is
	// false while the codec is still buffering (B-frame reordering); that is
	// a normal outcome, not an error. The callee does not take ownership of p.
	DecodeFromPacket(p Packet) (frame bool, err error)

	// FlushBuffers drops the decoder's internal reordering state. Used after
	// a file-loop boundary so the codec holds no references to pre-seek data.
	FlushBuffers()

	// FlushDecoder sends end-of-stream and drains one buffered frame if any.
	// Called repeatedly at run end until frame is false.
	FlushDecoder() (frame bool, err error)

	Close() error
}

// Opener opens one independent Demuxer per call. Every concurrent stream in a
// run gets its own demuxer and decoder from the same opener.
type Opener interface {
	Open() (Demuxer, error)
}
