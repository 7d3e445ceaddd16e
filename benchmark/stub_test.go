package benchmark

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/video-bench/decode"
)

// Minimal media stubs for runner integration tests: an endless video-packet
// source whose decoder emits one frame per packet.

type nopPacket struct{}

func (nopPacket) Free() {}

type passthroughDemuxer struct{}

func (passthroughDemuxer) ReadPacket() (decode.Packet, bool, error) { return nopPacket{}, true, nil }
func (passthroughDemuxer) SeekStart() error                         { return nil }
func (passthroughDemuxer) Close() error                             { return nil }

func (passthroughDemuxer) NewDecoder(threadCount int) (decode.Decoder, error) {
	return passthroughDecoder{}, nil
}

type passthroughDecoder struct{}

func (passthroughDecoder) DecodeFromPacket(p decode.Packet) (bool, error) { return true, nil }
func (passthroughDecoder) FlushBuffers()                                  {}
func (passthroughDecoder) FlushDecoder() (bool, error)                    { return false, nil }
func (passthroughDecoder) Close() error                                   { return nil }

type passthroughOpener struct{}

func (passthroughOpener) Open() (decode.Demuxer, error) { return passthroughDemuxer{}, nil }

type failingOpener struct{}

func (failingOpener) Open() (decode.Demuxer, error) { return nil, errors.New("no such device") }
