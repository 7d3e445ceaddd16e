// Package media backs the decode package's Demuxer/Decoder contracts with
// FFmpeg through go-astiav, and probes sources for stream parameters before
// a benchmark starts.
package media

import (
	"io"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/pkg/errors"

	"github.com/nvr-ai/video-bench/decode"
)

// IsLiveURL reports whether path names a live network source rather than a
// seekable file.
func IsLiveURL(path string) bool {
	return strings.HasPrefix(path, "rtsp://") || strings.HasPrefix(path, "rtsps://")
}

// rtspOptions returns the dictionary applied to live inputs: reliable
// transport and a finite socket timeout so a dead camera fails fast.
func rtspOptions() *astiav.Dictionary {
	d := astiav.NewDictionary()
	_ = d.Set("rtsp_transport", "tcp", 0)
	_ = d.Set("stimeout", "5000000", 0) // 5s, in microseconds
	return d
}

// Opener opens independent FFmpeg demuxers over one source URI.
type Opener struct {
	path   string
	isLive bool
}

// NewOpener returns an Opener for path. With isLive set, demuxers are opened
// with the RTSP transport options; seeking is not affected.
func NewOpener(path string, isLive bool) *Opener {
	return &Opener{path: path, isLive: isLive}
}

// Open opens the source and locates its first video substream.
func (o *Opener) Open() (decode.Demuxer, error) {
	return openDemuxer(o.path, o.isLive)
}

// packet adapts an owned *astiav.Packet to decode.Packet.
type packet struct {
	p *astiav.Packet
}

func (p *packet) Free() {
	p.p.Free()
}

type demuxer struct {
	fc         *astiav.FormatContext
	opened     bool
	videoIndex int
	codecPar   *astiav.CodecParameters
}

func openDemuxer(path string, isLive bool) (*demuxer, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("Reader: failed to allocate format context")
	}

	d := &demuxer{fc: fc, videoIndex: -1}

	var dict *astiav.Dictionary
	if isLive {
		dict = rtspOptions()
		defer dict.Free()
	}

	if err := fc.OpenInput(path, nil, dict); err != nil {
		fc.Free()
		return nil, errors.Wrap(err, "Reader: failed to open source")
	}
	d.opened = true

	if err := fc.FindStreamInfo(nil); err != nil {
		d.Close()
		return nil, errors.Wrap(err, "Reader: failed to find stream info")
	}

	for _, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			d.videoIndex = s.Index()
			d.codecPar = s.CodecParameters()
			break
		}
	}
	if d.videoIndex < 0 {
		d.Close()
		return nil, errors.New("Reader: no video stream found")
	}

	return d, nil
}

func (d *demuxer) ReadPacket() (decode.Packet, bool, error) {
	pkt := astiav.AllocPacket()
	if pkt == nil {
		return nil, false, errors.New("failed to allocate packet")
	}

	if err := d.fc.ReadFrame(pkt); err != nil {
		pkt.Free()
		if errors.Is(err, astiav.ErrEof) {
			return nil, false, io.EOF
		}
		return nil, false, err
	}

	if pkt.StreamIndex() != d.videoIndex {
		pkt.Free()
		return nil, false, nil
	}

	return &packet{p: pkt}, true, nil
}

func (d *demuxer) SeekStart() error {
	return d.fc.SeekFrame(d.videoIndex, 0, astiav.NewSeekFlags(astiav.SeekFlagBackward))
}

func (d *demuxer) NewDecoder(threadCount int) (decode.Decoder, error) {
	return newDecoder(d.codecPar, threadCount)
}

func (d *demuxer) Close() error {
	if d.fc != nil {
		if d.opened {
			d.fc.CloseInput()
		}
		d.fc.Free()
		d.fc = nil
	}
	return nil
}

type streamDecoder struct {
	cc    *astiav.CodecContext
	frame *astiav.Frame
}

// newDecoder builds a software decoder from retained codec parameters.
// Hardware acceleration is never wired up: the benchmark measures CPU
// decode throughput.
func newDecoder(cp *astiav.CodecParameters, threadCount int) (*streamDecoder, error) {
	codec := astiav.FindDecoder(cp.CodecID())
	if codec == nil {
		return nil, errors.New("Unsupported codec")
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("Failed to allocate codec context")
	}

	if err := cp.ToCodecContext(cc); err != nil {
		cc.Free()
		return nil, errors.Wrap(err, "Failed to copy codec params")
	}

	if threadCount < 1 {
		threadCount = 1
	}
	cc.SetThreadCount(threadCount)

	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, errors.Wrap(err, "Failed to open codec")
	}

	frame := astiav.AllocFrame()
	if frame == nil {
		cc.Free()
		return nil, errors.New("Failed to allocate frame")
	}

	return &streamDecoder{cc: cc, frame: frame}, nil
}

func (s *streamDecoder) DecodeFromPacket(p decode.Packet) (bool, error) {
	ap, ok := p.(*packet)
	if !ok {
		return false, errors.Errorf("unexpected packet type %T", p)
	}

	if err := s.cc.SendPacket(ap.p); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return false, errors.Wrap(err, "send_packet error")
	}

	if err := s.cc.ReceiveFrame(s.frame); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			// Codec is still buffering; more packets needed.
			return false, nil
		}
		return false, errors.Wrap(err, "receive_frame error")
	}

	s.frame.Unref()
	return true, nil
}

func (s *streamDecoder) FlushBuffers() {
	s.cc.FlushBuffers()
}

func (s *streamDecoder) FlushDecoder() (bool, error) {
	// Entering drain mode repeatedly is harmless; FFmpeg reports EOF on the
	// extra sends.
	if err := s.cc.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) && !errors.Is(err, astiav.ErrEagain) {
		return false, errors.Wrap(err, "drain send_packet error")
	}

	if err := s.cc.ReceiveFrame(s.frame); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return false, nil
		}
		return false, errors.Wrap(err, "drain receive_frame error")
	}

	s.frame.Unref()
	return true, nil
}

func (s *streamDecoder) Close() error {
	if s.frame != nil {
		s.frame.Free()
		s.frame = nil
	}
	if s.cc != nil {
		s.cc.Free()
		s.cc = nil
	}
	return nil
}
