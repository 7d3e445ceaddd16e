package media

import (
	"fmt"
	"math"

	"github.com/asticode/go-astiav"
	"github.com/pkg/errors"
)

// Codec enumerates the codecs the benchmark advertises support for.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecH264
	CodecH265
	CodecVP9
	CodecAV1
)

// avTimeBase is FFmpeg's container duration unit (microseconds).
const avTimeBase = 1_000_000

// VideoInfo describes the probed source, captured once before the benchmark
// starts.
type VideoInfo struct {
	Path            string
	Codec           Codec
	CodecName       string
	Width           int
	Height          int
	FPS             float64
	DurationSeconds float64
	TotalFrames     int64
	IsLive          bool
}

// ResolutionString renders the height as the usual marketing label.
func (v VideoInfo) ResolutionString() string {
	switch {
	case v.Height >= 2160:
		return "4K"
	case v.Height >= 1440:
		return "1440p"
	case v.Height >= 1080:
		return "1080p"
	case v.Height >= 720:
		return "720p"
	case v.Height >= 480:
		return "480p"
	default:
		return fmt.Sprintf("%dp", v.Height)
	}
}

// CodecSupported reports whether the codec is one the tool advertises.
func (v VideoInfo) CodecSupported() bool {
	return v.Codec != CodecUnknown
}

func codecIDToCodec(id astiav.CodecID) (Codec, string) {
	switch id {
	case astiav.CodecIDH264:
		return CodecH264, "H.264"
	case astiav.CodecIDHevc:
		return CodecH265, "H.265"
	case astiav.CodecIDVp9:
		return CodecVP9, "VP9"
	case astiav.CodecIDAv1:
		return CodecAV1, "AV1"
	default:
		return CodecUnknown, "Unknown"
	}
}

// Probe opens the source once and extracts resolution, codec, frame rate,
// duration and the live flag. The format context is released before
// returning; the benchmark reopens the source per stream.
func Probe(path string) (*VideoInfo, error) {
	isLive := IsLiveURL(path)

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("failed to allocate format context")
	}
	defer fc.Free()

	var dict *astiav.Dictionary
	if isLive {
		dict = rtspOptions()
		defer dict.Free()
	}

	if err := fc.OpenInput(path, nil, dict); err != nil {
		return nil, errors.Wrap(err, "Failed to open file")
	}
	defer fc.CloseInput()

	if err := fc.FindStreamInfo(nil); err != nil {
		return nil, errors.Wrap(err, "Failed to find stream info")
	}

	var videoStream *astiav.Stream
	for _, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			videoStream = s
			break
		}
	}
	if videoStream == nil {
		return nil, errors.New("No video stream found in file")
	}

	cp := videoStream.CodecParameters()

	fps := 0.0
	if r := videoStream.AvgFrameRate(); r.Den() != 0 {
		fps = float64(r.Num()) / float64(r.Den())
	} else if r := videoStream.RFrameRate(); r.Den() != 0 {
		fps = float64(r.Num()) / float64(r.Den())
	}
	if fps <= 0 {
		return nil, errors.New("Could not determine video frame rate")
	}

	duration := 0.0
	if d := fc.Duration(); d > 0 {
		duration = float64(d) / avTimeBase
	} else if d := videoStream.Duration(); d > 0 {
		tb := videoStream.TimeBase()
		if tb.Den() != 0 {
			duration = float64(d) * float64(tb.Num()) / float64(tb.Den())
		}
	}

	var totalFrames int64
	if duration > 0 {
		totalFrames = int64(math.Round(duration * fps))
	}

	codec, codecName := codecIDToCodec(cp.CodecID())

	return &VideoInfo{
		Path:            path,
		Codec:           codec,
		CodecName:       codecName,
		Width:           cp.Width(),
		Height:          cp.Height(),
		FPS:             fps,
		DurationSeconds: duration,
		TotalFrames:     totalFrames,
		IsLive:          isLive,
	}, nil
}
