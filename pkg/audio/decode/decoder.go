// ABOUTME: Streaming decoder interface and codec selection
// ABOUTME: Maps HTTP content types to MP3, Opus, FLAC and WAV decoders
package decode

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
)

// Decoder reads a compressed stream and produces interleaved int32 PCM samples
// in the 24-bit range
type Decoder interface {
	// Format describes the decoded output
	Format() audio.Format

	// Read fills samples with whole frames and returns the sample count.
	// It returns io.EOF once the stream is exhausted.
	Read(samples []int32) (int, error)

	// Close releases decoder resources
	Close() error
}

// Codec names understood by New
const (
	CodecMP3  = "mp3"
	CodecOpus = "opus"
	CodecFLAC = "flac"
	CodecWAV  = "wav"
)

// New creates a decoder for codec reading from r
func New(codec string, r io.Reader) (Decoder, error) {
	switch codec {
	case CodecMP3:
		return NewMP3(r)
	case CodecOpus:
		return NewOpus(r)
	case CodecFLAC:
		return NewFLAC(r)
	case CodecWAV:
		return NewWAV(r)
	default:
		return nil, fmt.Errorf("unsupported codec: %q", codec)
	}
}

// CodecFromContentType maps a Content-Type header (and a URL as a fallback
// hint) to a codec name. It returns "" when nothing matches.
func CodecFromContentType(contentType, url string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch mediaType {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg":
		return CodecMP3
	case "audio/ogg", "application/ogg", "audio/opus", "audio/ogg; codecs=opus":
		return CodecOpus
	case "audio/flac", "audio/x-flac":
		return CodecFLAC
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return CodecWAV
	}

	lower := strings.ToLower(strings.SplitN(url, "?", 2)[0])
	switch {
	case strings.HasSuffix(lower, ".mp3"):
		return CodecMP3
	case strings.HasSuffix(lower, ".opus"), strings.HasSuffix(lower, ".ogg"):
		return CodecOpus
	case strings.HasSuffix(lower, ".flac"):
		return CodecFLAC
	case strings.HasSuffix(lower, ".wav"):
		return CodecWAV
	}

	return ""
}

// pending holds decoded samples that did not fit into the caller's buffer
type pending struct {
	buf []int32
}

// drain copies buffered samples into dst and returns the count
func (p *pending) drain(dst []int32) int {
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	return n
}

func (p *pending) empty() bool {
	return len(p.buf) == 0
}

// trimToFrames rounds n down to a whole number of frames
func trimToFrames(n, channels int) int {
	if channels <= 1 {
		return n
	}
	return n - n%channels
}
