// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC streams frame by frame using mewkiz/flac
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct {
	stream *flac.Stream
	format audio.Format
	rest   pending
}

// NewFLAC creates a FLAC decoder reading from r
func NewFLAC(r io.Reader) (Decoder, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac stream: %w", err)
	}

	return &FLACDecoder{
		stream: stream,
		format: audio.Format{
			Codec:      CodecFLAC,
			SampleRate: int(stream.Info.SampleRate),
			Channels:   int(stream.Info.NChannels),
			BitDepth:   int(stream.Info.BitsPerSample),
		},
	}, nil
}

// Format describes the decoded output
func (d *FLACDecoder) Format() audio.Format {
	return d.format
}

// Read decodes one FLAC frame at a time, interleaving its subframes
func (d *FLACDecoder) Read(samples []int32) (int, error) {
	if !d.rest.empty() {
		return d.rest.drain(samples), nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("flac decode failed: %w", err)
	}

	channels := len(frame.Subframes)
	if channels == 0 {
		return 0, nil
	}
	blockSize := len(frame.Subframes[0].Samples)
	shift := 24 - d.format.BitDepth

	decoded := make([]int32, blockSize*channels)
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			s := frame.Subframes[ch].Samples[i]
			// Normalise to 24-bit range
			if shift > 0 {
				s <<= uint(shift)
			} else if shift < 0 {
				s >>= uint(-shift)
			}
			decoded[i*channels+ch] = s
		}
	}

	d.rest.buf = decoded
	return d.rest.drain(samples), nil
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return d.stream.Close()
}
