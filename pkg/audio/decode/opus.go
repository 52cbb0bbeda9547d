// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Ogg-encapsulated Opus streams to int32 samples
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// Opus always decodes at 48kHz. Radio streams are stereo.
const (
	opusSampleRate = 48000
	opusChannels   = 2
	opusMaxFrame   = 5760
)

// OpusDecoder decodes Ogg Opus audio
type OpusDecoder struct {
	stream *opus.Stream
	pcm16  []int16
	rest   pending
}

// NewOpus creates an Ogg Opus decoder reading from r
func NewOpus(r io.Reader) (Decoder, error) {
	stream, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus stream: %w", err)
	}

	return &OpusDecoder{
		stream: stream,
		pcm16:  make([]int16, opusMaxFrame*opusChannels),
	}, nil
}

// Format describes the decoded output
func (d *OpusDecoder) Format() audio.Format {
	return audio.Format{
		Codec:      CodecOpus,
		SampleRate: opusSampleRate,
		Channels:   opusChannels,
		BitDepth:   16,
	}
}

// Read decodes Opus packets until samples is filled or a packet boundary is reached
func (d *OpusDecoder) Read(samples []int32) (int, error) {
	if !d.rest.empty() {
		return d.rest.drain(samples), nil
	}

	n, err := d.stream.Read(d.pcm16)
	if err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("opus decode failed: %w", err)
	}

	// n is samples per channel
	total := n * opusChannels
	decoded := make([]int32, total)
	for i := 0; i < total; i++ {
		decoded[i] = audio.SampleFromInt16(d.pcm16[i])
	}

	d.rest.buf = decoded
	return d.rest.drain(samples), nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return d.stream.Close()
}
