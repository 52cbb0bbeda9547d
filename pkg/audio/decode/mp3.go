// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 streams to int32 samples using go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio
type MP3Decoder struct {
	decoder *mp3.Decoder
	format  audio.Format
	raw     []byte
}

// NewMP3 creates an MP3 decoder reading from r. go-mp3 always produces
// 16-bit stereo output.
func NewMP3(r io.Reader) (Decoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Decoder{
		decoder: decoder,
		format: audio.Format{
			Codec:      CodecMP3,
			SampleRate: decoder.SampleRate(),
			Channels:   2,
			BitDepth:   16,
		},
	}, nil
}

// Format describes the decoded output
func (d *MP3Decoder) Format() audio.Format {
	return d.format
}

// Read converts MP3 bytes to int32 samples
func (d *MP3Decoder) Read(samples []int32) (int, error) {
	want := trimToFrames(len(samples), d.format.Channels) * 2
	if want == 0 {
		return 0, nil
	}
	if cap(d.raw) < want {
		d.raw = make([]byte, want)
	}
	buf := d.raw[:want]

	n, err := io.ReadFull(d.decoder, buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	count := n / 2
	for i := 0; i < count; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		samples[i] = audio.SampleFromInt16(sample16)
	}

	if count > 0 {
		return count, nil
	}
	return 0, err
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
