// ABOUTME: WAV (RIFF PCM) audio decoder
// ABOUTME: Decodes 16-bit and 24-bit little-endian PCM to int32 samples
package decode

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
)

const wavFormatPCM = 1

// WAVDecoder decodes PCM audio wrapped in a RIFF/WAVE container
type WAVDecoder struct {
	r      *bufio.Reader
	format audio.Format
	raw    []byte
}

// NewWAV parses the RIFF header and positions the reader at the data chunk
func NewWAV(r io.Reader) (Decoder, error) {
	br := bufio.NewReader(r)

	var riff [12]byte
	if _, err := io.ReadFull(br, riff[:]); err != nil {
		return nil, fmt.Errorf("failed to read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE stream")
	}

	d := &WAVDecoder{r: br}
	haveFmt := false

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(br, body); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if tag := binary.LittleEndian.Uint16(body[0:2]); tag != wavFormatPCM {
				return nil, fmt.Errorf("unsupported wav format tag: %d", tag)
			}
			d.format = audio.Format{
				Codec:      CodecWAV,
				Channels:   int(binary.LittleEndian.Uint16(body[2:4])),
				SampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
				BitDepth:   int(binary.LittleEndian.Uint16(body[14:16])),
			}
			if d.format.BitDepth != 16 && d.format.BitDepth != 24 {
				return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", d.format.BitDepth)
			}
			if size%2 == 1 {
				_, _ = br.Discard(1)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			return d, nil

		default:
			skip := int(size) + int(size%2)
			if _, err := br.Discard(skip); err != nil {
				return nil, fmt.Errorf("failed to skip %q chunk: %w", id, err)
			}
		}
	}
}

// Format describes the decoded output
func (d *WAVDecoder) Format() audio.Format {
	return d.format
}

// Read converts PCM bytes to int32 samples
func (d *WAVDecoder) Read(samples []int32) (int, error) {
	bytesPerSample := d.format.BitDepth / 8
	want := trimToFrames(len(samples), d.format.Channels) * bytesPerSample
	if want == 0 {
		return 0, nil
	}
	if cap(d.raw) < want {
		d.raw = make([]byte, want)
	}
	buf := d.raw[:want]

	n, err := io.ReadFull(d.r, buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("wav read error: %w", err)
	}

	count := n / bytesPerSample
	count = trimToFrames(count, d.format.Channels)
	for i := 0; i < count; i++ {
		if bytesPerSample == 3 {
			samples[i] = audio.SampleFrom24Bit([3]byte{buf[i*3], buf[i*3+1], buf[i*3+2]})
		} else {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
		}
	}

	if count > 0 {
		return count, nil
	}
	return 0, err
}

// Close releases decoder resources
func (d *WAVDecoder) Close() error {
	return nil
}

// EncodeWAV16 builds a 16-bit PCM WAV image
func EncodeWAV16(sampleRate, channels int, samples []int16) []byte {
	dataLen := len(samples) * 2
	out := make([]byte, 44+dataLen)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(out[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(out[34:36], 16)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(s))
	}
	return out
}
