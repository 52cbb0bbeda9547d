// ABOUTME: Tests for WAV decoder
// ABOUTME: Tests header parsing, sample conversion and EOF handling
package decode

import (
	"bytes"
	"io"
	"testing"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
)

func TestWAVDecodeStereo16(t *testing.T) {
	input := []int16{100, -100, 32767, -32768, 0, 1}
	data := EncodeWAV16(44100, 2, input)

	dec, err := NewWAV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewWAV failed: %v", err)
	}
	defer dec.Close()

	format := dec.Format()
	if format.SampleRate != 44100 || format.Channels != 2 || format.BitDepth != 16 {
		t.Fatalf("unexpected format: %+v", format)
	}

	samples := make([]int32, 16)
	n, err := dec.Read(samples)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), n)
	}
	for i, s := range input {
		if samples[i] != audio.SampleFromInt16(s) {
			t.Errorf("sample %d: expected %d, got %d", i, audio.SampleFromInt16(s), samples[i])
		}
	}

	if _, err := dec.Read(samples); err != io.EOF {
		t.Errorf("expected io.EOF after data, got %v", err)
	}
}

func TestWAVReadWholeFramesOnly(t *testing.T) {
	data := EncodeWAV16(48000, 2, []int16{1, 2, 3, 4})

	dec, err := NewWAV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewWAV failed: %v", err)
	}

	samples := make([]int32, 3)
	n, err := dec.Read(samples)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected one stereo frame (2 samples), got %d", n)
	}
}

func TestWAVRejectsNonRIFF(t *testing.T) {
	_, err := NewWAV(bytes.NewReader([]byte("ID3\x03\x00\x00\x00\x00\x00\x00\x00\x00")))
	if err == nil {
		t.Fatal("expected error for non-RIFF input")
	}
}

func TestWAVRejectsUnsupportedBitDepth(t *testing.T) {
	data := EncodeWAV16(44100, 1, []int16{0})
	// Patch bits-per-sample to 8
	data[34] = 8

	if _, err := NewWAV(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for 8-bit wav")
	}
}
