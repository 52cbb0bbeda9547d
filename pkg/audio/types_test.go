// ABOUTME: Tests for audio types
// ABOUTME: Checks sample conversions between int16, packed 24-bit, int32 and float32
package audio

import "testing"

func TestInt16Conversions(t *testing.T) {
	tests := []struct {
		name  string
		pcm16 int16
		wide  int32
	}{
		{"silence", 0, 0},
		{"quiet", 100, 25600},
		{"quiet negative", -100, -25600},
		{"full scale", 32767, 8388352},
		{"full scale negative", -32768, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleFromInt16(tt.pcm16); got != tt.wide {
				t.Errorf("SampleFromInt16(%d) = %d, want %d", tt.pcm16, got, tt.wide)
			}
			if got := SampleToInt16(tt.wide); got != tt.pcm16 {
				t.Errorf("SampleToInt16(%d) = %d, want %d", tt.wide, got, tt.pcm16)
			}
		})
	}
}

func TestSampleFrom24BitSignExtends(t *testing.T) {
	tests := []struct {
		packed [3]byte
		want   int32
	}{
		{[3]byte{0x00, 0x00, 0x00}, 0},
		{[3]byte{0x01, 0x00, 0x00}, 1},
		{[3]byte{0xFF, 0xFF, 0xFF}, -1},
		{[3]byte{0x10, 0x32, 0x54}, 0x543210},
		{[3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{[3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		if got := SampleFrom24Bit(tt.packed); got != tt.want {
			t.Errorf("SampleFrom24Bit(% x) = %d, want %d", tt.packed, got, tt.want)
		}
	}
}

func TestFloat32Conversions(t *testing.T) {
	if v := SampleToFloat32(Min24Bit); v != -1 {
		t.Errorf("SampleToFloat32(Min24Bit) = %f, want -1", v)
	}
	if v := SampleToFloat32(Max24Bit); v >= 1 || v < 0.999 {
		t.Errorf("SampleToFloat32(Max24Bit) = %f, want just below 1", v)
	}

	tests := []struct {
		in   float32
		want int32
	}{
		{0, 0},
		{0.5, 4194304},
		{-0.25, -2097152},
		{1, Max24Bit},
		{1.5, Max24Bit},
		{-1.5, Min24Bit},
	}
	for _, tt := range tests {
		if got := SampleFromFloat32(tt.in); got != tt.want {
			t.Errorf("SampleFromFloat32(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatFrameSize(t *testing.T) {
	tests := []struct {
		channels int
		want     int
	}{
		{2, 2},
		{1, 1},
		{0, 1},
	}
	for _, tt := range tests {
		if got := (Format{Channels: tt.channels}).FrameSize(); got != tt.want {
			t.Errorf("FrameSize with %d channels = %d, want %d", tt.channels, got, tt.want)
		}
	}
}
