// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and sample conversions shared by decoders, the graph and outputs
package audio

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a decoded audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// FrameSize returns the number of interleaved samples in one frame
func (f Format) FrameSize() int {
	if f.Channels <= 0 {
		return 1
	}
	return f.Channels
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleToFloat32 maps a 24-bit sample onto [-1, 1)
func SampleToFloat32(sample int32) float32 {
	return float32(sample) / float32(Max24Bit+1)
}

// SampleFromFloat32 maps [-1, 1] onto the 24-bit range, clipping out-of-range input
func SampleFromFloat32(v float32) int32 {
	scaled := int64(float64(v) * float64(Max24Bit+1))
	if scaled > Max24Bit {
		scaled = Max24Bit
	} else if scaled < Min24Bit {
		scaled = Min24Bit
	}
	return int32(scaled)
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
