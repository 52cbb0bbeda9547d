// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and sample conversion functions
// Package audio provides fundamental audio types used throughout radiodeck.
//
// Decoders produce interleaved int32 samples in the 24-bit range. The
// processing graph works on float32 samples in [-1, 1); the conversion
// helpers here move between the two representations.
//
// Example:
//
//	format := audio.Format{
//	    Codec:      "mp3",
//	    SampleRate: 44100,
//	    Channels:   2,
//	    BitDepth:   16,
//	}
//
//	v := audio.SampleToFloat32(audio.SampleFromInt16(sample16))
package audio
