// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides streaming sample rate conversion.
//
// Uses linear interpolation for converting between sample rates and keeps
// the last frame of each chunk so that a stream can be converted piecewise.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out := r.Process(chunk)
package resample
