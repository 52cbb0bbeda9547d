// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface plus oto and discard implementations
// Package output provides audio playback sinks.
//
// Oto drives the system audio device. oto permits a single context per
// process, so every Oto value shares it. Discard is used for headless runs
// and tests.
//
// Example:
//
//	out := output.NewOto(logger)
//	err := out.Open(48000, 2, 16)
//	err = out.Write(samples)
package output
