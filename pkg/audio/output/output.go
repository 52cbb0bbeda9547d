// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends
package output

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels, bitDepth int) error

	// Write outputs interleaved 24-bit range samples (blocks until written)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}

// Suspender is implemented by outputs that can pause the device without
// releasing it
type Suspender interface {
	Suspend() error
	Resume() error
}
