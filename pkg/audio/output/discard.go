// ABOUTME: Discarding audio output
// ABOUTME: Consumes samples at real-time pace without a device, for headless runs
package output

import (
	"fmt"
	"sync"
	"time"
)

// Discard is an Output that drops samples while pacing writes to the
// stream's real-time rate
type Discard struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	open       bool
	written    int64
	paced      bool
}

// NewDiscard creates a discarding output. When paced is false writes return
// immediately.
func NewDiscard(paced bool) *Discard {
	return &Discard{paced: paced}
}

// Open records the stream format
func (d *Discard) Open(sampleRate, channels, bitDepth int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid format: %dHz %dch", sampleRate, channels)
	}
	d.sampleRate = sampleRate
	d.channels = channels
	d.open = true
	return nil
}

// Write drops samples
func (d *Discard) Write(samples []int32) error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return fmt.Errorf("output not initialized")
	}
	d.written += int64(len(samples))
	frames := len(samples) / d.channels
	rate := d.sampleRate
	d.mu.Unlock()

	if d.paced && frames > 0 {
		time.Sleep(time.Duration(frames) * time.Second / time.Duration(rate))
	}
	return nil
}

// Written returns the total number of samples written
func (d *Discard) Written() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

// Close marks the output closed
func (d *Discard) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}
