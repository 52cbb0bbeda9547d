// ABOUTME: Shared fixtures for audio graph tests
// ABOUTME: Offline contexts and synthetic media elements
package webaudio

import (
	"math"
	"testing"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio/output"
	"github.com/rs/zerolog"
)

func newOfflineContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := NewContext(ContextOptions{
		Output:  output.NewDiscard(false),
		Logger:  zerolog.Nop(),
		Offline: true,
	})
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

// constElement emits a constant value on every channel
type constElement struct {
	id    string
	value float32
}

func (e *constElement) ID() string               { return e.id }
func (e *constElement) SetOutputFormat(_, _ int) {}
func (e *constElement) ReadPCM(dst []float32) int {
	for i := range dst {
		dst[i] = e.value
	}
	return len(dst)
}

// toneElement emits a sine wave
type toneElement struct {
	id       string
	freq     float64
	amp      float64
	rate     int
	channels int
	position int64
}

func (e *toneElement) ID() string { return e.id }

func (e *toneElement) SetOutputFormat(rate, channels int) {
	e.rate = rate
	e.channels = channels
}

func (e *toneElement) ReadPCM(dst []float32) int {
	frames := len(dst) / e.channels
	for f := 0; f < frames; f++ {
		v := float32(e.amp * math.Sin(2*math.Pi*e.freq*float64(e.position)/float64(e.rate)))
		for c := 0; c < e.channels; c++ {
			dst[f*e.channels+c] = v
		}
		e.position++
	}
	return frames * e.channels
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
