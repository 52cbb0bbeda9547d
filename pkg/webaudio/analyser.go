// ABOUTME: Analyser node
// ABOUTME: Keeps a time-domain window and produces smoothed byte spectra on demand
package webaudio

import (
	"fmt"
	"math"
)

const (
	// DefaultFFTSize is the analyser window length
	DefaultFFTSize = 2048

	minFFTSize = 32
	maxFFTSize = 32768

	defaultSmoothing = 0.8
	defaultMinDB     = -100
	defaultMaxDB     = -30
)

type analyserNode struct {
	*node

	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	ring   []float32
	pos    int
	window []float64
	prev   []float64
	re, im []float64
}

func newAnalyserNode(ctx *Context) *analyserNode {
	a := &analyserNode{
		smoothing: defaultSmoothing,
		minDB:     defaultMinDB,
		maxDB:     defaultMaxDB,
	}
	a.node = newNode(ctx, "analyser", true, a)
	a.node.tap = true
	a.resize(DefaultFFTSize)
	return a
}

func (a *analyserNode) resize(n int) {
	a.fftSize = n
	a.ring = make([]float32, n)
	a.pos = 0
	a.window = blackman(n)
	a.prev = make([]float64, n/2)
	a.re = make([]float64, n)
	a.im = make([]float64, n)
}

// FFTSize returns the analysis window length
func (a *analyserNode) FFTSize() int {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	return a.fftSize
}

// SetFFTSize changes the window length, discarding history
func (a *analyserNode) SetFFTSize(n int) error {
	if !isPowerOfTwo(n) || n < minFFTSize || n > maxFFTSize {
		return fmt.Errorf("fft size %d must be a power of two in [%d, %d]", n, minFFTSize, maxFFTSize)
	}
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	if n != a.fftSize {
		a.resize(n)
	}
	return nil
}

// FrequencyBinCount is half the FFT size
func (a *analyserNode) FrequencyBinCount() int {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	return a.fftSize / 2
}

// SetSmoothingTimeConstant sets the spectrum averaging factor in [0, 1]
func (a *analyserNode) SetSmoothingTimeConstant(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("smoothing time constant %v outside [0, 1]", v)
	}
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	a.smoothing = v
	return nil
}

func (a *analyserNode) process(in, out []float32, _ int64) {
	copy(out, in)

	ch := a.ctx.channels
	for f := 0; f < len(in)/ch; f++ {
		var sum float32
		for k := 0; k < ch; k++ {
			sum += in[f*ch+k]
		}
		a.ring[a.pos] = sum / float32(ch)
		a.pos = (a.pos + 1) % len(a.ring)
	}
}

// ByteFrequencyData fills dst with the smoothed spectrum scaled to 0-255
// between the analyser's min and max decibels
func (a *analyserNode) ByteFrequencyData(dst []byte) {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()

	a.computeSpectrum()

	scale := 255 / (a.maxDB - a.minDB)
	n := min(len(dst), len(a.prev))
	for k := 0; k < n; k++ {
		mag := a.prev[k]
		if mag <= 0 {
			dst[k] = 0
			continue
		}
		v := math.Floor(scale * (20*math.Log10(mag) - a.minDB))
		dst[k] = byte(clamp(v, 0, 255))
	}
}

// ByteTimeDomainData fills dst with the most recent samples, 128 being zero
func (a *analyserNode) ByteTimeDomainData(dst []byte) {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()

	n := min(len(dst), a.fftSize)
	for i := 0; i < n; i++ {
		v := a.ring[(a.pos+i)%a.fftSize]
		dst[i] = byte(clamp(math.Floor(128*(float64(v)+1)), 0, 255))
	}
}

func (a *analyserNode) computeSpectrum() {
	n := a.fftSize
	for i := 0; i < n; i++ {
		a.re[i] = float64(a.ring[(a.pos+i)%n]) * a.window[i]
		a.im[i] = 0
	}

	fft(a.re, a.im)

	for k := range a.prev {
		mag := math.Hypot(a.re[k], a.im[k]) / float64(n)
		a.prev[k] = a.smoothing*a.prev[k] + (1-a.smoothing)*mag
	}
}
