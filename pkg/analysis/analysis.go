// ABOUTME: Frequency analysis helpers driving visual reactivity
// ABOUTME: Turns analyser byte spectra into an intensity multiplier and band levels
package analysis

// Source is anything that can produce a byte frequency frame
type Source interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []byte)
}

// Bands holds normalised average levels in [0, 1]
type Bands struct {
	Bass   float64
	Mid    float64
	Treble float64
}

// Band edges as fractions of the bin range
const (
	bassEdge = 0.1
	midEdge  = 0.5
)

// Analyzer samples one Source, reusing its frame buffer between calls
type Analyzer struct {
	buf []byte
}

// Sample reads one frame from src and returns its intensity.
// A nil source yields the neutral intensity 1.
func (a *Analyzer) Sample(src Source) float64 {
	bins := a.read(src)
	return Intensity(bins)
}

// SampleBands reads one frame and returns both the intensity and band levels
func (a *Analyzer) SampleBands(src Source) (float64, Bands) {
	bins := a.read(src)
	return Intensity(bins), SplitBands(bins)
}

// Frame reads one frame and returns the raw bins. The slice is reused by
// the next call.
func (a *Analyzer) Frame(src Source) []byte {
	return a.read(src)
}

func (a *Analyzer) read(src Source) []byte {
	if src == nil {
		return nil
	}
	n := src.FrequencyBinCount()
	if n <= 0 {
		return nil
	}
	if cap(a.buf) < n {
		a.buf = make([]byte, n)
	}
	a.buf = a.buf[:n]
	src.ByteFrequencyData(a.buf)
	return a.buf
}

// Intensity returns 1 + average/128 over bins, so the result lies in
// [1, 1+255/128]. An empty frame yields 1.
func Intensity(bins []byte) float64 {
	if len(bins) == 0 {
		return 1
	}
	sum := 0
	for _, v := range bins {
		sum += int(v)
	}
	avg := float64(sum) / float64(len(bins))
	return 1 + avg/128
}

// SplitBands averages the low, middle and high parts of the spectrum
func SplitBands(bins []byte) Bands {
	n := len(bins)
	if n == 0 {
		return Bands{}
	}
	bassEnd := max(1, int(float64(n)*bassEdge))
	midEnd := max(bassEnd, int(float64(n)*midEdge))
	return Bands{
		Bass:   average(bins[:bassEnd]),
		Mid:    average(bins[bassEnd:midEnd]),
		Treble: average(bins[midEnd:]),
	}
}

func average(bins []byte) float64 {
	if len(bins) == 0 {
		return 0
	}
	sum := 0
	for _, v := range bins {
		sum += int(v)
	}
	return float64(sum) / float64(len(bins)) / 255
}
