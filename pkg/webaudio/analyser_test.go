// ABOUTME: Tests for the analyser node and FFT
// ABOUTME: Verifies spectral peaks, silence and configuration limits
package webaudio

import (
	"math"
	"testing"
)

func TestFFTImpulseIsFlat(t *testing.T) {
	re := make([]float64, 16)
	im := make([]float64, 16)
	re[0] = 1

	fft(re, im)

	for k := range re {
		if !approx(math.Hypot(re[k], im[k]), 1, 1e-12) {
			t.Errorf("bin %d: expected magnitude 1, got %v", k, math.Hypot(re[k], im[k]))
		}
	}
}

func TestFFTSineLandsInBin(t *testing.T) {
	const n = 64
	re := make([]float64, n)
	im := make([]float64, n)
	for i := range re {
		re[i] = math.Cos(2 * math.Pi * 5 * float64(i) / n)
	}

	fft(re, im)

	if got := math.Hypot(re[5], im[5]); !approx(got, n/2, 1e-9) {
		t.Errorf("expected bin 5 magnitude %d, got %v", n/2, got)
	}
	if got := math.Hypot(re[6], im[6]); got > 1e-9 {
		t.Errorf("expected bin 6 empty, got %v", got)
	}
}

func TestAnalyserDefaults(t *testing.T) {
	ctx := newOfflineContext(t)
	a, _ := ctx.CreateAnalyser()

	if a.FFTSize() != 2048 {
		t.Errorf("expected fft size 2048, got %d", a.FFTSize())
	}
	if a.FrequencyBinCount() != 1024 {
		t.Errorf("expected 1024 bins, got %d", a.FrequencyBinCount())
	}
}

func TestAnalyserFFTSizeValidation(t *testing.T) {
	ctx := newOfflineContext(t)
	a, _ := ctx.CreateAnalyser()

	for _, n := range []int{0, 16, 1000, 65536} {
		if err := a.SetFFTSize(n); err == nil {
			t.Errorf("expected error for fft size %d", n)
		}
	}
	if err := a.SetFFTSize(512); err != nil {
		t.Fatalf("SetFFTSize(512) failed: %v", err)
	}
	if a.FrequencyBinCount() != 256 {
		t.Errorf("expected 256 bins, got %d", a.FrequencyBinCount())
	}
}

func TestAnalyserFindsTonePeak(t *testing.T) {
	ctx := newOfflineContext(t)

	// bin 64 at 48kHz with a 2048 window
	freq := 64 * float64(ctx.SampleRate()) / 2048
	chain, err := BuildChain(ctx, &toneElement{id: "tone", freq: freq, amp: 0.5})
	if err != nil {
		t.Fatalf("BuildChain failed: %v", err)
	}
	chain.Compressor.Ratio().SetValue(1)

	if _, err := ctx.Render(2048 / RenderQuantum); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	bins := make([]byte, chain.Analyser.FrequencyBinCount())
	chain.Analyser.ByteFrequencyData(bins)

	peak := 0
	for k, v := range bins {
		if v > bins[peak] {
			peak = k
		}
	}
	if peak != 64 {
		t.Errorf("expected peak at bin 64, got %d", peak)
	}
	if bins[peak] == 0 {
		t.Error("expected non-zero peak")
	}
}

func TestAnalyserSilence(t *testing.T) {
	ctx := newOfflineContext(t)
	chain, _ := BuildChain(ctx, &constElement{id: "silent"})
	ctx.Render(16)

	bins := make([]byte, 1024)
	chain.Analyser.ByteFrequencyData(bins)
	for k, v := range bins {
		if v != 0 {
			t.Fatalf("expected silence, bin %d = %d", k, v)
		}
	}

	wave := make([]byte, 32)
	chain.Analyser.ByteTimeDomainData(wave)
	for i, v := range wave {
		if v != 128 {
			t.Fatalf("expected midpoint 128, sample %d = %d", i, v)
		}
	}
}

func TestAnalyserRendersWithoutDownstreamPull(t *testing.T) {
	ctx := newOfflineContext(t)

	src, _ := ctx.CreateMediaElementSource(&toneElement{id: "tap", freq: 1000, amp: 0.5})
	a, _ := ctx.CreateAnalyser()
	if err := src.Connect(a); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	ctx.Render(16)

	wave := make([]byte, 64)
	a.ByteTimeDomainData(wave)
	moved := false
	for _, v := range wave {
		if v != 128 {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("analyser should capture input even when not connected to the destination")
	}
}

func TestAnalyserSmoothingValidation(t *testing.T) {
	ctx := newOfflineContext(t)
	a := newAnalyserNode(ctx)

	if err := a.SetSmoothingTimeConstant(1.5); err == nil {
		t.Error("expected error for smoothing above 1")
	}
	if err := a.SetSmoothingTimeConstant(0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
