// ABOUTME: Tests for the terminal spectrum renderer
// ABOUTME: Renders real graph output into a surface and checks taps, styles and blends
package spectrum

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio/output"
	"github.com/Resonate-Protocol/radiodeck/pkg/visualizer"
	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
	"github.com/rs/zerolog"
)

type noiseElement struct {
	id    string
	state uint32
	amp   float32
}

func (e *noiseElement) ID() string               { return e.id }
func (e *noiseElement) SetOutputFormat(_, _ int) {}

func (e *noiseElement) ReadPCM(dst []float32) int {
	for i := range dst {
		e.state = e.state*1664525 + 1013904223
		dst[i] = e.amp * (float32(e.state>>8)/float32(1<<24)*2 - 1)
	}
	return len(dst)
}

func newGraph(t *testing.T, amp float32) (*webaudio.Context, *webaudio.Chain) {
	t.Helper()
	ctx, err := webaudio.NewContext(webaudio.ContextOptions{
		Output:  output.NewDiscard(false),
		Logger:  zerolog.Nop(),
		Offline: true,
	})
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })

	chain, err := webaudio.BuildChain(ctx, &noiseElement{id: "noise", state: 1, amp: amp})
	if err != nil {
		t.Fatalf("BuildChain failed: %v", err)
	}
	chain.Compressor.Ratio().SetValue(1)
	return ctx, chain
}

func drawn(s *visualizer.Surface) int {
	return len(strings.ReplaceAll(strings.ReplaceAll(s.Plain(), " ", ""), "\n", ""))
}

func TestNewRequiresContextAndSurface(t *testing.T) {
	ctx, _ := newGraph(t, 0)

	if _, err := New(nil, visualizer.NewSurface(4, 4), visualizer.Options{}); err == nil {
		t.Error("expected error without context")
	}
	if _, err := New(ctx, nil, visualizer.Options{}); err == nil {
		t.Error("expected error without surface")
	}

	ctx.Close()
	if _, err := New(ctx, visualizer.NewSurface(4, 4), visualizer.Options{}); !errors.Is(err, webaudio.ErrContextClosed) {
		t.Errorf("expected ErrContextClosed, got %v", err)
	}
}

func TestNewResizesSurface(t *testing.T) {
	ctx, _ := newGraph(t, 0)
	s := visualizer.NewSurface(1, 1)

	if _, err := New(ctx, s, visualizer.Options{Width: 40, Height: 10}); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if w, h := s.Size(); w != 40 || h != 10 {
		t.Errorf("expected 40x10, got %dx%d", w, h)
	}
}

func TestRenderDrawsAudio(t *testing.T) {
	ctx, chain := newGraph(t, 0.8)
	s := visualizer.NewSurface(32, 8)
	r, _ := New(ctx, s, visualizer.Options{})

	r.ConnectAudio(chain.Analyser)
	ctx.Render(16)

	if err := r.Render(); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if drawn(s) == 0 {
		t.Error("expected bars for a noisy signal")
	}
	if r.Intensity() <= 1 {
		t.Errorf("expected intensity above 1, got %v", r.Intensity())
	}
}

func TestRenderSilence(t *testing.T) {
	ctx, chain := newGraph(t, 0)
	s := visualizer.NewSurface(16, 4)
	r, _ := New(ctx, s, visualizer.Options{})

	r.ConnectAudio(chain.Analyser)
	ctx.Render(16)
	r.Render()

	if n := drawn(s); n != 0 {
		t.Errorf("expected empty surface for silence, got %d cells", n)
	}
	if r.Intensity() != 1 {
		t.Errorf("expected neutral intensity, got %v", r.Intensity())
	}
}

func TestConnectAudioPrivateTap(t *testing.T) {
	ctx, chain := newGraph(t, 0.8)
	s := visualizer.NewSurface(32, 8)
	r, _ := New(ctx, s, visualizer.Options{})

	r.LoadPreset(visualizer.Preset{Name: "plain", Style: visualizer.StyleBars, Palette: []string{"#ffffff"}, Gain: 1, Decay: 0.2}, 0)

	// a gain node is not an analyser, so the renderer adds its own
	r.ConnectAudio(chain.Gain)
	ctx.Render(16)
	r.Render()
	if drawn(s) == 0 {
		t.Fatal("expected private tap to capture audio")
	}

	r.ConnectAudio(nil)
	for i := 0; i < 20; i++ {
		r.Render()
	}
	if n := drawn(s); n != 0 {
		t.Errorf("expected bars to decay after detach, got %d cells", n)
	}

	// audio still reaches the destination after the tap is removed
	buf, _ := ctx.Render(1)
	silent := true
	for _, v := range buf {
		if v != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Error("detaching the tap must not disconnect the chain")
	}
}

func TestStyles(t *testing.T) {
	for _, style := range []string{visualizer.StyleBars, visualizer.StyleMirror, visualizer.StyleWave, visualizer.StyleDots} {
		t.Run(style, func(t *testing.T) {
			ctx, chain := newGraph(t, 0.8)
			s := visualizer.NewSurface(24, 6)
			r, _ := New(ctx, s, visualizer.Options{})
			r.ConnectAudio(chain.Analyser)
			r.LoadPreset(visualizer.Preset{Name: style, Style: style, Palette: []string{"#111111", "#eeeeee"}, Gain: 2, Decay: 0.1, Peaks: true}, 0)

			ctx.Render(16)
			if err := r.Render(); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if drawn(s) == 0 {
				t.Errorf("style %s drew nothing", style)
			}
		})
	}
}

func TestLoadPresetBlend(t *testing.T) {
	ctx, _ := newGraph(t, 0)
	r, _ := New(ctx, visualizer.NewSurface(8, 4), visualizer.Options{})

	now := time.Unix(0, 0)
	r.now = func() time.Time { return now }

	a := visualizer.Preset{Name: "a", Gain: 1, Decay: 0.1}
	b := visualizer.Preset{Name: "b", Gain: 3, Decay: 0.3}

	r.LoadPreset(a, 0)
	r.LoadPreset(b, 2)
	if r.Preset() != "b" {
		t.Fatalf("expected b active, got %s", r.Preset())
	}

	r.mu.Lock()
	if p := r.blendProgress(); p != 0 {
		t.Errorf("expected blend start at 0, got %v", p)
	}
	now = now.Add(time.Second)
	if p := r.blendProgress(); math.Abs(p-0.5) > 1e-9 {
		t.Errorf("expected smoothstep midpoint 0.5, got %v", p)
	}
	now = now.Add(2 * time.Second)
	if p := r.blendProgress(); p != 1 || r.previous != nil {
		t.Errorf("expected blend finished, got %v", p)
	}
	r.mu.Unlock()
}

func TestDestroy(t *testing.T) {
	ctx, chain := newGraph(t, 0.5)
	r, _ := New(ctx, visualizer.NewSurface(8, 4), visualizer.Options{})
	r.ConnectAudio(chain.Gain)

	r.Destroy()
	if err := r.Render(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("expected ErrDestroyed, got %v", err)
	}

	r.ConnectAudio(chain.Gain)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.source != nil {
		t.Error("destroyed renderer should not reconnect")
	}
}

func TestThroughVisualizerBridge(t *testing.T) {
	ctx, chain := newGraph(t, 0.8)
	s := visualizer.NewSurface(16, 4)

	v, err := visualizer.Create(Factory, ctx, s, visualizer.Options{Width: 16, Height: 4}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	v.ConnectAudio(chain.Analyser)
	v.LoadPreset(visualizer.DefaultLibrary().At(1), visualizer.InitialBlend)

	ctx.Render(16)
	if !v.RenderFrame() {
		t.Fatal("expected frame rendered")
	}

	v.Destroy()
	if v.RenderFrame() {
		t.Error("destroyed visualizer should not render")
	}
}

func TestColumnBins(t *testing.T) {
	n, w := 1024, 32
	prevHi := 0
	for x := 0; x < w; x++ {
		lo, hi := columnBins(x, w, n)
		if lo < 0 || hi > n || hi <= lo {
			t.Fatalf("column %d: bad range [%d, %d)", x, lo, hi)
		}
		if hi < prevHi {
			t.Fatalf("column %d: ranges must not go backwards", x)
		}
		prevHi = hi
	}
	if _, hi := columnBins(w-1, w, n); hi != n-1 && hi != n {
		t.Errorf("last column should reach the top bins, got %d", hi)
	}
}
