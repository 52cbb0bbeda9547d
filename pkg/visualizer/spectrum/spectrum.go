// ABOUTME: Terminal spectrum renderer behind the visualizer contract
// ABOUTME: Draws analyser spectra into a text surface with preset styles and crossfades
package spectrum

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/analysis"
	"github.com/Resonate-Protocol/radiodeck/pkg/visualizer"
	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
)

// ErrDestroyed is returned when rendering after Destroy
var ErrDestroyed = errors.New("spectrum renderer destroyed")

var barRunes = []rune("▁▂▃▄▅▆▇█")

const peakFall = 0.01

// timeDomainSource is implemented by analysers that expose waveforms
type timeDomainSource interface {
	FFTSize() int
	ByteTimeDomainData(dst []byte)
}

// Renderer draws one frame per Render call
type Renderer struct {
	mu      sync.Mutex
	ctx     webaudio.AudioContext
	surface *visualizer.Surface
	now     func() time.Time

	source   analysis.Source
	upstream webaudio.AudioNode
	own      webaudio.Analyser
	analyzer analysis.Analyzer

	current    visualizer.Preset
	previous   *visualizer.Preset
	blendStart time.Time
	blend      time.Duration

	levels    []float64
	peaks     []float64
	wave      []byte
	intensity float64
	destroyed bool
}

// New creates a renderer drawing into surface
func New(ctx webaudio.AudioContext, surface *visualizer.Surface, opts visualizer.Options) (*Renderer, error) {
	if ctx == nil || surface == nil {
		return nil, errors.New("spectrum renderer needs an audio context and a surface")
	}
	if ctx.State() == webaudio.StateClosed {
		return nil, webaudio.ErrContextClosed
	}
	if opts.Width > 0 && opts.Height > 0 {
		surface.Resize(opts.Width, opts.Height)
	}
	return &Renderer{
		ctx:       ctx,
		surface:   surface,
		now:       time.Now,
		current:   visualizer.BuiltinPresets()[0],
		intensity: 1,
	}, nil
}

// Factory adapts New to visualizer.Factory
func Factory(ctx webaudio.AudioContext, surface *visualizer.Surface, opts visualizer.Options) (visualizer.Renderer, error) {
	return New(ctx, surface, opts)
}

// ConnectAudio taps node. Analysers are read directly; any other node gets
// a private analyser connected to it. nil detaches.
func (r *Renderer) ConnectAudio(node webaudio.AudioNode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detachLocked()
	if node == nil || r.destroyed {
		return
	}

	if src, ok := node.(analysis.Source); ok {
		r.source = src
		return
	}

	own, err := r.ctx.CreateAnalyser()
	if err != nil {
		return
	}
	if err := node.Connect(own); err != nil {
		return
	}
	r.own = own
	r.upstream = node
	r.source = own
}

func (r *Renderer) detachLocked() {
	if r.upstream != nil && r.own != nil {
		_ = r.upstream.DisconnectFrom(r.own)
	}
	r.upstream = nil
	r.own = nil
	r.source = nil
}

// LoadPreset switches preset, crossfading over blendSeconds
func (r *Renderer) LoadPreset(p visualizer.Preset, blendSeconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if blendSeconds > 0 {
		prev := r.current
		r.previous = &prev
		r.blendStart = r.now()
		r.blend = time.Duration(blendSeconds * float64(time.Second))
	} else {
		r.previous = nil
		r.blend = 0
	}
	r.current = p
}

// Preset returns the active preset name
func (r *Renderer) Preset() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Name
}

// Intensity returns the intensity computed by the last frame
func (r *Renderer) Intensity() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.intensity
}

// SetRendererSize resizes the surface
func (r *Renderer) SetRendererSize(width, height int) {
	r.surface.Resize(width, height)
}

// Destroy detaches audio and stops rendering
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detachLocked()
	r.destroyed = true
}

// Render draws one frame
func (r *Renderer) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return ErrDestroyed
	}

	w, h := r.surface.Size()
	if w == 0 || h == 0 {
		return nil
	}

	bins := r.analyzer.Frame(r.source)
	r.intensity = analysis.Intensity(bins)

	progress := r.blendProgress()
	from := r.current
	if r.previous != nil {
		from = *r.previous
	}
	gain := lerp(from.Gain, r.current.Gain, progress)
	decay := lerp(from.Decay, r.current.Decay, progress)

	r.updateLevels(bins, w, gain, decay)

	if r.needsWave(from) {
		r.readWave()
	}

	r.surface.Clear()
	for x := 0; x < w; x++ {
		p := r.current
		if progress < 1 && dissolve(x, w) >= progress {
			p = from
		}
		r.drawColumn(p, x, h)
	}
	return nil
}

func (r *Renderer) blendProgress() float64 {
	if r.previous == nil || r.blend <= 0 {
		return 1
	}
	t := float64(r.now().Sub(r.blendStart)) / float64(r.blend)
	if t >= 1 {
		r.previous = nil
		return 1
	}
	return smoothstep(t)
}

func (r *Renderer) updateLevels(bins []byte, w int, gain, decay float64) {
	if len(r.levels) != w {
		r.levels = make([]float64, w)
		r.peaks = make([]float64, w)
	}

	n := len(bins)
	for x := 0; x < w; x++ {
		target := 0.0
		if n > 0 {
			lo, hi := columnBins(x, w, n)
			sum := 0
			for _, v := range bins[lo:hi] {
				sum += int(v)
			}
			target = math.Min(1, float64(sum)/float64(hi-lo)/255*gain)
		}

		if target >= r.levels[x] {
			r.levels[x] = target
		} else {
			r.levels[x] = math.Max(target, r.levels[x]-decay)
		}

		if r.levels[x] >= r.peaks[x] {
			r.peaks[x] = r.levels[x]
		} else {
			r.peaks[x] = math.Max(0, r.peaks[x]-peakFall)
		}
	}
}

func (r *Renderer) needsWave(from visualizer.Preset) bool {
	return r.current.Style == visualizer.StyleWave || from.Style == visualizer.StyleWave
}

func (r *Renderer) readWave() {
	td, ok := r.source.(timeDomainSource)
	if !ok {
		r.wave = r.wave[:0]
		return
	}
	n := td.FFTSize()
	if cap(r.wave) < n {
		r.wave = make([]byte, n)
	}
	r.wave = r.wave[:n]
	td.ByteTimeDomainData(r.wave)
}

func (r *Renderer) drawColumn(p visualizer.Preset, x, h int) {
	level := r.levels[x]

	switch p.Style {
	case visualizer.StyleMirror:
		half := level * float64(h) / 2
		mid := float64(h) / 2
		for y := 0; y < h; y++ {
			if math.Abs(float64(y)+0.5-mid) < half {
				r.surface.Set(x, y, '█', r.color(p, math.Abs(float64(y)+0.5-mid)/mid))
			}
		}

	case visualizer.StyleWave:
		if len(r.wave) == 0 {
			return
		}
		w, _ := r.surface.Size()
		v := float64(r.wave[x*len(r.wave)/w]) / 255
		y := int(math.Round((1 - v) * float64(h-1)))
		r.surface.Set(x, y, '•', r.color(p, math.Abs(v-0.5)*2))

	case visualizer.StyleDots:
		if level <= 0 {
			return
		}
		y := h - 1 - int(level*float64(h-1))
		r.surface.Set(x, y, '*', r.color(p, level))

	default:
		height := level * float64(h)
		full := int(height)
		for i := 0; i < full && i < h; i++ {
			r.surface.Set(x, h-1-i, '█', r.color(p, float64(i)/float64(h)))
		}
		if frac := height - float64(full); full < h && frac > 0 {
			idx := int(frac * float64(len(barRunes)))
			if idx > 0 {
				r.surface.Set(x, h-1-full, barRunes[idx-1], r.color(p, float64(full)/float64(h)))
			}
		}
	}

	if p.Peaks && r.peaks[x] > 0 && p.Style != visualizer.StyleWave {
		y := h - 1 - int(r.peaks[x]*float64(h-1))
		if r.surface.At(x, y).Rune == ' ' {
			r.surface.Set(x, y, '▔', r.color(p, 1))
		}
	}
}

// color picks a palette entry for a position in [0, 1], pushed towards the
// hot end as intensity rises
func (r *Renderer) color(p visualizer.Preset, pos float64) string {
	if len(p.Palette) == 0 {
		return ""
	}
	pos = math.Min(1, pos*(0.5+r.intensity/2))
	idx := int(pos * float64(len(p.Palette)))
	if idx >= len(p.Palette) {
		idx = len(p.Palette) - 1
	}
	return p.Palette[idx]
}

// columnBins maps column x to a logarithmically spaced bin range
func columnBins(x, w, n int) (int, int) {
	edge := func(i int) int {
		return int(math.Pow(float64(n), float64(i)/float64(w))) - 1
	}
	lo := min(max(edge(x), 0), n-1)
	hi := min(max(edge(x+1), lo+1), n)
	return lo, hi
}

// dissolve gives each column a stable threshold in [0, 1)
func dissolve(x, w int) float64 {
	return float64((x*7919)%w) / float64(w)
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
