// ABOUTME: Failure-tolerant wrapper around the visualizer renderer
// ABOUTME: Every operation is a no-op on a missing visualizer; render failures degrade to static
package visualizer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
	"github.com/rs/zerolog"
)

// ErrVisualizerUnavailable is returned when a visualizer cannot be created
var ErrVisualizerUnavailable = errors.New("visualizer unavailable")

// Options sizes a new visualizer
type Options struct {
	Width        int
	Height       int
	PixelRatio   float64
	TextureRatio float64
}

// Renderer is the underlying visualizer implementation
type Renderer interface {
	// ConnectAudio taps node; nil detaches
	ConnectAudio(node webaudio.AudioNode)

	// LoadPreset switches preset, crossfading over blendSeconds
	LoadPreset(p Preset, blendSeconds float64)

	// Render draws one frame
	Render() error

	SetRendererSize(width, height int)
	Destroy()
}

// Factory creates a renderer drawing into surface
type Factory func(ctx webaudio.AudioContext, surface *Surface, opts Options) (Renderer, error)

// Visualizer guards a Renderer. A nil *Visualizer is valid and inert.
type Visualizer struct {
	mu        sync.Mutex
	r         Renderer
	logger    zerolog.Logger
	static    bool
	destroyed bool
	connected bool
}

// Create builds a visualizer. Any factory failure, including a panic, is
// reported as ErrVisualizerUnavailable.
func Create(factory Factory, ctx webaudio.AudioContext, surface *Surface, opts Options, logger zerolog.Logger) (v *Visualizer, err error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: no renderer", ErrVisualizerUnavailable)
	}
	if ctx == nil || surface == nil {
		return nil, fmt.Errorf("%w: missing audio context or surface", ErrVisualizerUnavailable)
	}

	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrVisualizerUnavailable, r)
		}
	}()

	if opts.PixelRatio <= 0 {
		opts.PixelRatio = 1
	}
	if opts.TextureRatio <= 0 {
		opts.TextureRatio = 1
	}

	r, err := factory(ctx, surface, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVisualizerUnavailable, err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: renderer is nil", ErrVisualizerUnavailable)
	}

	return &Visualizer{
		r:      r,
		logger: logger.With().Str("component", "visualizer").Logger(),
	}, nil
}

// ConnectAudio rebinds the audio tap; nil detaches
func (v *Visualizer) ConnectAudio(node webaudio.AudioNode) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.guard("connect audio", func() { v.r.ConnectAudio(node) })
	v.connected = node != nil
}

// Connected reports whether an audio tap is bound
func (v *Visualizer) Connected() bool {
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connected
}

// LoadPreset switches preset; blendSeconds 0 is an instant cut
func (v *Visualizer) LoadPreset(p Preset, blendSeconds float64) {
	if v == nil {
		return
	}
	if blendSeconds < 0 {
		blendSeconds = 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.guard("load preset", func() { v.r.LoadPreset(p, blendSeconds) })
}

// RenderFrame draws one frame. It returns false when nothing was drawn;
// after a render failure the visualizer stays static.
func (v *Visualizer) RenderFrame() bool {
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed || v.static {
		return false
	}

	var renderErr error
	if !v.guard("render", func() { renderErr = v.r.Render() }) {
		v.static = true
		return false
	}
	if renderErr != nil {
		v.logger.Warn().Err(renderErr).Msg("render failed, switching to static display")
		v.static = true
		return false
	}
	return true
}

// Static reports whether rendering has been abandoned
func (v *Visualizer) Static() bool {
	if v == nil {
		return true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.static
}

// Resize changes the renderer size
func (v *Visualizer) Resize(width, height int) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.guard("resize", func() { v.r.SetRendererSize(width, height) })
}

// Destroy releases the renderer. Destroying twice is a no-op.
func (v *Visualizer) Destroy() {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.destroyed = true
	v.connected = false
	v.guard("destroy", func() { v.r.Destroy() })
}

// guard runs fn, converting a panic into a logged failure
func (v *Visualizer) guard(op string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn().Str("op", op).Interface("panic", r).Msg("visualizer operation failed")
			ok = false
		}
	}()
	fn()
	return true
}
