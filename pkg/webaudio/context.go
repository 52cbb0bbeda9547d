// ABOUTME: Audio context that owns the processing graph
// ABOUTME: Renders the graph in render quanta and streams the result to an output
package webaudio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio"
	"github.com/Resonate-Protocol/radiodeck/pkg/audio/output"
	"github.com/rs/zerolog"
)

const (
	// DefaultSampleRate is used when options leave the rate unset
	DefaultSampleRate = 48000

	// DefaultChannels is used when options leave the channel count unset
	DefaultChannels = 2

	// quanta rendered per output write
	quantaPerWrite = 8
)

// ContextOptions configures a Context
type ContextOptions struct {
	SampleRate int
	Channels   int
	Output     output.Output
	Logger     zerolog.Logger

	// Offline contexts never start a render goroutine; callers advance the
	// graph with Render.
	Offline bool
}

// Context is the engine implementation of AudioContext
type Context struct {
	// mu guards graph topology, parameters and the clock
	mu sync.Mutex

	sampleRate int
	channels   int
	out        output.Output
	offline    bool
	logger     zerolog.Logger

	state   State
	quantum int64
	frame   int64

	dest    *node
	sources map[string]*sourceNode
	taps    map[*node]struct{}

	stop chan struct{}
	done chan struct{}
}

// NewContext opens the output and returns a suspended context
func NewContext(opts ContextOptions) (*Context, error) {
	if opts.Output == nil {
		return nil, fmt.Errorf("audio context requires an output")
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = DefaultChannels
	}

	if err := opts.Output.Open(opts.SampleRate, opts.Channels, 16); err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	c := &Context{
		sampleRate: opts.SampleRate,
		channels:   opts.Channels,
		out:        opts.Output,
		offline:    opts.Offline,
		logger:     opts.Logger.With().Str("component", "audio-context").Logger(),
		state:      StateSuspended,
		sources:    make(map[string]*sourceNode),
		taps:       make(map[*node]struct{}),
	}
	c.dest = newNode(c, "destination", true, passthrough{})

	c.logger.Debug().
		Int("sample_rate", c.sampleRate).
		Int("channels", c.channels).
		Bool("offline", c.offline).
		Msg("audio context created")

	return c, nil
}

// State returns the context state
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SampleRate returns the graph sample rate
func (c *Context) SampleRate() int {
	return c.sampleRate
}

// Channels returns the graph channel count
func (c *Context) Channels() int {
	return c.channels
}

// CurrentTime returns seconds of audio rendered so far
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTimeLocked()
}

func (c *Context) currentTimeLocked() float64 {
	return float64(c.frame) / float64(c.sampleRate)
}

// Destination is the node that feeds the output
func (c *Context) Destination() AudioNode {
	return c.dest
}

// Resume starts rendering. Resuming a running context is a no-op.
func (c *Context) Resume(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrContextClosed
	case StateRunning:
		c.mu.Unlock()
		return nil
	}
	prevDone := c.done
	c.mu.Unlock()

	if s, ok := c.out.(output.Suspender); ok {
		if err := s.Resume(); err != nil {
			return fmt.Errorf("resume output: %w", err)
		}
	}

	// A render loop stopped by Suspend may still be finishing its last write
	if prevDone != nil {
		select {
		case <-prevDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrContextClosed
	}
	if c.state == StateRunning {
		return nil
	}
	c.state = StateRunning

	if c.offline {
		return nil
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.renderLoop(c.stop, c.done)

	c.logger.Debug().Msg("audio context running")
	return nil
}

// Suspend stops rendering without releasing the output
func (c *Context) Suspend() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	c.state = StateSuspended
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.mu.Unlock()

	if s, ok := c.out.(output.Suspender); ok {
		if err := s.Suspend(); err != nil {
			return fmt.Errorf("suspend output: %w", err)
		}
	}
	return nil
}

// Close stops rendering, detaches every source and releases the output.
// Closing twice is a no-op.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	done := c.done
	for id, s := range c.sources {
		s.disconnectLocked()
		delete(c.sources, id)
	}
	c.mu.Unlock()

	err := c.out.Close()

	if done != nil {
		select {
		case <-done:
		case <-time.After(time.Second):
			c.logger.Warn().Msg("render loop did not exit after close")
		}
	}

	c.logger.Debug().Msg("audio context closed")
	if err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

// Render advances the graph by the given number of quanta and returns the
// destination output. Intended for offline contexts.
func (c *Context) Render(quanta int) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil, ErrContextClosed
	}

	out := make([]float32, 0, quanta*RenderQuantum*c.channels)
	for i := 0; i < quanta; i++ {
		out = append(out, c.renderQuantumLocked()...)
	}
	return out, nil
}

func (c *Context) renderQuantumLocked() []float32 {
	q, start := c.quantum, c.frame
	out := c.dest.pull(q, start)

	// Analysers render even when nothing downstream pulls them
	for tap := range c.taps {
		if !tap.connected() {
			delete(c.taps, tap)
			continue
		}
		tap.pull(q, start)
	}

	c.quantum++
	c.frame += RenderQuantum
	return out
}

func (c *Context) renderLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	samples := make([]int32, quantaPerWrite*RenderQuantum*c.channels)
	failures := 0

	for {
		select {
		case <-stop:
			return
		default:
		}

		c.mu.Lock()
		if c.state != StateRunning {
			c.mu.Unlock()
			return
		}
		for i := 0; i < quantaPerWrite; i++ {
			buf := c.renderQuantumLocked()
			base := i * len(buf)
			for j, v := range buf {
				samples[base+j] = audio.SampleFromFloat32(v)
			}
		}
		c.mu.Unlock()

		if err := c.out.Write(samples); err != nil {
			select {
			case <-stop:
				return
			default:
			}
			failures++
			if failures == 1 || failures%100 == 0 {
				c.logger.Warn().Err(err).Int("failures", failures).Msg("output write failed")
			}
			time.Sleep(time.Duration(quantaPerWrite*RenderQuantum) * time.Second / time.Duration(c.sampleRate))
			continue
		}
		failures = 0
	}
}

// CreateMediaElementSource binds el to a new source node. Each element can
// be bound once per context.
func (c *Context) CreateMediaElementSource(el MediaElement) (MediaElementSource, error) {
	if el == nil {
		return nil, fmt.Errorf("media element is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil, ErrContextClosed
	}
	if _, ok := c.sources[el.ID()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceAlreadyBound, el.ID())
	}

	el.SetOutputFormat(c.sampleRate, c.channels)
	s := newSourceNode(c, el)
	c.sources[el.ID()] = s
	return s, nil
}

// BoundSource returns the source node already bound to el
func (c *Context) BoundSource(el MediaElement) (MediaElementSource, bool) {
	if el == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sources[el.ID()]
	if !ok {
		return nil, false
	}
	return s, true
}

// ReleaseMediaElementSource disconnects and forgets the binding for el so
// the element can be discarded
func (c *Context) ReleaseMediaElementSource(el MediaElement) {
	if el == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sources[el.ID()]; ok {
		s.disconnectLocked()
		delete(c.sources, el.ID())
	}
}

// CreateDynamicsCompressor creates a compressor with platform defaults
func (c *Context) CreateDynamicsCompressor() (Compressor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil, ErrContextClosed
	}
	return newCompressorNode(c), nil
}

// CreateAnalyser creates an analyser with platform defaults
func (c *Context) CreateAnalyser() (Analyser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil, ErrContextClosed
	}
	return newAnalyserNode(c), nil
}

// CreateGain creates a unity gain node
func (c *Context) CreateGain() (Gain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil, ErrContextClosed
	}
	return newGainNode(c), nil
}
