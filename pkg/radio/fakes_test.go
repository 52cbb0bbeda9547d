// ABOUTME: Test doubles for the session manager
// ABOUTME: A media element with controllable play latency and a counting metrics sink
package radio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/audio/output"
	"github.com/Resonate-Protocol/radiodeck/pkg/media"
	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
	"github.com/rs/zerolog"
)

type fakeListener struct {
	typ media.EventType
	fn  media.Listener
}

// fakeElement plays a constant signal once Play has waited out delay
type fakeElement struct {
	id      string
	value   float32
	delay   time.Duration
	playErr error

	started     chan struct{}
	startedOnce sync.Once

	mu        sync.Mutex
	src       string
	paused    bool
	gen       int
	volume    float64
	listeners map[media.ListenerID]fakeListener
	nextID    media.ListenerID
	direct    output.Output
	closed    bool
}

func newFakeElement(id string, value float32, delay time.Duration) *fakeElement {
	return &fakeElement{
		id:        id,
		value:     value,
		delay:     delay,
		started:   make(chan struct{}),
		paused:    true,
		volume:    1,
		listeners: make(map[media.ListenerID]fakeListener),
	}
}

func (e *fakeElement) ID() string               { return e.id }
func (e *fakeElement) SetOutputFormat(_, _ int) {}

func (e *fakeElement) ReadPCM(dst []float32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return 0
	}
	for i := range dst {
		dst[i] = e.value
	}
	return len(dst)
}

func (e *fakeElement) SetSrc(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.src = url
}

func (e *fakeElement) Src() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

func (e *fakeElement) Load() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.paused = true
}

func (e *fakeElement) Play(ctx context.Context) error {
	e.mu.Lock()
	if e.src == "" {
		e.mu.Unlock()
		return media.ErrNoSource
	}
	gen := e.gen
	e.mu.Unlock()

	e.startedOnce.Do(func() { close(e.started) })

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if e.playErr != nil {
		return e.playErr
	}

	e.mu.Lock()
	if e.gen != gen || e.src == "" {
		e.mu.Unlock()
		return media.ErrAborted
	}
	wasPaused := e.paused
	e.paused = false
	e.mu.Unlock()

	if wasPaused {
		e.emit(media.Event{Type: media.EventPlay})
	}
	return nil
}

func (e *fakeElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

func (e *fakeElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *fakeElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
}

func (e *fakeElement) AddEventListener(typ media.EventType, fn media.Listener) media.ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.listeners[e.nextID] = fakeListener{typ: typ, fn: fn}
	return e.nextID
}

func (e *fakeElement) RemoveEventListener(id media.ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, id)
}

func (e *fakeElement) ListenerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

func (e *fakeElement) AttachOutput(out output.Output) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.direct = out
	return nil
}

func (e *fakeElement) DetachOutput() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.direct = nil
}

func (e *fakeElement) HasDirectOutput() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.direct != nil
}

func (e *fakeElement) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeElement) emit(ev media.Event) {
	e.mu.Lock()
	var fns []media.Listener
	for _, l := range e.listeners {
		if l.typ == ev.Type {
			fns = append(fns, l.fn)
		}
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (e *fakeElement) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-e.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("element %s never started playing", e.id)
	}
}

type countingMetrics struct {
	mu                sync.Mutex
	started           int
	committed         int
	stale             int
	failed            map[string]int
	disconnectFailure int
	active            bool
}

func (c *countingMetrics) SessionStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *countingMetrics) SessionCommitted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed++
}

func (c *countingMetrics) SessionStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale++
}

func (c *countingMetrics) SessionFailed(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed == nil {
		c.failed = make(map[string]int)
	}
	c.failed[reason]++
}

func (c *countingMetrics) DisconnectFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectFailure++
}

func (c *countingMetrics) SetActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = active
}

// harness wires a manager to offline audio contexts
type harness struct {
	t       *testing.T
	mgr     *Manager
	metrics *countingMetrics

	mu       sync.Mutex
	contexts []*webaudio.Context
	states   []Status
	errs     []error
}

func newHarness(t *testing.T, configure func(*Config)) *harness {
	t.Helper()
	h := &harness{t: t, metrics: &countingMetrics{}}

	cfg := Config{
		NewContext: func() (webaudio.AudioContext, error) {
			ctx, err := webaudio.NewContext(webaudio.ContextOptions{
				Output:  output.NewDiscard(false),
				Logger:  zerolog.Nop(),
				Offline: true,
			})
			if err != nil {
				return nil, err
			}
			h.mu.Lock()
			h.contexts = append(h.contexts, ctx)
			h.mu.Unlock()
			return ctx, nil
		},
		Volume:  100,
		Logger:  zerolog.Nop(),
		Metrics: h.metrics,
		OnStateChange: func(st Status) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.states = append(h.states, st)
		},
		OnError: func(err error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.errs = append(h.errs, err)
		},
	}
	if configure != nil {
		configure(&cfg)
	}

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	h.mgr = mgr
	t.Cleanup(func() { mgr.ShutdownApplication() })
	return h
}

func (h *harness) context() *webaudio.Context {
	h.t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.contexts) == 0 {
		h.t.Fatal("no audio context created")
	}
	return h.contexts[len(h.contexts)-1]
}

// render returns the last sample of a few rendered quanta
func (h *harness) render() float32 {
	h.t.Helper()
	out, err := h.context().Render(4)
	if err != nil {
		h.t.Fatalf("Render failed: %v", err)
	}
	return out[len(out)-1]
}

func (h *harness) errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

func station(name string) Station {
	return Station{Name: name, URL: "http://radio.test/" + name}
}
