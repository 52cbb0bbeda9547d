// ABOUTME: Audio session manager driving one stream through the processing chain
// ABOUTME: Serializes start/stop requests with a session counter so only the newest request commits
package radio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/analysis"
	"github.com/Resonate-Protocol/radiodeck/pkg/audio/output"
	"github.com/Resonate-Protocol/radiodeck/pkg/dynamics"
	"github.com/Resonate-Protocol/radiodeck/pkg/media"
	"github.com/Resonate-Protocol/radiodeck/pkg/visualizer"
	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
	"github.com/rs/zerolog"
)

const (
	// DefaultPlayTimeout bounds how long Start waits for the first audio
	DefaultPlayTimeout = 20 * time.Second

	// DefaultVolume is the initial output volume in percent
	DefaultVolume = 80
)

// VisualizerConfig configures the optional visualizer
type VisualizerConfig struct {
	Factory visualizer.Factory
	Surface *visualizer.Surface
	Options visualizer.Options

	// Library defaults to the built-in presets
	Library *visualizer.Library
	Cycler  visualizer.CyclerOptions

	// Initial names the first preset; the first library entry when empty
	Initial string
}

// Config holds manager configuration
type Config struct {
	// NewContext creates the shared audio context
	NewContext ContextFactory

	// NewElement creates an element when StartOptions.Element is nil
	NewElement func() Element

	// FallbackOutput plays the element directly when no context can be created
	FallbackOutput func() output.Output

	Presets       *dynamics.Store
	DefaultPreset string

	Visualizer VisualizerConfig

	PlayTimeout time.Duration
	Volume      int

	Logger  zerolog.Logger
	Metrics Metrics

	OnStateChange func(Status)
	OnError       func(error)

	// Now is the clock used for visualizer cycling
	Now func() time.Time
}

// session is one accepted start request and everything it allocated
type session struct {
	id      uint64
	station Station
	state   State

	element     Element
	ownsElement bool

	chain     *webaudio.Chain
	direct    bool
	listeners []media.ListenerID

	preset   string
	released bool
}

// Manager owns the shared audio context and at most one active session
type Manager struct {
	cfg     Config
	logger  zerolog.Logger
	metrics Metrics

	mu       sync.Mutex
	counter  uint64
	current  *session
	contexts contextProvider
	preset   string
	volume   int
	pending  []func()

	analyzer analysis.Analyzer

	vis        atomic.Pointer[visualizer.Visualizer]
	visSession uint64
	cycler     *visualizer.Cycler
	cycling    bool
}

// NewManager creates a manager; no audio context is created until the first Start
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Presets == nil {
		store, err := dynamics.NewStore()
		if err != nil {
			return nil, err
		}
		cfg.Presets = store
	}
	if cfg.DefaultPreset == "" {
		cfg.DefaultPreset = dynamics.Medium
	}
	if _, err := cfg.Presets.Get(cfg.DefaultPreset); err != nil {
		return nil, fmt.Errorf("default preset: %w", err)
	}
	if cfg.PlayTimeout <= 0 {
		cfg.PlayTimeout = DefaultPlayTimeout
	}
	if cfg.Volume <= 0 || cfg.Volume > 100 {
		cfg.Volume = DefaultVolume
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewElement == nil {
		logger := cfg.Logger
		cfg.NewElement = func() Element {
			return media.New(media.Options{Logger: logger})
		}
	}
	if cfg.Visualizer.Library == nil {
		cfg.Visualizer.Library = visualizer.DefaultLibrary()
	}

	m := &Manager{
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("component", "radio").Logger(),
		metrics:  cfg.Metrics,
		contexts: contextProvider{factory: cfg.NewContext},
		preset:   cfg.DefaultPreset,
		volume:   cfg.Volume,
	}
	m.cycler = visualizer.NewCycler(cfg.Visualizer.Library, m.loadVisualPreset, cfg.Visualizer.Cycler)
	return m, nil
}

// Start plays opts.Station, superseding any previous session. It returns
// true when this request committed; a request overtaken by a newer one
// returns false with no error.
func (m *Manager) Start(ctx context.Context, opts StartOptions) (bool, error) {
	if opts.Station.URL == "" {
		return false, ErrNoStation
	}

	m.mu.Lock()
	m.counter++
	id := m.counter
	m.metrics.SessionStarted()

	prev := m.current
	s := &session{
		id:      id,
		station: opts.Station,
		state:   StateStarting,
		element: opts.Element,
		preset:  m.preset,
	}
	if opts.CompressorPreset != "" {
		if _, err := m.cfg.Presets.Get(opts.CompressorPreset); err != nil {
			m.logger.Warn().Err(err).Str("preset", m.preset).Msg("Unknown compressor preset, using current")
		} else {
			s.preset = opts.CompressorPreset
		}
	}
	if s.element == nil {
		s.element = m.cfg.NewElement()
		s.ownsElement = true
	}
	m.current = s

	// The previous session is fully released before the new chain exists
	if prev != nil && !prev.released {
		prev.state = StateStopping
		m.teardownLocked(prev)
		prev.state = StateStopped
		m.logger.Info().Uint64("session", prev.id).Msg("Session replaced")
		m.notifySessionLocked(prev)
	}

	logger := m.logger.With().Uint64("session", id).Str("station", opts.Station.Name).Logger()
	logger.Info().Str("url", opts.Station.URL).Msg("Starting session")
	m.notifyStateLocked()

	el := s.element
	if el.Src() != opts.Station.URL {
		el.SetSrc(opts.Station.URL)
		el.Load()
	}

	audioCtx, err := m.contexts.acquire()
	if err != nil {
		if m.cfg.FallbackOutput == nil {
			err = fmt.Errorf("%w: %w", ErrAudioUnavailable, err)
			m.failLocked(s, "context", err)
			m.unlockAndNotify()
			return false, err
		}
		logger.Warn().Err(err).Msg("Audio processing unavailable, playing directly")
		if err := el.AttachOutput(m.cfg.FallbackOutput()); err != nil {
			err = fmt.Errorf("%w: direct output: %w", ErrAudioUnavailable, err)
			m.failLocked(s, "context", err)
			m.unlockAndNotify()
			return false, err
		}
		s.direct = true
		el.SetVolume(float64(m.volume) / 100)
	} else {
		chain, err := webaudio.BuildChain(audioCtx, el)
		if err != nil {
			err = fmt.Errorf("build audio chain: %w", err)
			m.failLocked(s, "chain", err)
			m.unlockAndNotify()
			return false, err
		}
		s.chain = chain
		if chain.ReusedSource {
			logger.Debug().Msg("Element already bound, reusing its source node")
		}
		if err := m.cfg.Presets.Apply(chain.Compressor, s.preset); err != nil {
			logger.Warn().Err(err).Msg("Failed to apply compressor preset")
		}
		chain.Gain.Gain().SetValue(float64(m.volume) / 100)

		if opts.Visualize {
			m.bindVisualizerLocked(s, audioCtx)
		}
	}

	s.listeners = append(s.listeners,
		el.AddEventListener(media.EventError, func(ev media.Event) { m.handleError(id, ev.Err) }),
		el.AddEventListener(media.EventEnded, func(media.Event) { m.handleEnded(id) }),
		el.AddEventListener(media.EventPlay, func(media.Event) { m.handlePlay(id) }),
	)
	m.unlockAndNotify()

	if audioCtx != nil {
		if err := audioCtx.Resume(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to resume audio context")
		}
		if m.stale(id) {
			return m.abandon(s)
		}
	}

	playCtx, cancel := context.WithTimeout(ctx, m.cfg.PlayTimeout)
	err = el.Play(playCtx)
	cancel()

	m.mu.Lock()
	if id != m.counter {
		m.mu.Unlock()
		return m.abandon(s)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrPlaybackRejected, err)
		logger.Error().Err(err).Msg("Playback failed")
		m.failLocked(s, "play", err)
		m.unlockAndNotify()
		return false, err
	}

	s.state = StatePlaying
	m.metrics.SessionCommitted()
	m.metrics.SetActive(true)
	logger.Info().Bool("processed", s.chain != nil).Str("preset", s.preset).Msg("Session playing")
	m.notifyStateLocked()
	m.unlockAndNotify()
	return true, nil
}

// Stop tears down the current session. Without force, a session that is
// already stopped or failed is left alone.
func (m *Manager) Stop(force bool) {
	m.mu.Lock()
	s := m.current
	if s == nil || (!force && s.released) {
		m.mu.Unlock()
		return
	}

	m.counter++
	s.state = StateStopping
	m.teardownLocked(s)
	s.state = StateStopped
	m.metrics.SetActive(false)
	m.logger.Info().Uint64("session", s.id).Msg("Session stopped")
	m.notifyStateLocked()
	m.unlockAndNotify()
}

// ShutdownApplication stops playback, destroys the visualizer and closes
// the shared audio context. A later Start creates a new context.
func (m *Manager) ShutdownApplication() error {
	m.Stop(true)

	m.mu.Lock()
	defer m.mu.Unlock()

	if v := m.vis.Swap(nil); v != nil {
		v.Destroy()
	}
	m.visSession = 0
	m.cycling = false

	if err := m.contexts.close(); err != nil {
		return fmt.Errorf("close audio context: %w", err)
	}
	m.logger.Info().Msg("Audio shut down")
	return nil
}

// SwitchPreset applies a compressor preset immediately. The preset also
// becomes the default for later sessions.
func (m *Manager) SwitchPreset(name string) error {
	return m.switchPreset(name, 0)
}

// SwitchPresetSmooth ramps the compressor to a preset over d
func (m *Manager) SwitchPresetSmooth(name string, d time.Duration) error {
	return m.switchPreset(name, d)
}

func (m *Manager) switchPreset(name string, d time.Duration) error {
	p, err := m.cfg.Presets.Get(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.unlockAndNotify()

	m.preset = p.Name
	s := m.current
	if s == nil || s.released {
		return nil
	}
	s.preset = p.Name
	if s.chain != nil {
		var clock dynamics.Clock
		if ctx := m.contexts.current(); ctx != nil {
			clock = ctx
		}
		if err := m.cfg.Presets.ApplySmooth(clock, s.chain.Compressor, p.Name, d); err != nil {
			return err
		}
	}
	m.logger.Info().Str("preset", p.Name).Dur("ramp", d).Msg("Compressor preset switched")
	m.notifyStateLocked()
	return nil
}

// Compressor returns the live compressor settings of the current session
func (m *Manager) Compressor() (dynamics.Preset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.current
	if s == nil || s.chain == nil {
		return dynamics.Preset{}, false
	}
	p := dynamics.Read(s.chain.Compressor)
	p.Name = s.preset
	return p, true
}

// SetVolume sets the output volume in percent
func (m *Manager) SetVolume(percent int) {
	percent = max(0, min(100, percent))

	m.mu.Lock()
	defer m.unlockAndNotify()

	m.volume = percent
	if s := m.current; s != nil && !s.released {
		if s.chain != nil {
			s.chain.Gain.Gain().SetValue(float64(percent) / 100)
		}
		if s.direct {
			s.element.SetVolume(float64(percent) / 100)
		}
	}
	m.notifyStateLocked()
}

// Intensity returns the current loudness driver, 1 when nothing is playing
func (m *Manager) Intensity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.analyzer.Sample(m.analyserLocked())
}

// Bands returns the current intensity with bass, mid and treble levels
func (m *Manager) Bands() (float64, analysis.Bands) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.analyzer.SampleBands(m.analyserLocked())
}

func (m *Manager) analyserLocked() analysis.Source {
	s := m.current
	if s == nil || s.released || s.chain == nil {
		return nil
	}
	return s.chain.Analyser
}

// Status returns a snapshot of the current session
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	st := Status{
		State:            StateIdle,
		CompressorPreset: m.preset,
		Volume:           m.volume,
	}
	if v := m.vis.Load(); v != nil {
		st.VisualizerActive = v.Connected() && !v.Static()
		st.VisualizerPreset = m.cycler.Current()
	}
	return m.sessionStatusLocked(st, m.current)
}

func (m *Manager) sessionStatusLocked(st Status, s *session) Status {
	if s == nil {
		return st
	}
	st.SessionID = s.id
	st.State = s.state
	st.Station = s.station
	st.Playing = s.state == StatePlaying
	st.Processed = s.chain != nil
	st.CompressorPreset = s.preset
	return st
}

// ContextsCreated reports how many audio contexts this manager has created
func (m *Manager) ContextsCreated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contexts.created
}

// stale reports whether a newer request has superseded session id
func (m *Manager) stale(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return id != m.counter
}

// abandon releases what a superseded attempt allocated
func (m *Manager) abandon(s *session) (bool, error) {
	m.mu.Lock()
	m.teardownLocked(s)
	m.metrics.SessionStale()
	m.logger.Debug().Uint64("session", s.id).Msg("Session superseded")
	m.mu.Unlock()
	return false, nil
}

// teardownLocked releases everything s allocated. It is idempotent. An
// element shared with the current session is left playing.
func (m *Manager) teardownLocked(s *session) {
	if s == nil || s.released {
		return
	}
	s.released = true

	for _, id := range s.listeners {
		s.element.RemoveEventListener(id)
	}
	s.listeners = nil

	if m.visSession == s.id {
		m.vis.Load().ConnectAudio(nil)
		m.visSession = 0
	}

	if s.chain != nil {
		for _, err := range s.chain.Disconnect() {
			m.metrics.DisconnectFailed()
			m.logger.Warn().Err(err).Uint64("session", s.id).Msg("Disconnect failed")
		}
		s.chain = nil
	}

	if cur := m.current; cur != nil && cur != s && cur.element == s.element {
		return
	}

	s.element.Pause()
	s.element.SetSrc("")
	s.element.Load()
	if s.direct {
		s.element.DetachOutput()
	}
	if s.ownsElement {
		if ctx := m.contexts.current(); ctx != nil {
			ctx.ReleaseMediaElementSource(s.element)
		}
		if err := s.element.Close(); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to close media element")
		}
	}
}

func (m *Manager) failLocked(s *session, reason string, err error) {
	m.teardownLocked(s)
	s.state = StateFailed
	m.metrics.SessionFailed(reason)
	m.metrics.SetActive(false)
	m.notifyStateLocked()
	if m.cfg.OnError != nil {
		m.pending = append(m.pending, func() { m.cfg.OnError(err) })
	}
}

// handleError reacts to an element error. Errors from superseded sessions
// are dropped; errors before Play resolves are reported by Start.
func (m *Manager) handleError(id uint64, err error) {
	m.mu.Lock()
	s := m.current
	if s == nil || s.id != id || id != m.counter {
		m.mu.Unlock()
		m.logger.Debug().Err(err).Uint64("session", id).Msg("Suppressed error from superseded session")
		return
	}
	if s.state != StatePlaying {
		m.mu.Unlock()
		return
	}

	if err == nil {
		err = errors.New("media element error")
	}
	err = fmt.Errorf("%w: %w", ErrPlaybackRejected, err)
	m.logger.Error().Err(err).Uint64("session", id).Msg("Stream failed")
	m.failLocked(s, "stream", err)
	m.unlockAndNotify()
}

func (m *Manager) handleEnded(id uint64) {
	m.mu.Lock()
	s := m.current
	if s == nil || s.id != id || s.state != StatePlaying {
		m.mu.Unlock()
		return
	}
	m.logger.Info().Uint64("session", id).Msg("Stream ended")
	m.teardownLocked(s)
	s.state = StateStopped
	m.metrics.SetActive(false)
	m.notifyStateLocked()
	m.unlockAndNotify()
}

func (m *Manager) handlePlay(id uint64) {
	m.logger.Debug().Uint64("session", id).Msg("Element playing")
}

func (m *Manager) notifyStateLocked() {
	if m.cfg.OnStateChange == nil {
		return
	}
	st := m.statusLocked()
	m.pending = append(m.pending, func() { m.cfg.OnStateChange(st) })
}

// notifySessionLocked queues a state change for s, which may no longer be current
func (m *Manager) notifySessionLocked(s *session) {
	if m.cfg.OnStateChange == nil {
		return
	}
	st := m.sessionStatusLocked(m.statusLocked(), s)
	m.pending = append(m.pending, func() { m.cfg.OnStateChange(st) })
}

// unlockAndNotify releases the lock, then runs queued callbacks so they may
// call back into the manager
func (m *Manager) unlockAndNotify() {
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}
