// ABOUTME: Radio application orchestration
// ABOUTME: Wires configuration into the session manager, TUI, discovery and metrics
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/radiodeck/internal/config"
	"github.com/Resonate-Protocol/radiodeck/internal/discovery"
	"github.com/Resonate-Protocol/radiodeck/internal/telemetry"
	"github.com/Resonate-Protocol/radiodeck/internal/ui"
	"github.com/Resonate-Protocol/radiodeck/internal/version"
	"github.com/Resonate-Protocol/radiodeck/pkg/audio/output"
	"github.com/Resonate-Protocol/radiodeck/pkg/media"
	"github.com/Resonate-Protocol/radiodeck/pkg/radio"
	"github.com/Resonate-Protocol/radiodeck/pkg/visualizer"
	"github.com/Resonate-Protocol/radiodeck/pkg/visualizer/spectrum"
	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownStation is returned when a station key matches nothing configured
var ErrUnknownStation = errors.New("unknown station")

// Initial visualizer size before the terminal reports its own
const (
	surfaceWidth  = 76
	surfaceHeight = 16
)

// Config holds application configuration
type Config struct {
	Settings *config.Config
	UseTUI   bool

	// Station is played on launch: a configured name, a 1-based index or a URL
	Station string

	Logger zerolog.Logger

	// Audio backend overrides; the system output is used when nil
	NewContext radio.ContextFactory
	NewElement func() radio.Element
	Output     func() output.Output

	// Query overrides the mDNS query used by discovery
	Query discovery.QueryFunc

	// TUIOptions are passed through to the bubbletea program
	TUIOptions []tea.ProgramOption
}

// App runs the radio player
type App struct {
	config   Config
	settings *config.Config
	logger   zerolog.Logger

	metrics *telemetry.Collector
	manager *radio.Manager
	surface *visualizer.Surface
	browser *discovery.Browser
	initial radio.Station

	program atomic.Pointer[ui.Program]

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds the application; nothing touches the audio device until Run
func New(cfg Config) (*App, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config:   cfg,
		settings: settings,
		logger:   cfg.Logger,
		metrics:  telemetry.NewCollector(),
	}

	if cfg.Station != "" {
		st, err := a.ResolveStation(cfg.Station)
		if err != nil {
			return nil, err
		}
		a.initial = st
	}

	if a.config.Output == nil {
		a.config.Output = func() output.Output { return output.NewOto(a.logger) }
	}
	if a.config.NewContext == nil {
		a.config.NewContext = a.newContext
	}
	if a.config.NewElement == nil {
		a.config.NewElement = a.newElement
	}

	presets, err := settings.PresetStore()
	if err != nil {
		return nil, err
	}

	vis, err := a.visualizerConfig()
	if err != nil {
		return nil, err
	}

	a.manager, err = radio.NewManager(radio.Config{
		NewContext:     a.config.NewContext,
		NewElement:     a.config.NewElement,
		FallbackOutput: a.config.Output,
		Presets:        presets,
		DefaultPreset:  settings.Compressor.Default,
		Visualizer:     vis,
		PlayTimeout:    settings.Audio.PlayTimeout,
		Volume:         settings.Audio.Volume,
		Logger:         a.logger,
		Metrics:        a.metrics,
		OnStateChange:  a.onState,
		OnError:        a.onError,
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	if settings.Discovery.Enabled {
		a.browser = discovery.NewBrowser(discovery.Config{
			Service: settings.Discovery.Service,
			Domain:  settings.Discovery.Domain,
			Timeout: settings.Discovery.Timeout,
			Logger:  a.logger,
			Query:   cfg.Query,
		})
	}

	return a, nil
}

func (a *App) newContext() (webaudio.AudioContext, error) {
	ctx, err := webaudio.NewContext(webaudio.ContextOptions{
		SampleRate: a.settings.Audio.SampleRate,
		Channels:   a.settings.Audio.Channels,
		Output:     a.config.Output(),
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}
	return ctx, nil
}

func (a *App) newElement() radio.Element {
	return media.New(media.Options{
		Logger:        a.logger,
		BufferSeconds: a.settings.Audio.BufferSeconds,
		UserAgent:     version.UserAgent(),
	})
}

// visualizerConfig wires the spectrum renderer when a terminal is available
func (a *App) visualizerConfig() (radio.VisualizerConfig, error) {
	v := a.settings.Visualizer
	cfg := radio.VisualizerConfig{
		Initial: v.Initial,
		Cycler: visualizer.CyclerOptions{
			Random:   v.Random,
			Cycle:    v.Cycle,
			Interval: v.Interval,
		},
	}

	if v.PresetFile != "" {
		lib, err := visualizer.LoadLibrary(v.PresetFile)
		if err != nil {
			return cfg, fmt.Errorf("visualizer presets: %w", err)
		}
		cfg.Library = lib
	}

	if a.config.UseTUI && v.Enabled {
		a.surface = visualizer.NewSurface(surfaceWidth, surfaceHeight)
		cfg.Factory = spectrum.Factory
		cfg.Surface = a.surface
		cfg.Options = visualizer.Options{Width: surfaceWidth, Height: surfaceHeight}
	}
	return cfg, nil
}

// ResolveStation finds a configured station, or treats key as a stream URL
func (a *App) ResolveStation(key string) (radio.Station, error) {
	if st, ok := a.settings.Station(key); ok {
		return st, nil
	}
	if strings.Contains(key, "://") {
		return radio.Station{Name: key, URL: key}, nil
	}
	return radio.Station{}, fmt.Errorf("%w: %q", ErrUnknownStation, key)
}

// Manager exposes the session manager
func (a *App) Manager() *radio.Manager {
	return a.manager
}

// Metrics exposes the metrics collector
func (a *App) Metrics() *telemetry.Collector {
	return a.metrics
}

// Run plays until ctx ends, the TUI quits, or a headless stream stops.
// Audio is always shut down before Run returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.setCancel(cancel)

	g, gctx := errgroup.WithContext(ctx)

	if addr := a.settings.MetricsAddr; addr != "" {
		g.Go(func() error {
			return a.metrics.Serve(gctx, addr, a.logger)
		})
	}

	if a.browser != nil {
		g.Go(func() error {
			return a.browser.Run(gctx)
		})
		g.Go(func() error {
			a.forwardStations()
			return nil
		})
	}

	if a.config.UseTUI {
		g.Go(func() error {
			defer cancel()
			return a.runTUI(gctx)
		})
	} else {
		g.Go(func() error {
			return a.runHeadless(gctx)
		})
	}

	err := g.Wait()
	if shutdownErr := a.manager.ShutdownApplication(); shutdownErr != nil {
		a.logger.Warn().Err(shutdownErr).Msg("Audio shutdown incomplete")
	}
	return err
}

func (a *App) runTUI(ctx context.Context) error {
	prog := ui.NewProgram(ctx, ui.Options{
		Player:     a.manager,
		Stations:   a.settings.Stations,
		Presets:    a.presetNames(),
		Surface:    a.surface,
		Autoplay:   a.initial,
		FPS:        a.settings.Visualizer.FPS,
		PresetRamp: a.settings.Compressor.Ramp,
		Volume:     a.settings.Audio.Volume,
		Visualize:  a.surface != nil,
		Cycle:      a.settings.Visualizer.Cycle,
		Random:     a.settings.Visualizer.Random,
	}, a.config.TUIOptions...)
	a.program.Store(prog)
	defer a.program.Store(nil)

	if _, err := prog.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (a *App) runHeadless(ctx context.Context) error {
	st := a.initial
	if st.URL == "" {
		if len(a.settings.Stations) == 0 {
			return radio.ErrNoStation
		}
		st = a.settings.Stations[0]
	}

	a.logger.Info().Str("station", st.Name).Str("url", st.URL).Msg("Starting playback")
	ok, err := a.manager.Start(ctx, radio.StartOptions{Station: st})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil || !ok {
		return err
	}

	<-ctx.Done()
	return nil
}

func (a *App) presetNames() []string {
	store, err := a.settings.PresetStore()
	if err != nil {
		return nil
	}
	return store.Names()
}

// forwardStations drains discovery until the browser stops
func (a *App) forwardStations() {
	for st := range a.browser.Stations() {
		a.metrics.StationFound()
		if prog := a.program.Load(); prog != nil {
			prog.AddStation(st)
		}
	}
}

func (a *App) onState(st radio.Status) {
	a.logger.Debug().
		Uint64("session", st.SessionID).
		Str("state", string(st.State)).
		Str("station", st.Station.Name).
		Msg("Session state changed")

	if prog := a.program.Load(); prog != nil {
		prog.NotifyStatus(st)
		return
	}
	if a.config.UseTUI {
		return
	}

	switch st.State {
	case radio.StatePlaying:
		a.logger.Info().Str("station", st.Station.Name).Bool("processed", st.Processed).Msg("Playing")
	case radio.StateStopped, radio.StateFailed:
		// a session replaced by a newer one also reports stopped
		if a.manager.Status().SessionID == st.SessionID {
			a.stop()
		}
	}
}

func (a *App) onError(err error) {
	a.logger.Error().Err(err).Msg("Playback error")
	if prog := a.program.Load(); prog != nil {
		prog.NotifyError(err)
	}
}

func (a *App) setCancel(cancel context.CancelFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancel = cancel
}

func (a *App) stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
