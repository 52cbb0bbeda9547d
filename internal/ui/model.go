// ABOUTME: Bubbletea model for the radio player TUI
// ABOUTME: Station list, playback status, compressor and visualizer controls
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/analysis"
	"github.com/Resonate-Protocol/radiodeck/pkg/radio"
	"github.com/Resonate-Protocol/radiodeck/pkg/visualizer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Player is the part of the session manager the TUI drives
type Player interface {
	Start(ctx context.Context, opts radio.StartOptions) (bool, error)
	Stop(force bool)
	SwitchPresetSmooth(name string, d time.Duration) error
	SetVolume(percent int)
	Status() radio.Status
	Bands() (float64, analysis.Bands)
	RenderFrame() bool
	ResizeVisualizer(width, height int)
	NextVisualizerPreset()
	PrevVisualizerPreset()
	RandomVisualizerPreset()
	SetVisualizerCycle(on bool)
	SetVisualizerRandom(on bool)
}

// StatusMsg carries a manager state change
type StatusMsg struct {
	Status radio.Status
}

// ErrorMsg carries a surfaced playback error
type ErrorMsg struct {
	Err error
}

// StationFoundMsg adds a discovered station to the list
type StationFoundMsg struct {
	Station radio.Station
}

type frameMsg time.Time

type playResultMsg struct {
	station radio.Station
	ok      bool
	err     error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7dcfff"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff9e64")).Bold(true)
	playingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	frameStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#3b4261"))
)

// Options configures the model
type Options struct {
	Player   Player
	Stations []radio.Station
	Presets  []string
	Surface  *visualizer.Surface

	// Autoplay is started as soon as the program runs
	Autoplay radio.Station

	FPS        int
	PresetRamp time.Duration
	Volume     int
	Visualize  bool
	Cycle      bool
	Random     bool
}

// Model represents the TUI state
type Model struct {
	player   Player
	stations []radio.Station
	presets  []string
	surface  *visualizer.Surface
	autoplay radio.Station

	frameInterval time.Duration
	ramp          time.Duration
	visualize     bool
	cycle         bool
	random        bool

	cursor    int
	status    radio.Status
	volume    int
	intensity float64
	bands     analysis.Bands
	pending   string
	lastErr   string
	showHelp  bool

	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel(opts Options) Model {
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}
	volume := opts.Volume
	if volume <= 0 || volume > 100 {
		volume = radio.DefaultVolume
	}
	m := Model{
		player:        opts.Player,
		stations:      append([]radio.Station(nil), opts.Stations...),
		presets:       opts.Presets,
		surface:       opts.Surface,
		autoplay:      opts.Autoplay,
		frameInterval: time.Second / time.Duration(fps),
		ramp:          opts.PresetRamp,
		visualize:     opts.Visualize,
		cycle:         opts.Cycle,
		random:        opts.Random,
		volume:        volume,
		intensity:     1,
		status:        radio.Status{State: radio.StateIdle},
	}
	if m.autoplay.URL != "" {
		m.addStation(m.autoplay)
		for i, st := range m.stations {
			if st.URL == m.autoplay.URL {
				m.cursor = i
			}
		}
		m.pending = m.autoplay.URL
	}
	return m
}

// Init starts the frame loop and any autoplay station
func (m Model) Init() tea.Cmd {
	if m.autoplay.URL != "" {
		return tea.Batch(m.tick(), m.start(m.autoplay))
	}
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeVisualizer()
	case frameMsg:
		m.intensity, m.bands = m.player.Bands()
		if m.visualize {
			m.player.RenderFrame()
		}
		return m, m.tick()
	case StatusMsg:
		m.applyStatus(msg.Status)
	case ErrorMsg:
		if msg.Err != nil {
			m.lastErr = msg.Err.Error()
		}
	case StationFoundMsg:
		m.addStation(msg.Station)
	case playResultMsg:
		if m.pending == msg.station.URL {
			m.pending = ""
		}
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.player.Stop(true)
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.stations)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.stations) == 0 {
			return m, nil
		}
		st := m.stations[m.cursor]
		if m.status.Playing && m.status.Station == st {
			m.player.Stop(false)
			return m, nil
		}
		return m, m.play(st)
	case "s":
		m.player.Stop(true)
	case "+", "=", "right":
		m.setVolume(m.volume + 5)
	case "-", "left":
		m.setVolume(m.volume - 5)
	case "c":
		return m, m.nextPreset()
	case "n":
		m.player.NextVisualizerPreset()
	case "p":
		m.player.PrevVisualizerPreset()
	case "r":
		m.player.RandomVisualizerPreset()
	case "a":
		m.cycle = !m.cycle
		m.player.SetVisualizerCycle(m.cycle)
	case "o":
		m.random = !m.random
		m.player.SetVisualizerRandom(m.random)
	case "v":
		m.visualize = !m.visualize
	case "?":
		m.showHelp = !m.showHelp
	}

	return m, nil
}

// play starts a session off the UI goroutine
func (m *Model) play(st radio.Station) tea.Cmd {
	m.pending = st.URL
	m.lastErr = ""
	return m.start(st)
}

func (m Model) start(st radio.Station) tea.Cmd {
	player := m.player
	visualize := m.surface != nil
	return func() tea.Msg {
		ok, err := player.Start(context.Background(), radio.StartOptions{Station: st, Visualize: visualize})
		return playResultMsg{station: st, ok: ok, err: err}
	}
}

func (m *Model) setVolume(v int) {
	m.volume = max(0, min(100, v))
	m.player.SetVolume(m.volume)
}

func (m *Model) nextPreset() tea.Cmd {
	if len(m.presets) == 0 {
		return nil
	}
	next := m.presets[0]
	for i, name := range m.presets {
		if strings.EqualFold(name, m.status.CompressorPreset) {
			next = m.presets[(i+1)%len(m.presets)]
			break
		}
	}
	if err := m.player.SwitchPresetSmooth(next, m.ramp); err != nil {
		m.lastErr = err.Error()
		return nil
	}
	m.status.CompressorPreset = next
	return nil
}

// applyStatus updates model from a manager status
func (m *Model) applyStatus(st radio.Status) {
	// a replaced session's final state can trail the next session's
	if st.SessionID < m.status.SessionID {
		return
	}
	m.status = st
	if st.Volume > 0 {
		m.volume = st.Volume
	}
	if st.Playing {
		m.lastErr = ""
	}
}

func (m *Model) addStation(st radio.Station) {
	for _, s := range m.stations {
		if s.URL == st.URL {
			return
		}
	}
	m.stations = append(m.stations, st)
}

func (m *Model) resizeVisualizer() {
	if m.surface == nil || m.width == 0 {
		return
	}
	w := max(m.width-4, 8)
	h := max(m.height-len(m.stations)-12, 4)
	m.player.ResizeVisualizer(w, h)
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderStations())
	b.WriteString(m.renderStatus())
	if m.visualize && m.surface != nil && m.status.VisualizerActive {
		b.WriteString(frameStyle.Render(m.surface.String()))
		b.WriteByte('\n')
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

// renderHeader renders the title and current station
func (m Model) renderHeader() string {
	now := "Nothing playing"
	switch {
	case m.pending != "":
		now = "Tuning in..."
	case m.status.Playing:
		now = "Now playing: " + m.status.Station.Name
	case m.status.State == radio.StateFailed:
		now = "Failed: " + m.status.Station.Name
	}
	return titleStyle.Render("radiodeck") + "  " + now + "\n\n"
}

// renderStations renders the station list
func (m Model) renderStations() string {
	if len(m.stations) == 0 {
		return dimStyle.Render("  No stations configured") + "\n\n"
	}

	var b strings.Builder
	for i, st := range m.stations {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%d. %s", i+1, truncate(st.Name, 40))
		if m.status.Playing && m.status.Station.URL == st.URL {
			line = playingStyle.Render(line + " ♪")
		}
		b.WriteString(marker + line + "\n")
	}
	b.WriteByte('\n')
	return b.String()
}

// renderStatus renders volume, compressor and level meters
func (m Model) renderStatus() string {
	mode := "processed"
	if m.status.Playing && !m.status.Processed {
		mode = "direct"
	}

	s := fmt.Sprintf("Volume [%s] %3d%%   Compressor: %-8s %s\n",
		renderBar(m.volume, 100, 10), m.volume, m.status.CompressorPreset, dimStyle.Render(mode))
	s += fmt.Sprintf("Level  [%s]   Bass [%s] Mid [%s] Treble [%s]\n",
		renderBar(int((m.intensity-1)*50), 100, 10),
		renderBar(int(m.bands.Bass*100), 100, 6),
		renderBar(int(m.bands.Mid*100), 100, 6),
		renderBar(int(m.bands.Treble*100), 100, 6))
	if m.status.VisualizerPreset != "" {
		cycle := "off"
		if m.cycle {
			cycle = "on"
		}
		order := "in order"
		if m.random {
			order = "shuffled"
		}
		s += fmt.Sprintf("Visual: %s (auto-cycle %s, %s)\n", m.status.VisualizerPreset, cycle, order)
	}
	if m.lastErr != "" {
		s += errorStyle.Render("Error: "+truncate(m.lastErr, 70)) + "\n"
	}
	return s + "\n"
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	if !m.showHelp {
		return dimStyle.Render("↑/↓:Select  enter:Play  s:Stop  +/-:Volume  c:Compressor  ?:Help  q:Quit") + "\n"
	}
	return dimStyle.Render(strings.Join([]string{
		"↑/↓ or j/k  select station",
		"enter/space play or stop the selected station",
		"s           stop",
		"+/-         volume",
		"c           next compressor preset",
		"n/p/r       next, previous, random visual preset",
		"a           toggle visual auto-cycle",
		"o           toggle shuffled visual order",
		"v           toggle visualizer",
		"q           quit",
	}, "\n")) + "\n"
}

func renderBar(value, total, width int) string {
	value = max(0, min(total, value))
	filled := (value * width) / total
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
