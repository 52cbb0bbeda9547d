// ABOUTME: Visualizer binding and preset cycling for the session manager
// ABOUTME: The visualizer is optional; every failure leaves audio playback untouched
package radio

import (
	"github.com/Resonate-Protocol/radiodeck/pkg/visualizer"
	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
)

// bindVisualizerLocked creates the visualizer on first use and points it at
// the session's analyser
func (m *Manager) bindVisualizerLocked(s *session, ctx webaudio.AudioContext) {
	vc := m.cfg.Visualizer
	if vc.Factory == nil || vc.Surface == nil {
		return
	}

	v := m.vis.Load()
	if v == nil {
		created, err := visualizer.Create(vc.Factory, ctx, vc.Surface, vc.Options, m.cfg.Logger)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Visualizer unavailable")
			return
		}
		v = created
		m.vis.Store(v)
	}

	v.ConnectAudio(s.chain.Analyser)
	m.visSession = s.id

	if !m.cycling {
		m.cycling = true
		m.cycler.Start(vc.Initial, m.cfg.Now())
	}
}

// loadVisualPreset is the cycler's load hook; it must not take m.mu
func (m *Manager) loadVisualPreset(p visualizer.Preset, blend float64) {
	m.vis.Load().LoadPreset(p, blend)
}

// RenderFrame advances preset cycling and draws one visualizer frame
func (m *Manager) RenderFrame() bool {
	v := m.vis.Load()
	if v == nil {
		return false
	}
	m.cycler.Tick(m.cfg.Now())
	return v.RenderFrame()
}

// ResizeVisualizer resizes the render target
func (m *Manager) ResizeVisualizer(width, height int) {
	if s := m.cfg.Visualizer.Surface; s != nil {
		s.Resize(width, height)
	}
	m.vis.Load().Resize(width, height)
}

// LoadVisualizerPreset switches to a named preset with the manual blend
func (m *Manager) LoadVisualizerPreset(name string) error {
	return m.cycler.Select(name, m.cfg.Now())
}

// NextVisualizerPreset advances to the next preset
func (m *Manager) NextVisualizerPreset() {
	m.cycler.Next(m.cfg.Now())
}

// PrevVisualizerPreset returns to the previously shown preset
func (m *Manager) PrevVisualizerPreset() {
	m.cycler.Prev(m.cfg.Now())
}

// RandomVisualizerPreset jumps to a random preset
func (m *Manager) RandomVisualizerPreset() {
	m.cycler.Random(m.cfg.Now())
}

// SetVisualizerCycle toggles timed preset advances
func (m *Manager) SetVisualizerCycle(on bool) {
	m.cycler.SetCycle(on)
}

// SetVisualizerRandom toggles random order for preset advances
func (m *Manager) SetVisualizerRandom(on bool) {
	m.cycler.SetRandom(on)
}

// VisualizerPresets lists the library's preset names
func (m *Manager) VisualizerPresets() []string {
	return m.cfg.Visualizer.Library.Names()
}
