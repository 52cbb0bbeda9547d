// ABOUTME: Terminal spectrum renderer package
// ABOUTME: Draws analyser bins into a visualizer surface with preset crossfades
// Package spectrum is a terminal visualizer that draws analyser spectra into
// a visualizer.Surface. It implements visualizer.Renderer, so presets load
// with crossfades and audio is tapped through ConnectAudio.
package spectrum
