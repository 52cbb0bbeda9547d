// ABOUTME: Compressor preset package
// ABOUTME: Named parameter sets applied to dynamics compressor nodes
// Package dynamics holds the compressor presets applied to each playback
// session and the store that looks them up by name.
package dynamics
