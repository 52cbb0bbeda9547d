// ABOUTME: Radio session package
// ABOUTME: Owns the shared audio context and the single active playback session
// Package radio manages playback sessions for internet radio streams.
//
// A Manager owns one process-wide audio context and at most one active
// session. Every Start, Stop and preset switch bumps a session counter;
// an in-flight Start re-checks the counter after each blocking step and
// abandons itself, releasing only what it allocated, when a newer request
// has arrived. Starting a new session first tears down the previous one:
// its listeners are removed, its chain disconnected and its element
// paused with an empty source.
//
// When no audio context can be created, a configured fallback output plays
// the element directly without compression, analysis or visualization.
package radio
