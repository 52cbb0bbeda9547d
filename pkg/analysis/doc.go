// ABOUTME: Frequency analysis package
// ABOUTME: Derives intensity and band levels from analyser frames
// Package analysis derives visual drive values from analyser spectra.
//
// Sampling is pull-based: callers read one frame per rendered visual frame
// and no history is kept.
package analysis
