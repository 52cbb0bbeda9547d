// ABOUTME: Audio graph package modelled on the Web Audio API
// ABOUTME: Context, nodes and the processing chain builder
// Package webaudio is a small pull-based audio graph modelled on the Web
// Audio API.
//
// A Context owns the graph and renders it in quanta of RenderQuantum frames,
// either from its own goroutine into an output.Output or on demand through
// Render. Nodes cache their output per quantum, so a node reached through
// several paths is processed once. Analysers are rendered every quantum even
// when nothing downstream pulls them.
//
// BuildChain assembles the per-session chain
//
//	media element -> compressor -> analyser -> gain -> destination
//
// and Chain.Disconnect tears it down node by node.
package webaudio
