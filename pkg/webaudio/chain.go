// ABOUTME: Builds the per-session processing chain
// ABOUTME: source -> compressor -> analyser -> gain -> destination, with fault-tolerant teardown
package webaudio

import (
	"errors"
	"fmt"
)

// ErrDisconnectFailed wraps a node that could not be disconnected
var ErrDisconnectFailed = errors.New("node disconnect failed")

// Chain is the set of nodes created for one playback session
type Chain struct {
	Source     MediaElementSource
	Compressor Compressor
	Analyser   Analyser
	Gain       Gain

	// ReusedSource is set when the element was already bound in the context
	// and its existing source node was adopted
	ReusedSource bool
}

// BuildChain wires el through a compressor, an analyser and a gain stage to
// the context destination. An element already bound to a source node in
// this context reuses that node.
func BuildChain(ctx AudioContext, el MediaElement) (*Chain, error) {
	if ctx == nil {
		return nil, errors.New("audio context is nil")
	}

	chain := &Chain{}

	src, err := ctx.CreateMediaElementSource(el)
	switch {
	case errors.Is(err, ErrSourceAlreadyBound):
		existing, ok := ctx.BoundSource(el)
		if !ok {
			return nil, err
		}
		if err := existing.Disconnect(); err != nil {
			return nil, fmt.Errorf("detach bound source: %w", err)
		}
		src = existing
		chain.ReusedSource = true
	case err != nil:
		return nil, fmt.Errorf("create media element source: %w", err)
	}
	chain.Source = src

	if chain.Compressor, err = ctx.CreateDynamicsCompressor(); err != nil {
		return nil, fmt.Errorf("create compressor: %w", err)
	}
	if chain.Analyser, err = ctx.CreateAnalyser(); err != nil {
		return nil, fmt.Errorf("create analyser: %w", err)
	}
	if err := chain.Analyser.SetFFTSize(DefaultFFTSize); err != nil {
		return nil, fmt.Errorf("configure analyser: %w", err)
	}
	if chain.Gain, err = ctx.CreateGain(); err != nil {
		return nil, fmt.Errorf("create gain: %w", err)
	}

	links := []struct {
		from, to AudioNode
	}{
		{chain.Source, chain.Compressor},
		{chain.Compressor, chain.Analyser},
		{chain.Analyser, chain.Gain},
		{chain.Gain, ctx.Destination()},
	}
	for _, l := range links {
		if err := l.from.Connect(l.to); err != nil {
			chain.Disconnect()
			return nil, fmt.Errorf("connect chain: %w", err)
		}
	}

	return chain, nil
}

// Nodes returns the chain's nodes in signal order
func (c *Chain) Nodes() []AudioNode {
	return []AudioNode{c.Source, c.Compressor, c.Analyser, c.Gain}
}

// Disconnect detaches every node independently. A failure on one node does
// not stop the rest; each failure is returned wrapped in ErrDisconnectFailed.
func (c *Chain) Disconnect() []error {
	if c == nil {
		return nil
	}

	nodes := []struct {
		name string
		node AudioNode
	}{
		{"source", c.Source},
		{"compressor", c.Compressor},
		{"analyser", c.Analyser},
		{"gain", c.Gain},
	}

	var errs []error
	for _, n := range nodes {
		if n.node == nil {
			continue
		}
		if err := safeDisconnect(n.node); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrDisconnectFailed, n.name, err))
		}
	}
	return errs
}

func safeDisconnect(n AudioNode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return n.Disconnect()
}
