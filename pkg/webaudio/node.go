// ABOUTME: Graph node plumbing for the audio engine
// ABOUTME: Handles connections, cycle checks and per-quantum pull with caching
package webaudio

import "fmt"

// processor turns one quantum of mixed input into output
type processor interface {
	process(in, out []float32, startFrame int64)
}

type node struct {
	ctx          *Context
	kind         string
	acceptsInput bool
	tap          bool
	proc         processor

	inputs  []*node
	outputs []*node

	lastQuantum int64
	mix         []float32
	out         []float32
}

type baser interface {
	base() *node
}

func newNode(ctx *Context, kind string, acceptsInput bool, proc processor) *node {
	size := RenderQuantum * ctx.channels
	return &node{
		ctx:          ctx,
		kind:         kind,
		acceptsInput: acceptsInput,
		proc:         proc,
		lastQuantum:  -1,
		mix:          make([]float32, size),
		out:          make([]float32, size),
	}
}

func (n *node) base() *node { return n }

// Connect routes this node's output into dst
func (n *node) Connect(dst AudioNode) error {
	b, ok := dst.(baser)
	if !ok || b.base() == nil {
		return fmt.Errorf("%w: foreign node", ErrInvalidConnection)
	}
	target := b.base()

	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()

	if n.ctx.state == StateClosed {
		return ErrContextClosed
	}
	if target.ctx != n.ctx {
		return fmt.Errorf("%w: nodes belong to different contexts", ErrInvalidConnection)
	}
	if !target.acceptsInput {
		return fmt.Errorf("%w: %s has no inputs", ErrInvalidConnection, target.kind)
	}
	if target == n || target.reaches(n) {
		return ErrCycle
	}

	for _, o := range n.outputs {
		if o == target {
			return nil
		}
	}
	n.outputs = append(n.outputs, target)
	target.inputs = append(target.inputs, n)
	if target.tap {
		n.ctx.taps[target] = struct{}{}
	}
	return nil
}

// Disconnect removes every outgoing connection
func (n *node) Disconnect() error {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()

	if n.ctx.state == StateClosed {
		return ErrContextClosed
	}
	n.disconnectLocked()
	return nil
}

// DisconnectFrom removes the connection to dst only
func (n *node) DisconnectFrom(dst AudioNode) error {
	b, ok := dst.(baser)
	if !ok || b.base() == nil {
		return fmt.Errorf("%w: foreign node", ErrInvalidConnection)
	}
	target := b.base()

	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()

	if n.ctx.state == StateClosed {
		return ErrContextClosed
	}
	for _, o := range n.outputs {
		if o == target {
			n.outputs = removeNode(n.outputs, target)
			target.inputs = removeNode(target.inputs, n)
			return nil
		}
	}
	return ErrNotConnected
}

func (n *node) disconnectLocked() {
	for _, o := range n.outputs {
		o.inputs = removeNode(o.inputs, n)
	}
	n.outputs = nil
}

// connected reports whether the node has any edge; caller holds ctx.mu
func (n *node) connected() bool {
	return len(n.inputs) > 0 || len(n.outputs) > 0
}

// reaches reports whether target is downstream of n
func (n *node) reaches(target *node) bool {
	for _, o := range n.outputs {
		if o == target || o.reaches(target) {
			return true
		}
	}
	return false
}

// pull renders this node for quantum q, reusing the cached result when the
// node is reached through more than one path
func (n *node) pull(q, startFrame int64) []float32 {
	if n.lastQuantum == q {
		return n.out
	}
	n.lastQuantum = q

	for i := range n.mix {
		n.mix[i] = 0
	}
	for _, in := range n.inputs {
		buf := in.pull(q, startFrame)
		for i, v := range buf {
			n.mix[i] += v
		}
	}

	n.proc.process(n.mix, n.out, startFrame)
	return n.out
}

func removeNode(list []*node, target *node) []*node {
	out := list[:0]
	for _, n := range list {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// passthrough copies input to output
type passthrough struct{}

func (passthrough) process(in, out []float32, _ int64) {
	copy(out, in)
}
