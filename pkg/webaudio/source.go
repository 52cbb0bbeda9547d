// ABOUTME: Media element source node
// ABOUTME: Pulls decoded PCM from a bound media element into the graph
package webaudio

type sourceNode struct {
	*node
	el MediaElement
}

func newSourceNode(ctx *Context, el MediaElement) *sourceNode {
	s := &sourceNode{el: el}
	s.node = newNode(ctx, "media-element-source", false, s)
	return s
}

// MediaElement returns the bound element
func (s *sourceNode) MediaElement() MediaElement {
	return s.el
}

func (s *sourceNode) process(_, out []float32, _ int64) {
	n := s.el.ReadPCM(out)
	if n < 0 {
		n = 0
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}
