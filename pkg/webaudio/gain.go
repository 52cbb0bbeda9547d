// ABOUTME: Gain node
// ABOUTME: Scales its input by an automatable gain parameter
package webaudio

import "math"

type gainNode struct {
	*node
	gain *Param
}

func newGainNode(ctx *Context) *gainNode {
	g := &gainNode{
		gain: newParam(ctx, "gain", 1, -math.MaxFloat32, math.MaxFloat32),
	}
	g.node = newNode(ctx, "gain", true, g)
	return g
}

// Gain returns the gain parameter
func (g *gainNode) Gain() AudioParam {
	return g.gain
}

func (g *gainNode) process(in, out []float32, startFrame int64) {
	ch := g.ctx.channels
	rate := float64(g.ctx.sampleRate)
	for f := 0; f < len(in)/ch; f++ {
		v := float32(g.gain.valueAt(float64(startFrame+int64(f)) / rate))
		for c := 0; c < ch; c++ {
			i := f*ch + c
			out[i] = in[i] * v
		}
	}
}
