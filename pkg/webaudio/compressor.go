// ABOUTME: Dynamics compressor node
// ABOUTME: Soft-knee feed-forward compressor with attack and release smoothing
package webaudio

import "math"

// Platform defaults for a fresh compressor
const (
	defaultThreshold = -24
	defaultKnee      = 30
	defaultRatio     = 12
	defaultAttack    = 0.003
	defaultRelease   = 0.25
)

type compressorNode struct {
	*node
	threshold *Param
	knee      *Param
	ratio     *Param
	attack    *Param
	release   *Param

	// envelope of the gain reduction in dB
	envelope float64
}

func newCompressorNode(ctx *Context) *compressorNode {
	c := &compressorNode{
		threshold: newParam(ctx, "threshold", defaultThreshold, -100, 0),
		knee:      newParam(ctx, "knee", defaultKnee, 0, 40),
		ratio:     newParam(ctx, "ratio", defaultRatio, 1, 20),
		attack:    newParam(ctx, "attack", defaultAttack, 0, 1),
		release:   newParam(ctx, "release", defaultRelease, 0, 1),
	}
	c.node = newNode(ctx, "dynamics-compressor", true, c)
	return c
}

func (c *compressorNode) Threshold() AudioParam { return c.threshold }
func (c *compressorNode) Knee() AudioParam      { return c.knee }
func (c *compressorNode) Ratio() AudioParam     { return c.ratio }
func (c *compressorNode) Attack() AudioParam    { return c.attack }
func (c *compressorNode) Release() AudioParam   { return c.release }

// Reduction returns the current gain reduction in dB
func (c *compressorNode) Reduction() float64 {
	c.ctx.mu.Lock()
	defer c.ctx.mu.Unlock()
	return c.envelope
}

func (c *compressorNode) process(in, out []float32, startFrame int64) {
	ch := c.ctx.channels
	rate := float64(c.ctx.sampleRate)

	// Parameters are evaluated once per quantum
	t := float64(startFrame) / rate
	threshold := c.threshold.valueAt(t)
	knee := c.knee.valueAt(t)
	ratio := c.ratio.valueAt(t)
	attack := smoothingCoefficient(c.attack.valueAt(t), rate)
	release := smoothingCoefficient(c.release.valueAt(t), rate)

	for f := 0; f < len(in)/ch; f++ {
		peak := 0.0
		for k := 0; k < ch; k++ {
			if v := math.Abs(float64(in[f*ch+k])); v > peak {
				peak = v
			}
		}

		level := -200.0
		if peak > 0 {
			level = 20 * math.Log10(peak)
		}
		target := staticCurve(level, threshold, knee, ratio) - level

		coef := release
		if target < c.envelope {
			coef = attack
		}
		c.envelope = coef*c.envelope + (1-coef)*target

		g := float32(math.Pow(10, c.envelope/20))
		for k := 0; k < ch; k++ {
			i := f*ch + k
			out[i] = in[i] * g
		}
	}
}

// staticCurve maps an input level to an output level in dB
func staticCurve(x, threshold, knee, ratio float64) float64 {
	over := x - threshold
	switch {
	case knee > 0 && 2*math.Abs(over) <= knee:
		d := over + knee/2
		return x + (1/ratio-1)*d*d/(2*knee)
	case over <= 0:
		return x
	default:
		return threshold + over/ratio
	}
}

func smoothingCoefficient(seconds, rate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * rate))
}
