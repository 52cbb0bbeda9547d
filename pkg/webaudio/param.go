// ABOUTME: Automatable node parameters
// ABOUTME: Supports immediate values and linear ramps evaluated on the context clock
package webaudio

type ramp struct {
	startValue float64
	startTime  float64
	endValue   float64
	endTime    float64
}

// Param is an AudioParam bound to a context clock
type Param struct {
	ctx      *Context
	name     string
	value    float64
	min, max float64
	ramp     *ramp
}

func newParam(ctx *Context, name string, value, min, max float64) *Param {
	return &Param{ctx: ctx, name: name, value: clamp(value, min, max), min: min, max: max}
}

// Value returns the parameter value at the context's current time
func (p *Param) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.valueAt(p.ctx.currentTimeLocked())
}

// SetValue sets the value immediately and cancels any ramp
func (p *Param) SetValue(v float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.ramp = nil
	p.value = clamp(v, p.min, p.max)
}

// LinearRampToValueAtTime schedules a linear ramp from the current value to
// v, ending at endTime (seconds on the context clock)
func (p *Param) LinearRampToValueAtTime(v float64, endTime float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	now := p.ctx.currentTimeLocked()
	target := clamp(v, p.min, p.max)
	start := p.valueAt(now)

	if endTime <= now {
		p.ramp = nil
		p.value = target
		return
	}
	p.ramp = &ramp{startValue: start, startTime: now, endValue: target, endTime: endTime}
}

// CancelScheduledValues freezes the parameter at its current value
func (p *Param) CancelScheduledValues() {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.value = p.valueAt(p.ctx.currentTimeLocked())
	p.ramp = nil
}

// valueAt evaluates the parameter; caller holds ctx.mu
func (p *Param) valueAt(t float64) float64 {
	r := p.ramp
	if r == nil {
		return p.value
	}
	if t >= r.endTime {
		p.value = r.endValue
		p.ramp = nil
		return p.value
	}
	if t <= r.startTime {
		return r.startValue
	}
	frac := (t - r.startTime) / (r.endTime - r.startTime)
	return r.startValue + (r.endValue-r.startValue)*frac
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
