// ABOUTME: Preset navigation and auto-cycling
// ABOUTME: Tracks the active preset, history for stepping back, and timed advances
package visualizer

import (
	"math/rand"
	"sync"
	"time"
)

// Blend times in seconds
const (
	InitialBlend = 0.0
	ManualBlend  = 5.7
	AutoBlend    = 2.7
	PrevBlend    = 0.0
)

// DefaultCycleInterval is how long a preset stays before auto-advance
const DefaultCycleInterval = 15 * time.Second

// LoadFunc applies a preset with a blend time in seconds
type LoadFunc func(p Preset, blendSeconds float64)

// Cycler drives preset selection. Tick is called from the render loop, so
// cycling follows the display refresh rather than its own timer.
type Cycler struct {
	mu       sync.Mutex
	lib      *Library
	load     LoadFunc
	rng      *rand.Rand
	random   bool
	cycle    bool
	interval time.Duration
	current  string
	history  []string
	switched time.Time
}

// CyclerOptions configures a Cycler
type CyclerOptions struct {
	Random   bool
	Cycle    bool
	Interval time.Duration
	Seed     int64
}

// NewCycler creates a cycler over lib that calls load on every switch
func NewCycler(lib *Library, load LoadFunc, opts CyclerOptions) *Cycler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultCycleInterval
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Cycler{
		lib:      lib,
		load:     load,
		rng:      rand.New(rand.NewSource(seed)),
		random:   opts.Random,
		cycle:    opts.Cycle,
		interval: opts.Interval,
	}
}

// Start loads the named preset (or the first one) without blending
func (c *Cycler) Start(name string, now time.Time) {
	c.mu.Lock()
	p, err := c.lib.Get(name)
	if err != nil {
		p = c.lib.At(0)
	}
	c.history = nil
	c.setLocked(p, now)
	c.mu.Unlock()

	c.apply(p, InitialBlend)
}

// Current returns the active preset name
func (c *Cycler) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Next advances sequentially, or randomly in random mode
func (c *Cycler) Next(now time.Time) {
	c.advance(now, ManualBlend)
}

// Prev returns to the previously shown preset, or steps back in library order
func (c *Cycler) Prev(now time.Time) {
	c.mu.Lock()
	var p Preset
	if n := len(c.history); n > 0 {
		prev, err := c.lib.Get(c.history[n-1])
		c.history = c.history[:n-1]
		if err != nil {
			prev = c.lib.Prev(c.current)
		}
		p = prev
	} else {
		p = c.lib.Prev(c.current)
	}
	c.current = p.Name
	c.switched = now
	c.mu.Unlock()

	c.apply(p, PrevBlend)
}

// Random jumps to a random preset
func (c *Cycler) Random(now time.Time) {
	c.mu.Lock()
	p := c.lib.Random(c.rng, c.current)
	c.pushLocked()
	c.setLocked(p, now)
	c.mu.Unlock()

	c.apply(p, ManualBlend)
}

// Select jumps to a named preset
func (c *Cycler) Select(name string, now time.Time) error {
	p, err := c.lib.Get(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.pushLocked()
	c.setLocked(p, now)
	c.mu.Unlock()

	c.apply(p, ManualBlend)
	return nil
}

// Tick advances the preset when cycling is on and the interval has passed
func (c *Cycler) Tick(now time.Time) bool {
	c.mu.Lock()
	due := c.cycle && c.current != "" && now.Sub(c.switched) >= c.interval
	c.mu.Unlock()

	if due {
		c.advance(now, AutoBlend)
	}
	return due
}

// SetRandom toggles random advancing
func (c *Cycler) SetRandom(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.random = on
}

// SetCycle toggles auto-cycling
func (c *Cycler) SetCycle(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycle = on
}

func (c *Cycler) advance(now time.Time, blend float64) {
	c.mu.Lock()
	var p Preset
	if c.random {
		p = c.lib.Random(c.rng, c.current)
	} else {
		p = c.lib.Next(c.current)
	}
	c.pushLocked()
	c.setLocked(p, now)
	c.mu.Unlock()

	c.apply(p, blend)
}

func (c *Cycler) pushLocked() {
	if c.current != "" {
		c.history = append(c.history, c.current)
	}
}

func (c *Cycler) setLocked(p Preset, now time.Time) {
	c.current = p.Name
	c.switched = now
}

func (c *Cycler) apply(p Preset, blend float64) {
	if c.load != nil {
		c.load(p, blend)
	}
}
