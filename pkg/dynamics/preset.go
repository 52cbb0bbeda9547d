// ABOUTME: Compressor presets and the read-only preset store
// ABOUTME: Applies named parameter sets to a compressor, immediately or as linear ramps
package dynamics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/webaudio"
)

var (
	// ErrUnknownPreset is returned for names the store does not hold
	ErrUnknownPreset = errors.New("unknown compressor preset")

	// ErrInvalidPreset is returned for presets with out-of-range parameters
	ErrInvalidPreset = errors.New("invalid compressor preset")
)

// Built-in preset names
const (
	None   = "none"
	Low    = "low"
	Medium = "medium"
	High   = "high"
)

// Preset is a named compressor parameter set. Threshold and knee are in dB,
// attack and release in seconds.
type Preset struct {
	Name      string  `yaml:"name"`
	Threshold float64 `yaml:"threshold"`
	Knee      float64 `yaml:"knee"`
	Ratio     float64 `yaml:"ratio"`
	Attack    float64 `yaml:"attack"`
	Release   float64 `yaml:"release"`
}

// Validate checks parameter ranges
func (p Preset) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	case p.Threshold > 0:
		return fmt.Errorf("%w: %s: threshold %v must not be positive", ErrInvalidPreset, p.Name, p.Threshold)
	case p.Knee < 0:
		return fmt.Errorf("%w: %s: knee %v must not be negative", ErrInvalidPreset, p.Name, p.Knee)
	case p.Ratio < 1:
		return fmt.Errorf("%w: %s: ratio %v must be at least 1", ErrInvalidPreset, p.Name, p.Ratio)
	case p.Attack < 0 || p.Release < 0:
		return fmt.Errorf("%w: %s: attack and release must not be negative", ErrInvalidPreset, p.Name)
	}
	return nil
}

// Builtin returns the built-in presets, mildest first
func Builtin() []Preset {
	return []Preset{
		{Name: None, Threshold: -100, Knee: 0, Ratio: 1, Attack: 0, Release: 0},
		{Name: Low, Threshold: -50, Knee: 40, Ratio: 12, Attack: 0, Release: 0.25},
		{Name: Medium, Threshold: -24, Knee: 30, Ratio: 12, Attack: 0.003, Release: 0.25},
		{Name: High, Threshold: -18, Knee: 6, Ratio: 20, Attack: 0.001, Release: 0.1},
	}
}

// Clock reports the time ramps are scheduled against
type Clock interface {
	CurrentTime() float64
}

// Store holds presets by lower-cased name. It is read-only after NewStore.
type Store struct {
	presets map[string]Preset
	order   []string
}

// NewStore builds a store from the built-ins plus extra presets. Extra
// presets replace built-ins of the same name.
func NewStore(extra ...Preset) (*Store, error) {
	s := &Store{presets: make(map[string]Preset)}
	for _, p := range Builtin() {
		s.add(p)
	}
	for _, p := range extra {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		s.add(p)
	}
	return s, nil
}

func (s *Store) add(p Preset) {
	key := strings.ToLower(strings.TrimSpace(p.Name))
	p.Name = key
	if _, exists := s.presets[key]; !exists {
		s.order = append(s.order, key)
	}
	s.presets[key] = p
}

// Get looks up a preset by case-insensitive name
func (s *Store) Get(name string) (Preset, error) {
	p, ok := s.presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// Names returns preset names, built-ins first in their defined order
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Apply sets the named preset on c immediately. A nil compressor is a no-op.
func (s *Store) Apply(c webaudio.Compressor, name string) error {
	p, err := s.Get(name)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	c.Threshold().SetValue(p.Threshold)
	c.Knee().SetValue(p.Knee)
	c.Ratio().SetValue(p.Ratio)
	c.Attack().SetValue(p.Attack)
	c.Release().SetValue(p.Release)
	return nil
}

// ApplySmooth ramps every parameter of c linearly from its current value to
// the named preset over d. A non-positive d applies immediately.
func (s *Store) ApplySmooth(clock Clock, c webaudio.Compressor, name string, d time.Duration) error {
	if d <= 0 || clock == nil {
		return s.Apply(c, name)
	}
	p, err := s.Get(name)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	end := clock.CurrentTime() + d.Seconds()
	c.Threshold().LinearRampToValueAtTime(p.Threshold, end)
	c.Knee().LinearRampToValueAtTime(p.Knee, end)
	c.Ratio().LinearRampToValueAtTime(p.Ratio, end)
	c.Attack().LinearRampToValueAtTime(p.Attack, end)
	c.Release().LinearRampToValueAtTime(p.Release, end)
	return nil
}

// Read returns the compressor's current parameters as an unnamed preset
func Read(c webaudio.Compressor) Preset {
	if c == nil {
		return Preset{}
	}
	return Preset{
		Threshold: c.Threshold().Value(),
		Knee:      c.Knee().Value(),
		Ratio:     c.Ratio().Value(),
		Attack:    c.Attack().Value(),
		Release:   c.Release().Value(),
	}
}
