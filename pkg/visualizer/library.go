// ABOUTME: Visualizer preset payloads and the preset library
// ABOUTME: Loads presets from YAML once at startup; read-only afterwards
package visualizer

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownVisualPreset is returned for names missing from the library
var ErrUnknownVisualPreset = errors.New("unknown visualizer preset")

// Drawing styles understood by the spectrum renderer
const (
	StyleBars   = "bars"
	StyleMirror = "mirror"
	StyleWave   = "wave"
	StyleDots   = "dots"
)

// Preset is an opaque payload for the renderer
type Preset struct {
	Name    string   `yaml:"name"`
	Style   string   `yaml:"style"`
	Palette []string `yaml:"palette"`
	Gain    float64  `yaml:"gain"`
	Decay   float64  `yaml:"decay"`
	Peaks   bool     `yaml:"peaks"`
}

func (p *Preset) normalize() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("visualizer preset name is required")
	}
	switch p.Style {
	case "":
		p.Style = StyleBars
	case StyleBars, StyleMirror, StyleWave, StyleDots:
	default:
		return fmt.Errorf("visualizer preset %s: unknown style %q", p.Name, p.Style)
	}
	if len(p.Palette) == 0 {
		p.Palette = []string{"#5A56E0", "#EE6FF8"}
	}
	if p.Gain <= 0 {
		p.Gain = 1
	}
	if p.Decay <= 0 || p.Decay >= 1 {
		p.Decay = 0.15
	}
	return nil
}

// BuiltinPresets are used when no preset file is configured
func BuiltinPresets() []Preset {
	return []Preset{
		{Name: "aurora", Style: StyleBars, Palette: []string{"#1B998B", "#2EC4B6", "#CBF3F0"}, Gain: 1, Decay: 0.12, Peaks: true},
		{Name: "ember", Style: StyleBars, Palette: []string{"#9D0208", "#E85D04", "#FFBA08"}, Gain: 1.2, Decay: 0.2},
		{Name: "mirror-lake", Style: StyleMirror, Palette: []string{"#023E8A", "#0096C7", "#90E0EF"}, Gain: 1, Decay: 0.1},
		{Name: "oscilloscope", Style: StyleWave, Palette: []string{"#38B000", "#CCFF33"}, Gain: 1, Decay: 0.3},
		{Name: "starfield", Style: StyleDots, Palette: []string{"#7209B7", "#F72585", "#FFFFFF"}, Gain: 1.4, Decay: 0.18, Peaks: true},
	}
}

type libraryFile struct {
	Presets []Preset `yaml:"presets"`
}

// Library is an ordered, read-only set of presets
type Library struct {
	presets []Preset
	index   map[string]int
}

// NewLibrary builds a library. Names must be unique.
func NewLibrary(presets []Preset) (*Library, error) {
	if len(presets) == 0 {
		return nil, fmt.Errorf("visualizer library needs at least one preset")
	}
	l := &Library{index: make(map[string]int, len(presets))}
	for _, p := range presets {
		if err := p.normalize(); err != nil {
			return nil, err
		}
		if _, dup := l.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate visualizer preset %q", p.Name)
		}
		l.index[p.Name] = len(l.presets)
		l.presets = append(l.presets, p)
	}
	return l, nil
}

// DefaultLibrary returns the built-in presets
func DefaultLibrary() *Library {
	l, err := NewLibrary(BuiltinPresets())
	if err != nil {
		panic(err)
	}
	return l
}

// ParseLibrary reads a YAML document with a top-level presets list
func ParseLibrary(data []byte) (*Library, error) {
	var f libraryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse visualizer presets: %w", err)
	}
	return NewLibrary(f.Presets)
}

// LoadLibrary reads presets from path, or returns the built-ins when path
// is empty
func LoadLibrary(path string) (*Library, error) {
	if path == "" {
		return DefaultLibrary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read visualizer presets: %w", err)
	}
	return ParseLibrary(data)
}

// Len returns the number of presets
func (l *Library) Len() int {
	return len(l.presets)
}

// Names returns preset names in library order
func (l *Library) Names() []string {
	out := make([]string, len(l.presets))
	for i, p := range l.presets {
		out[i] = p.Name
	}
	return out
}

// Get looks up a preset by name
func (l *Library) Get(name string) (Preset, error) {
	i, ok := l.index[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownVisualPreset, name)
	}
	return l.presets[i], nil
}

// IndexOf returns the position of name, or -1
func (l *Library) IndexOf(name string) int {
	if i, ok := l.index[name]; ok {
		return i
	}
	return -1
}

// At returns the preset at position i, wrapping around
func (l *Library) At(i int) Preset {
	n := len(l.presets)
	return l.presets[((i%n)+n)%n]
}

// Next returns the preset after name; unknown names start at the first
func (l *Library) Next(name string) Preset {
	return l.At(l.IndexOf(name) + 1)
}

// Prev returns the preset before name
func (l *Library) Prev(name string) Preset {
	i := l.IndexOf(name)
	if i < 0 {
		return l.At(0)
	}
	return l.At(i - 1)
}

// Random picks a preset other than exclude when the library allows it
func (l *Library) Random(rng *rand.Rand, exclude string) Preset {
	if len(l.presets) == 1 {
		return l.presets[0]
	}
	for {
		p := l.presets[rng.Intn(len(l.presets))]
		if p.Name != exclude {
			return p
		}
	}
}
