// ABOUTME: Tests for the visualizer preset library and cycler
// ABOUTME: Covers YAML loading, navigation order and blend times
package visualizer

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultLibrary(t *testing.T) {
	lib := DefaultLibrary()
	if lib.Len() != len(BuiltinPresets()) {
		t.Fatalf("expected %d presets, got %d", len(BuiltinPresets()), lib.Len())
	}
	if _, err := lib.Get("aurora"); err != nil {
		t.Errorf("expected aurora preset: %v", err)
	}
	if _, err := lib.Get("missing"); !errors.Is(err, ErrUnknownVisualPreset) {
		t.Errorf("expected ErrUnknownVisualPreset, got %v", err)
	}
}

func TestParseLibrary(t *testing.T) {
	data := []byte(`
presets:
  - name: plain
  - name: wave
    style: wave
    palette: ["#ff0000"]
    gain: 2
`)
	lib, err := ParseLibrary(data)
	if err != nil {
		t.Fatalf("ParseLibrary failed: %v", err)
	}

	plain, _ := lib.Get("plain")
	if plain.Style != StyleBars || plain.Gain != 1 || len(plain.Palette) == 0 {
		t.Errorf("expected defaults filled in, got %+v", plain)
	}
	wave, _ := lib.Get("wave")
	if wave.Style != StyleWave || wave.Gain != 2 {
		t.Errorf("unexpected wave preset %+v", wave)
	}
}

func TestParseLibraryErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "presets: []"},
		{"duplicate", "presets: [{name: a}, {name: a}]"},
		{"unknown style", "presets: [{name: a, style: lasers}]"},
		{"missing name", "presets: [{style: bars}]"},
		{"bad yaml", "presets: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLibrary([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadLibrary(t *testing.T) {
	lib, err := LoadLibrary("")
	if err != nil || lib.Len() == 0 {
		t.Fatalf("expected built-ins for empty path, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte("presets: [{name: only}]"), 0o644); err != nil {
		t.Fatal(err)
	}
	lib, err = LoadLibrary(path)
	if err != nil {
		t.Fatalf("LoadLibrary failed: %v", err)
	}
	if names := lib.Names(); len(names) != 1 || names[0] != "only" {
		t.Errorf("unexpected names %v", names)
	}

	if _, err := LoadLibrary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLibraryNavigation(t *testing.T) {
	lib, _ := NewLibrary([]Preset{{Name: "a"}, {Name: "b"}, {Name: "c"}})

	if got := lib.Next("c").Name; got != "a" {
		t.Errorf("expected wrap to a, got %s", got)
	}
	if got := lib.Prev("a").Name; got != "c" {
		t.Errorf("expected wrap to c, got %s", got)
	}
	if got := lib.Next("unknown").Name; got != "a" {
		t.Errorf("expected a for unknown name, got %s", got)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		if lib.Random(rng, "b").Name == "b" {
			t.Fatal("random should skip the excluded preset")
		}
	}
}

type loadRecord struct {
	name  string
	blend float64
}

func newRecordingCycler(opts CyclerOptions) (*Cycler, *[]loadRecord) {
	lib, _ := NewLibrary([]Preset{{Name: "a"}, {Name: "b"}, {Name: "c"}})
	var loads []loadRecord
	c := NewCycler(lib, func(p Preset, blend float64) {
		loads = append(loads, loadRecord{p.Name, blend})
	}, opts)
	return c, &loads
}

func TestCyclerManualNavigation(t *testing.T) {
	c, loads := newRecordingCycler(CyclerOptions{})
	now := time.Unix(0, 0)

	c.Start("", now)
	c.Next(now)
	c.Next(now)
	c.Prev(now)

	want := []loadRecord{
		{"a", InitialBlend},
		{"b", ManualBlend},
		{"c", ManualBlend},
		{"b", PrevBlend},
	}
	if len(*loads) != len(want) {
		t.Fatalf("expected %v, got %v", want, *loads)
	}
	for i := range want {
		if (*loads)[i] != want[i] {
			t.Errorf("load %d: expected %v, got %v", i, want[i], (*loads)[i])
		}
	}
	if c.Current() != "b" {
		t.Errorf("expected current b, got %s", c.Current())
	}
}

func TestCyclerSelect(t *testing.T) {
	c, loads := newRecordingCycler(CyclerOptions{})
	now := time.Unix(0, 0)
	c.Start("a", now)

	if err := c.Select("c", now); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if err := c.Select("zzz", now); !errors.Is(err, ErrUnknownVisualPreset) {
		t.Errorf("expected ErrUnknownVisualPreset, got %v", err)
	}
	c.Prev(now)

	if c.Current() != "a" {
		t.Errorf("expected history to return to a, got %s", c.Current())
	}
	if len(*loads) != 3 {
		t.Errorf("expected 3 loads, got %v", *loads)
	}
}

func TestCyclerAutoAdvance(t *testing.T) {
	c, loads := newRecordingCycler(CyclerOptions{Cycle: true, Interval: 15 * time.Second})
	start := time.Unix(100, 0)
	c.Start("a", start)

	if c.Tick(start.Add(14 * time.Second)) {
		t.Error("should not advance before the interval")
	}
	if !c.Tick(start.Add(15 * time.Second)) {
		t.Fatal("expected advance at the interval")
	}
	last := (*loads)[len(*loads)-1]
	if last.name != "b" || last.blend != AutoBlend {
		t.Errorf("expected b with auto blend, got %v", last)
	}

	// the timer restarts after each switch
	if c.Tick(start.Add(20 * time.Second)) {
		t.Error("should wait a full interval after the last switch")
	}

	c.SetCycle(false)
	if c.Tick(start.Add(time.Hour)) {
		t.Error("disabled cycling should not advance")
	}
}

func TestCyclerRandomMode(t *testing.T) {
	c, _ := newRecordingCycler(CyclerOptions{Random: true, Seed: 3})
	now := time.Unix(0, 0)
	c.Start("a", now)

	for i := 0; i < 20; i++ {
		prev := c.Current()
		c.Next(now)
		if c.Current() == prev {
			t.Fatalf("random advance repeated %s", prev)
		}
	}
}
