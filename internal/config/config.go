// ABOUTME: Application configuration loaded from YAML, environment and flags
// ABOUTME: Later sources override earlier ones: defaults, file, RADIODECK_* env, then flags
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/radiodeck/pkg/dynamics"
	"github.com/Resonate-Protocol/radiodeck/pkg/radio"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "RADIODECK_"

// Config is the full application configuration
type Config struct {
	Stations   []radio.Station  `yaml:"stations"`
	Compressor CompressorConfig `yaml:"compressor"`
	Visualizer VisualizerConfig `yaml:"visualizer"`
	Audio      AudioConfig      `yaml:"audio"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Log        LogConfig        `yaml:"log"`

	// MetricsAddr serves /metrics when set
	MetricsAddr string `yaml:"metrics_addr"`
}

// CompressorConfig selects and extends compressor presets
type CompressorConfig struct {
	Default string            `yaml:"default"`
	Ramp    time.Duration     `yaml:"ramp"`
	Presets []dynamics.Preset `yaml:"presets"`
}

// VisualizerConfig controls the spectrum display
type VisualizerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	PresetFile string        `yaml:"preset_file"`
	Initial    string        `yaml:"initial"`
	Cycle      bool          `yaml:"cycle"`
	Random     bool          `yaml:"random"`
	Interval   time.Duration `yaml:"interval"`
	FPS        int           `yaml:"fps"`
}

// AudioConfig controls the output and stream buffering
type AudioConfig struct {
	SampleRate    int           `yaml:"sample_rate"`
	Channels      int           `yaml:"channels"`
	Volume        int           `yaml:"volume"`
	BufferSeconds float64       `yaml:"buffer_seconds"`
	PlayTimeout   time.Duration `yaml:"play_timeout"`
}

// DiscoveryConfig controls LAN stream discovery
type DiscoveryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Service string        `yaml:"service"`
	Domain  string        `yaml:"domain"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Stations: []radio.Station{
			{Name: "Groove Salad", URL: "https://ice1.somafm.com/groovesalad-128-mp3"},
			{Name: "Drone Zone", URL: "https://ice1.somafm.com/dronezone-128-mp3"},
			{Name: "Secret Agent", URL: "https://ice1.somafm.com/secretagent-128-mp3"},
			{Name: "Deep Space One", URL: "https://ice1.somafm.com/deepspaceone-128-mp3"},
		},
		Compressor: CompressorConfig{
			Default: dynamics.Medium,
			Ramp:    300 * time.Millisecond,
		},
		Visualizer: VisualizerConfig{
			Enabled:  true,
			Cycle:    true,
			Interval: 15 * time.Second,
			FPS:      30,
		},
		Audio: AudioConfig{
			SampleRate:    48000,
			Channels:      2,
			Volume:        80,
			BufferSeconds: 4,
			PlayTimeout:   20 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled: false,
			Service: "_icecast._tcp",
			Domain:  "local",
			Timeout: 3 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			File:  "radiodeck.log",
		},
	}
}

// DefaultPath is the config file used when none is given
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "radiodeck.yaml"
	}
	return filepath.Join(dir, "radiodeck", "config.yaml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error when optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && optional:
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := cfg.Parse(data); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse overlays YAML onto cfg. A stations list in the document replaces
// the defaults rather than merging with them.
func (c *Config) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv applies RADIODECK_* overrides read through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("PRESET", &c.Compressor.Default)
	duration("PRESET_RAMP", &c.Compressor.Ramp)
	boolean("VISUALIZER", &c.Visualizer.Enabled)
	str("VISUALIZER_PRESET", &c.Visualizer.Initial)
	str("VISUALIZER_PRESET_FILE", &c.Visualizer.PresetFile)
	boolean("VISUALIZER_CYCLE", &c.Visualizer.Cycle)
	integer("SAMPLE_RATE", &c.Audio.SampleRate)
	integer("VOLUME", &c.Audio.Volume)
	boolean("DISCOVERY", &c.Discovery.Enabled)
	str("DISCOVERY_SERVICE", &c.Discovery.Service)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("METRICS_ADDR", &c.MetricsAddr)

	if v, ok := lookup(EnvPrefix + "STATION_URL"); ok && v != "" {
		name := v
		if n, ok := lookup(EnvPrefix + "STATION_NAME"); ok && n != "" {
			name = n
		}
		c.Stations = append([]radio.Station{{Name: name, URL: v}}, c.Stations...)
	}

	return errors.Join(errs...)
}

// Validate checks ranges and fills zero values with defaults
func (c *Config) Validate() error {
	def := Default()

	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = def.Audio.Channels
	}
	if c.Audio.BufferSeconds <= 0 {
		c.Audio.BufferSeconds = def.Audio.BufferSeconds
	}
	if c.Audio.PlayTimeout <= 0 {
		c.Audio.PlayTimeout = def.Audio.PlayTimeout
	}
	if c.Visualizer.FPS <= 0 {
		c.Visualizer.FPS = def.Visualizer.FPS
	}
	if c.Visualizer.Interval <= 0 {
		c.Visualizer.Interval = def.Visualizer.Interval
	}
	if c.Discovery.Service == "" {
		c.Discovery.Service = def.Discovery.Service
	}
	if c.Discovery.Domain == "" {
		c.Discovery.Domain = def.Discovery.Domain
	}
	if c.Discovery.Timeout <= 0 {
		c.Discovery.Timeout = def.Discovery.Timeout
	}
	if c.Compressor.Default == "" {
		c.Compressor.Default = def.Compressor.Default
	}

	var errs []error
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d out of range", c.Audio.SampleRate))
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels))
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		errs = append(errs, fmt.Errorf("audio.volume %d out of range 0-100", c.Audio.Volume))
	}
	for i, s := range c.Stations {
		if strings.TrimSpace(s.URL) == "" {
			errs = append(errs, fmt.Errorf("stations[%d] %q has no url", i, s.Name))
		}
	}

	store, err := c.PresetStore()
	if err != nil {
		errs = append(errs, err)
	} else if _, err := store.Get(c.Compressor.Default); err != nil {
		errs = append(errs, fmt.Errorf("compressor.default: %w", err))
	}

	return errors.Join(errs...)
}

// PresetStore builds the compressor preset store including configured presets
func (c *Config) PresetStore() (*dynamics.Store, error) {
	store, err := dynamics.NewStore(c.Compressor.Presets...)
	if err != nil {
		return nil, fmt.Errorf("compressor.presets: %w", err)
	}
	return store, nil
}

// Station finds a station by case-insensitive name, or by 1-based index
func (c *Config) Station(key string) (radio.Station, bool) {
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(c.Stations) {
		return c.Stations[n-1], true
	}
	for _, s := range c.Stations {
		if strings.EqualFold(s.Name, key) {
			return s, true
		}
	}
	return radio.Station{}, false
}
