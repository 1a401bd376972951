// Package config handles loading and saving ov configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/orbview/config.yaml
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/orbview/pkg/geom"
	"github.com/vanderheijden86/orbview/pkg/model"
	"github.com/vanderheijden86/orbview/pkg/pulse"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// SceneConfig places the entities.
type SceneConfig struct {
	SphereRadius  float64 `yaml:"sphere_radius"`
	NodeMinOffset float64 `yaml:"node_min_offset"`
	NodeMaxOffset float64 `yaml:"node_max_offset"`
	RegionInset   float64 `yaml:"region_inset"`
}

// ConnectorConfig shapes the connectors.
type ConnectorConfig struct {
	Offset        float64 `yaml:"offset"`
	Bulge         float64 `yaml:"bulge"`
	Samples       int     `yaml:"samples"`
	MaxSegmentDeg float64 `yaml:"max_segment_deg"`
}

// PulseConfig drives the marker animation.
type PulseConfig struct {
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
	Increment float64 `yaml:"increment"`
	TickMS    int     `yaml:"tick_ms"`
}

// LabelConfig bounds label text.
type LabelConfig struct {
	MaxWidth int `yaml:"max_width"`
}

// SnapshotConfig sizes exported images.
type SnapshotConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Preset string `yaml:"preset,omitempty"` // compact, roomy
}

// Config is the top-level configuration for ov.
type Config struct {
	DataDir   string          `yaml:"data_dir,omitempty"`
	Seed      uint64          `yaml:"seed,omitempty"` // 0 = random placement
	Scene     SceneConfig     `yaml:"scene"`
	Connector ConnectorConfig `yaml:"connector"`
	Pulse     PulseConfig     `yaml:"pulse"`
	Labels    LabelConfig     `yaml:"labels"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	place := model.DefaultPlacement()
	conn := geom.DefaultBuilder()
	return Config{
		Scene: SceneConfig{
			SphereRadius:  place.SphereRadius,
			NodeMinOffset: place.NodeMinOffset,
			NodeMaxOffset: place.NodeMaxOffset,
			RegionInset:   place.RegionInset,
		},
		Connector: ConnectorConfig{
			Offset:        conn.Offset,
			Bulge:         conn.Bulge,
			Samples:       conn.Samples,
			MaxSegmentDeg: conn.MaxSegmentAngle * 180 / math.Pi,
		},
		Pulse: PulseConfig{
			Min:       pulse.DefaultMin,
			Max:       pulse.DefaultMax,
			Increment: pulse.DefaultIncrement,
			TickMS:    16,
		},
		Labels:   LabelConfig{MaxWidth: 24},
		Snapshot: SnapshotConfig{Width: 900, Height: 900, Preset: "compact"},
	}
}

// Validate reports the first setting that would make the scene unusable.
func (c Config) Validate() error {
	s := c.Scene
	switch {
	case !(s.SphereRadius > 0):
		return fmt.Errorf("%w: scene.sphere_radius must be positive", ErrInvalid)
	case s.NodeMinOffset < 0 || s.NodeMaxOffset < s.NodeMinOffset:
		return fmt.Errorf("%w: scene node offsets must satisfy 0 <= min <= max", ErrInvalid)
	case s.RegionInset < 0 || s.RegionInset >= s.SphereRadius:
		return fmt.Errorf("%w: scene.region_inset must be in [0, sphere_radius)", ErrInvalid)
	case !(c.Connector.Offset > 0):
		return fmt.Errorf("%w: connector.offset must be positive", ErrInvalid)
	case !(c.Connector.Bulge > 1):
		return fmt.Errorf("%w: connector.bulge must be greater than 1", ErrInvalid)
	case c.Connector.Samples < 30:
		return fmt.Errorf("%w: connector.samples must be at least 30", ErrInvalid)
	case !(c.Connector.MaxSegmentDeg > 0 && c.Connector.MaxSegmentDeg < 180):
		return fmt.Errorf("%w: connector.max_segment_deg must be in (0, 180)", ErrInvalid)
	case !(c.Pulse.Min > 0 && c.Pulse.Max > c.Pulse.Min):
		return fmt.Errorf("%w: pulse bounds must satisfy 0 < min < max", ErrInvalid)
	case !(c.Pulse.Increment > 0):
		return fmt.Errorf("%w: pulse.increment must be positive", ErrInvalid)
	case c.Pulse.TickMS <= 0:
		return fmt.Errorf("%w: pulse.tick_ms must be positive", ErrInvalid)
	case c.Snapshot.Width <= 0 || c.Snapshot.Height <= 0:
		return fmt.Errorf("%w: snapshot size must be positive", ErrInvalid)
	}
	return nil
}

// Placement converts the scene section for model.Build.
func (c Config) Placement() model.Placement {
	return model.Placement{
		SphereRadius:  c.Scene.SphereRadius,
		NodeMinOffset: c.Scene.NodeMinOffset,
		NodeMaxOffset: c.Scene.NodeMaxOffset,
		RegionInset:   c.Scene.RegionInset,
	}
}

// Builder converts the connector section.
func (c Config) Builder() geom.Builder {
	b := geom.DefaultBuilder()
	b.Offset = c.Connector.Offset
	b.Bulge = c.Connector.Bulge
	b.Samples = c.Connector.Samples
	b.MaxSegmentAngle = c.Connector.MaxSegmentDeg * math.Pi / 180
	return b
}

// PulseOptions converts the pulse section.
func (c Config) PulseOptions() pulse.Options {
	return pulse.Options{Min: c.Pulse.Min, Max: c.Pulse.Max, Increment: c.Pulse.Increment}
}

// TickInterval is the frame period of the pulse.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.Pulse.TickMS) * time.Millisecond
}

// ConfigDir returns the XDG config directory for ov.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "orbview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "orbview")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Missing keys keep their
// defaults; a missing file yields DefaultConfig.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
