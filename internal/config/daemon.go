package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/bubbleshell/internal/geometry"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Try parsing as integer (milliseconds)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for bubbleshelld.
// Loaded from ~/.config/bubbleshell/bubbleshelld.toml
type DaemonConfig struct {
	Placement   PlacementConfig   `toml:"placement"`
	Snap        SnapConfig        `toml:"snap"`
	Panel       PanelConfig       `toml:"panel"`
	Favicon     FaviconConfig     `toml:"favicon"`
	Persistence PersistenceConfig `toml:"persistence"`
	Behavior    BehaviorConfig    `toml:"behavior"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

// PlacementConfig contains bubble stacking settings.
type PlacementConfig struct {
	BubbleSize int `toml:"bubble_size"` // Bubble diameter in pixels
	Spacing    int `toml:"spacing"`     // Vertical distance between bubble origins
	PerColumn  int `toml:"per_column"`  // Bubbles per column before wrapping left
	Margin     int `toml:"margin"`      // Pixels from the top and right screen edges
	Gutter     int `toml:"gutter"`      // Gap between columns
}

// SnapConfig contains edge-snap settings applied when a bubble is dropped.
type SnapConfig struct {
	Threshold int `toml:"threshold"` // Pixels from an edge that still snap
	Inset     int `toml:"inset"`     // Pixels kept from the edge after snapping
}

// PanelConfig contains default expanded panel dimensions.
type PanelConfig struct {
	Width     int      `toml:"width"`
	Height    int      `toml:"height"`
	Animation Duration `toml:"animation"` // Exit animation before the bubble returns
}

// FaviconConfig contains favicon fetching settings.
type FaviconConfig struct {
	Enabled   bool     `toml:"enabled"`
	Timeout   Duration `toml:"timeout"`    // e.g., "5s"
	MaxBytes  int64    `toml:"max_bytes"`  // Largest icon accepted
	UserAgent string   `toml:"user_agent"` // Sent with every request
}

// PersistenceConfig contains session file settings.
type PersistenceConfig struct {
	Path string `toml:"path"` // Empty = $XDG_DATA_HOME/bubbleshell/sessions.json
}

// BehaviorConfig contains behavior settings.
type BehaviorConfig struct {
	DefaultURL     string `toml:"default_url"`      // Loaded by bubbles created without a URL
	RestoreOnStart bool   `toml:"restore_on_start"` // Recreate saved bubbles at startup
}

// MetricsConfig contains prometheus exporter settings.
type MetricsConfig struct {
	Listen string `toml:"listen"` // e.g. "127.0.0.1:9464"; empty disables the exporter
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Placement: PlacementConfig{
			BubbleSize: geometry.DefaultBubbleSize,
			Spacing:    geometry.DefaultSpacing,
			PerColumn:  geometry.DefaultPerColumn,
			Margin:     geometry.DefaultMargin,
			Gutter:     geometry.DefaultGutter,
		},
		Snap: SnapConfig{
			Threshold: geometry.DefaultSnapThreshold,
			Inset:     geometry.DefaultSnapInset,
		},
		Panel: PanelConfig{
			Width:     480,
			Height:    720,
			Animation: Duration(200 * time.Millisecond),
		},
		Favicon: FaviconConfig{
			Enabled:   true,
			Timeout:   Duration(5 * time.Second),
			MaxBytes:  512 * 1024,
			UserAgent: "bubbleshell/1.0",
		},
		Behavior: BehaviorConfig{
			DefaultURL:     "about:blank",
			RestoreOnStart: true,
		},
	}
}

// Geometry returns the placement settings in the form used by the geometry package.
func (c *DaemonConfig) Geometry() geometry.PlacementConfig {
	return geometry.PlacementConfig{
		BubbleSize: c.Placement.BubbleSize,
		Spacing:    c.Placement.Spacing,
		PerColumn:  c.Placement.PerColumn,
		Margin:     c.Placement.Margin,
		Gutter:     c.Placement.Gutter,
	}
}

// SnapGeometry returns the snap settings in the form used by the geometry package.
func (c *DaemonConfig) SnapGeometry() geometry.SnapConfig {
	return geometry.SnapConfig{
		Threshold: c.Snap.Threshold,
		Inset:     c.Snap.Inset,
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "bubbleshell", "bubbleshelld.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from the default path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig() (*DaemonConfig, error) {
	path, err := DaemonConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadDaemonConfigFrom(path)
}

// LoadDaemonConfigFrom loads the daemon configuration from path.
func LoadDaemonConfigFrom(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to path.
func SaveDaemonConfig(config *DaemonConfig, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	p := c.Placement
	if p.BubbleSize < 16 || p.BubbleSize > 256 {
		return fmt.Errorf("bubble_size must be between 16 and 256, got %d", p.BubbleSize)
	}
	if p.Spacing < p.BubbleSize {
		return fmt.Errorf("spacing (%d) must be at least bubble_size (%d)", p.Spacing, p.BubbleSize)
	}
	if p.PerColumn < 1 || p.PerColumn > 64 {
		return fmt.Errorf("per_column must be between 1 and 64, got %d", p.PerColumn)
	}
	if p.Margin < 0 || p.Gutter < 0 {
		return fmt.Errorf("margin and gutter must not be negative")
	}

	if c.Snap.Threshold < 0 || c.Snap.Inset < 0 {
		return fmt.Errorf("snap threshold and inset must not be negative")
	}

	if c.Panel.Width < 200 || c.Panel.Height < 200 {
		return fmt.Errorf("panel must be at least 200x200, got %dx%d", c.Panel.Width, c.Panel.Height)
	}
	if c.Panel.Animation.Duration() < 0 || c.Panel.Animation.Duration() > 5*time.Second {
		return fmt.Errorf("panel animation must be between 0 and 5s, got %s", c.Panel.Animation.Duration())
	}

	if c.Favicon.Enabled {
		if c.Favicon.Timeout.Duration() <= 0 {
			return fmt.Errorf("favicon timeout must be positive")
		}
		if c.Favicon.MaxBytes <= 0 {
			return fmt.Errorf("favicon max_bytes must be positive, got %d", c.Favicon.MaxBytes)
		}
	}

	if c.Behavior.DefaultURL != "" {
		if _, err := url.Parse(c.Behavior.DefaultURL); err != nil {
			return fmt.Errorf("invalid default_url: %w", err)
		}
	}

	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return fmt.Errorf("invalid metrics listen address %q: %w", c.Metrics.Listen, err)
		}
	}

	return nil
}
