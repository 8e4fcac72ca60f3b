// Package config handles loading and saving treeline configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/treeline/config.yaml
//   - State:   ~/.local/state/treeline/ (view state cache)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the engine defaults the viewer boots with.
type EngineConfig struct {
	// SelectionMode: "none", "single", "multi", "hierarchical"
	SelectionMode string `yaml:"selection_mode,omitempty"`
	// SelectionPolicy: "keep" or "clear-hidden" controls what filtering does to
	// selections that become invisible
	SelectionPolicy string `yaml:"selection_policy,omitempty"`
	// ShowParentsOfMatches keeps ancestors of filter matches visible
	ShowParentsOfMatches *bool `yaml:"show_parents_of_matches,omitempty"`
	// AutoExpandMatches expands ancestor paths of filter matches
	AutoExpandMatches bool `yaml:"auto_expand_matches,omitempty"`
	// PageSize overrides the source's preferred page size when > 0
	PageSize int `yaml:"page_size,omitempty"`
}

// UIConfig holds viewer preference settings.
type UIConfig struct {
	ShowIcons     bool `yaml:"show_icons,omitempty"`      // Render adapter icons in rows
	ShowStatusBar bool `yaml:"show_status_bar,omitempty"` // Row/selection counts at the bottom
	IndentWidth   int  `yaml:"indent_width,omitempty"`    // Spaces per tree level (default 2)
}

// WatchConfig controls source file watching.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled,omitempty"`
	DebounceMs int  `yaml:"debounce_ms,omitempty"` // Default 250
}

// Config is the top-level configuration for treeline.
type Config struct {
	Engine EngineConfig `yaml:"engine,omitempty"`
	UI     UIConfig     `yaml:"ui,omitempty"`
	Watch  WatchConfig  `yaml:"watch,omitempty"`

	// Pins are node ids rendered above the tree regardless of expansion or
	// filter state.
	Pins []string `yaml:"pins,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			SelectionMode:   "multi",
			SelectionPolicy: "keep",
		},
		UI: UIConfig{
			ShowIcons:     true,
			ShowStatusBar: true,
			IndentWidth:   2,
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMs: 250,
		},
	}
}

// ConfigDir returns the XDG config directory for treeline.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "treeline")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "treeline")
}

// StateDir returns the XDG state directory for treeline.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "treeline")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "treeline")
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

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
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

// NormalizedSelectionMode folds case and validates the configured mode,
// falling back to "multi" for unknown values.
func (c Config) NormalizedSelectionMode() string {
	switch strings.ToLower(c.Engine.SelectionMode) {
	case "none", "single", "multi", "hierarchical":
		return strings.ToLower(c.Engine.SelectionMode)
	default:
		return "multi"
	}
}

// NormalizedSelectionPolicy folds case and validates the configured policy,
// falling back to "keep".
func (c Config) NormalizedSelectionPolicy() string {
	switch strings.ToLower(c.Engine.SelectionPolicy) {
	case "keep", "clear-hidden":
		return strings.ToLower(c.Engine.SelectionPolicy)
	default:
		return "keep"
	}
}
