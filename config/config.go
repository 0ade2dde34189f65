// Package config loads remediation settings from YAML or TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/wudi/tagremedy/issue"
)

// Config holds the full remediation configuration.
type Config struct {
	DefaultLang string           `yaml:"default_lang" toml:"default_lang"`
	MaxPasses   int              `yaml:"max_passes" toml:"max_passes"`
	Jobs        int              `yaml:"jobs" toml:"jobs"`
	Disabled    []string         `yaml:"disabled" toml:"disabled"`
	Lists       ListConfig       `yaml:"lists" toml:"lists"`
	Decorative  DecorativeConfig `yaml:"decorative" toml:"decorative"`
	Artifacts   ArtifactConfig   `yaml:"artifacts" toml:"artifacts"`
	Scripts     []ScriptRule     `yaml:"scripts" toml:"scripts"`
	Ledger      LedgerConfig     `yaml:"ledger" toml:"ledger"`
}

// ListConfig tunes bullet-aligned list detection.
type ListConfig struct {
	BulletTolerance   float64 `yaml:"bullet_tolerance" toml:"bullet_tolerance"`
	LineHeightCeiling float64 `yaml:"line_height_ceiling" toml:"line_height_ceiling"`
	MinRun            int     `yaml:"min_run" toml:"min_run"`
}

// DecorativeConfig bounds images treated as decoration.
type DecorativeConfig struct {
	MaxWidth  float64 `yaml:"max_width" toml:"max_width"`
	MaxHeight float64 `yaml:"max_height" toml:"max_height"`
}

// ArtifactConfig adds patterns for running headers and footers.
type ArtifactConfig struct {
	Patterns []string `yaml:"patterns" toml:"patterns"`
}

// ScriptRule is a document-level rule written in JavaScript. The script
// evaluates to true (pass), false (fail with Message) or a string (fail with
// that string).
type ScriptRule struct {
	Name      string `yaml:"name" toml:"name"`
	Severity  string `yaml:"severity" toml:"severity"`
	Message   string `yaml:"message" toml:"message"`
	Source    string `yaml:"source" toml:"source"`
	TimeoutMS int    `yaml:"timeout_ms" toml:"timeout_ms"`
}

// LedgerConfig locates the batch results database.
type LedgerConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Default returns sane defaults.
func Default() *Config {
	return &Config{
		DefaultLang: "en-US",
		MaxPasses:   2,
		Jobs:        4,
		Lists: ListConfig{
			BulletTolerance:   3.0,
			LineHeightCeiling: 24.0,
			MinRun:            2,
		},
		Decorative: DecorativeConfig{MaxWidth: 30, MaxHeight: 30},
		Ledger:     LedgerConfig{Path: "tagremedy.db"},
	}
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported extension (use .yaml, .yml or .toml)", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if c.DefaultLang != "" {
		if _, err := language.Parse(c.DefaultLang); err != nil {
			return fmt.Errorf("default_lang %q: %w", c.DefaultLang, err)
		}
	}
	if c.MaxPasses < 1 {
		return fmt.Errorf("max_passes must be >= 1")
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be >= 1")
	}
	if c.Lists.BulletTolerance <= 0 {
		return fmt.Errorf("lists.bullet_tolerance must be > 0")
	}
	if c.Lists.LineHeightCeiling <= 0 {
		return fmt.Errorf("lists.line_height_ceiling must be > 0")
	}
	if c.Lists.MinRun < 2 {
		return fmt.Errorf("lists.min_run must be >= 2")
	}
	if c.Decorative.MaxWidth <= 0 || c.Decorative.MaxHeight <= 0 {
		return fmt.Errorf("decorative.max_width and decorative.max_height must be > 0")
	}
	for i, p := range c.Artifacts.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("artifacts.patterns[%d]: %w", i, err)
		}
	}
	seen := make(map[string]bool)
	for i, s := range c.Scripts {
		if s.Name == "" {
			return fmt.Errorf("scripts[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("scripts[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		if strings.TrimSpace(s.Source) == "" {
			return fmt.Errorf("scripts[%d]: source is required", i)
		}
		if s.Severity != "" {
			if _, err := issue.ParseSeverity(s.Severity); err != nil {
				return fmt.Errorf("scripts[%d]: %w", i, err)
			}
		}
		if s.TimeoutMS < 0 {
			return fmt.Errorf("scripts[%d]: timeout_ms must be >= 0", i)
		}
	}
	return nil
}

// Enabled reports whether the rule called name is not disabled.
func (c *Config) Enabled(name string) bool {
	for _, d := range c.Disabled {
		if d == name {
			return false
		}
	}
	return true
}
