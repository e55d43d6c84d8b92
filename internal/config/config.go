// Package config loads optional TOML configuration for the CLI.
// Core packages take every knob as an explicit argument; this layer
// only supplies command-line defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Optimize carries image optimization defaults.
type Optimize struct {
	MaxWidth  int  `toml:"max_width"`
	MaxHeight int  `toml:"max_height"`
	Quality   int  `toml:"quality"`
	NoResize  bool `toml:"no_resize"`
}

// EPUB carries EPUB writer defaults.
type EPUB struct {
	Version string `toml:"version"`
}

// Logging carries CLI log output settings.
type Logging struct {
	Level string `toml:"level"`
}

// Config holds all CLI defaults.
type Config struct {
	Optimize Optimize `toml:"optimize"`
	EPUB     EPUB     `toml:"epub"`
	Logging  Logging  `toml:"logging"`
}

// Default returns the built-in defaults used when no file exists.
func Default() *Config {
	return &Config{
		Optimize: Optimize{
			MaxWidth:  1200,
			MaxHeight: 1600,
			Quality:   80,
		},
		EPUB:    EPUB{Version: "3.0"},
		Logging: Logging{Level: "info"},
	}
}

// DefaultPath returns the conventional config location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "folio", "config.toml"), nil
}

// Load reads the file at path, or at the default location when path
// is empty. A missing file yields the defaults without error; a file
// that exists but does not parse is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Optimize.Quality < 1 || c.Optimize.Quality > 100 {
		return fmt.Errorf("optimize.quality must be between 1 and 100, got %d", c.Optimize.Quality)
	}
	if c.Optimize.MaxWidth < 0 || c.Optimize.MaxHeight < 0 {
		return fmt.Errorf("optimize bounds must not be negative")
	}
	switch c.EPUB.Version {
	case "2.0", "3.0":
	default:
		return fmt.Errorf("epub.version must be 2.0 or 3.0, got %q", c.EPUB.Version)
	}
	return nil
}
