// Package config loads bundle manager settings from a TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// UserBundlesDirName is the directory under the user's documents directory
// that holds user bundles.
const UserBundlesDirName = "Rubles"

// DefaultDebounce is the default delay between a filesystem change and the
// reload it triggers.
const DefaultDebounce = 500 * time.Millisecond

// Config holds the bundle search paths and related settings.
type Config struct {
	// ApplicationBundlesPath is the root of bundles shipped with the
	// application.  Empty disables the application tier.
	ApplicationBundlesPath string `toml:"application_bundles_path"`
	// UserBundlesPath is the root of the user's own bundles.
	UserBundlesPath string `toml:"user_bundles_path"`
	// ProjectRoots lists project directories.  Bundles are read from the
	// "bundles" subdirectory of each.
	ProjectRoots []string `toml:"project_roots"`
	// ContributedLoadPaths are extra library directories available to every
	// script.
	ContributedLoadPaths []string `toml:"contributed_load_paths"`
	// LogLevel is a zerolog level name.
	LogLevel string `toml:"log_level"`
	Watch    Watch  `toml:"watch"`
}

// Watch configures the filesystem watcher.
type Watch struct {
	// DebounceMillis is the quiet period before changed scripts are
	// reloaded.
	DebounceMillis int `toml:"debounce_ms"`
	// Ignore lists doublestar patterns, relative to a watched root, whose
	// changes are ignored.
	Ignore []string `toml:"ignore"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		UserBundlesPath: filepath.Join(xdg.UserDirs.Documents, UserBundlesDirName),
		LogLevel:        zerolog.InfoLevel.String(),
		Watch: Watch{
			DebounceMillis: int(DefaultDebounce / time.Millisecond),
		},
	}
}

// LoadFile reads a TOML file over the defaults.  A missing file yields the
// defaults.
func LoadFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults.  Unknown keys are an error.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown configuration keys:\n%s", strict.String())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values and makes paths absolute.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Watch.DebounceMillis < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative: %d", c.Watch.DebounceMillis)
	}
	var err error
	if c.ApplicationBundlesPath, err = absPath(c.ApplicationBundlesPath); err != nil {
		return err
	}
	if c.UserBundlesPath, err = absPath(c.UserBundlesPath); err != nil {
		return err
	}
	for i, p := range c.ProjectRoots {
		if c.ProjectRoots[i], err = absPath(p); err != nil {
			return err
		}
	}
	for i, p := range c.ContributedLoadPaths {
		if c.ContributedLoadPaths[i], err = absPath(p); err != nil {
			return err
		}
	}
	return nil
}

// Debounce returns the watch debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p, err)
	}
	return abs, nil
}
