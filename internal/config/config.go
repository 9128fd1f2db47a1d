// Package config loads the host's optional YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "USERSCRIPT_MANAGER_CONFIG"

// Config is the on-disk configuration.  Every field is optional.
type Config struct {
	ScriptsDir string `yaml:"scripts_dir"`

	// Debounce is the quiet period before a directory change is pushed,
	// as a Go duration string.
	Debounce string `yaml:"debounce"`

	Watch struct {
		// Mode is "auto" (kernel notifications where available) or "poll".
		Mode         string `yaml:"mode"`
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"watch"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`

	// Parsed from the strings above by Load.
	DebounceInterval time.Duration `yaml:"-"`
	PollInterval     time.Duration `yaml:"-"`
}

// DefaultPath returns the config path: $USERSCRIPT_MANAGER_CONFIG if set,
// otherwise ~/.config/userscript-manager/config.yaml.
func DefaultPath(home string) string {
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return filepath.Join(home, ".config", "userscript-manager", "config.yaml")
}

// Load reads the config at path.  A missing file is not an error: the
// defaults are returned instead.  home is used for defaults and to expand a
// leading "~".
func Load(path, home string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = filepath.Join(home, "Public", "Scripts")
	}
	if cfg.Debounce == "" {
		cfg.Debounce = "100ms"
	}
	if cfg.Watch.Mode == "" {
		cfg.Watch.Mode = "auto"
	}
	if cfg.Watch.PollInterval == "" {
		cfg.Watch.PollInterval = "500ms"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(home, ".local", "share", "userscript-manager.log")
	}

	cfg.ScriptsDir = expandHome(cfg.ScriptsDir, home)
	cfg.Log.File = expandHome(cfg.Log.File, home)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	if c.DebounceInterval, err = time.ParseDuration(c.Debounce); err != nil {
		return fmt.Errorf("debounce: %w", err)
	}
	if c.DebounceInterval < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	if c.PollInterval, err = time.ParseDuration(c.Watch.PollInterval); err != nil {
		return fmt.Errorf("watch.poll_interval: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("watch.poll_interval must be positive, got %s", c.Watch.PollInterval)
	}
	switch c.Watch.Mode {
	case "auto", "poll":
	default:
		return fmt.Errorf("watch.mode must be auto or poll, got %q", c.Watch.Mode)
	}
	if !filepath.IsAbs(c.ScriptsDir) {
		return fmt.Errorf("scripts_dir must be absolute, got %q", c.ScriptsDir)
	}
	return nil
}

// expandHome replaces a leading "~" with home.
func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
