package config

import (
	"errors"
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
		cfg.resolveScenePath(filepath.Dir(configPath))
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the renderer cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		errs = append(errs, fmt.Errorf("graphics size %dx%d must be positive", c.Graphics.Width, c.Graphics.Height))
	}
	if r := c.Shadow.Resolution; r <= 0 || r&(r-1) != 0 {
		errs = append(errs, fmt.Errorf("shadow resolution %d must be a positive power of two", r))
	}
	lc := c.Shadow.LightCamera
	if lc.YFov <= 0 || lc.YFov >= gomath.Pi {
		errs = append(errs, fmt.Errorf("light camera yfov %v out of range (0, pi)", lc.YFov))
	}
	if lc.ZNear <= 0 || lc.ZFar <= lc.ZNear {
		errs = append(errs, fmt.Errorf("light camera clip range [%v, %v] invalid", lc.ZNear, lc.ZFar))
	}
	if c.Scene.Path == "" {
		errs = append(errs, errors.New("scene path is empty"))
	}
	return errors.Join(errs...)
}

// resolveScenePath makes a relative scene path relative to the config file.
func (c *Config) resolveScenePath(baseDir string) {
	if c.Scene.Path == "" || filepath.IsAbs(c.Scene.Path) {
		return
	}
	c.Scene.Path = filepath.Join(baseDir, c.Scene.Path)
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./rotorview.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "RotorView")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "RotorView")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "rotorview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "rotorview")
	}
}

// loadFromFile merges a YAML file over the values already in cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
