// Package config provides the configuration for the talkbox CLI.
//
// Configuration lives in a single YAML file under os.UserConfigDir():
//
//	~/Library/Application Support/talkbox/config.yaml   (macOS)
//	~/.config/talkbox/config.yaml                       (Linux)
//	%AppData%/talkbox/config.yaml                       (Windows)
//
// An absent file yields the defaults; a present file overrides field by
// field. The conversation database lives next to it under data/ unless
// data_dir points elsewhere.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

const (
	appDir     = "talkbox"
	configFile = "config.yaml"
	dataSubdir = "data"
)

// Config is the talkbox CLI configuration.
type Config struct {
	// Endpoint is the conversational exchange service URL.
	Endpoint string `yaml:"endpoint"`

	// Token is the bearer token sent with exchange requests. Optional.
	Token string `yaml:"token,omitempty"`

	// HistoryLimit bounds the persisted conversation log. Zero means the
	// library default.
	HistoryLimit int `yaml:"history_limit,omitempty"`

	// Session names the conversation log to use. Empty means "default".
	Session string `yaml:"session,omitempty"`

	// DataDir is where the conversation database lives. Empty means
	// data/ under the config directory.
	DataDir string `yaml:"data_dir,omitempty"`

	// Muted disables speech output at startup.
	Muted bool `yaml:"muted,omitempty"`

	// Dir is the config directory the file was loaded from. Not persisted.
	Dir string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Endpoint: "http://localhost:5000/chat",
	}
}

// Load reads the configuration from the default location. A missing file
// is not an error; the defaults apply.
func Load() (*Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return LoadFrom(filepath.Join(base, appDir))
}

// LoadFrom reads the configuration from a specific directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Join(dir, configFile), err)
	}
	return cfg, nil
}

// Save writes the configuration back to its directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(c.Dir, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ResolveDataDir returns the directory for the conversation database,
// creating it if needed.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		dir = filepath.Join(c.Dir, dataSubdir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}
