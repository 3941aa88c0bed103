// Package config provides configuration management for the pindex server.
// It handles loading, validating, and saving application settings. The
// package supports YAML configuration files and provides sensible defaults
// while allowing customization through a configuration file and CLI flags.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/pindex/pkg/errors"
	"github.com/glorpus-work/pindex/pkg/fsutil"
	"github.com/glorpus-work/pindex/pkg/hook"
)

// Default configuration values.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultRefreshInterval = 0 // periodic rescans disabled
	DefaultLogLevel        = "info"
	DefaultFallbackURL     = "https://pypi.org/simple/"
	ManifestFilename       = ".pindex-manifest.json"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Refresh RefreshConfig `yaml:"refresh"`

	// Hooks maps a catalog event to a Tengo script path.
	Hooks map[string]string `yaml:"hooks,omitempty"`

	Settings Settings `yaml:"settings"`
}

// ServerConfig configures the HTTP listener and upload policy.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// WelcomeMessage is shown on the landing page when set.
	WelcomeMessage string `yaml:"welcome_message,omitempty"`

	// AllowOverwrite permits uploads to replace an existing filename.
	AllowOverwrite bool `yaml:"allow_overwrite"`

	// FallbackURL is the upstream simple index that unknown project
	// requests are redirected to.
	FallbackURL string `yaml:"fallback_url,omitempty"`

	// DisableFallback turns the unknown-project redirect off, making
	// unknown projects a plain 404.
	DisableFallback bool `yaml:"disable_fallback"`

	// CacheControl, when positive, is the max-age in seconds set on
	// package downloads.
	CacheControl int `yaml:"cache_control,omitempty"`
}

// StorageConfig locates the artifact files to serve.
type StorageConfig struct {
	// RootDir is the directory holding the distribution files.
	RootDir string `yaml:"root_dir"`

	// Recursive also scans subdirectories of RootDir.
	Recursive bool `yaml:"recursive"`
}

// RefreshConfig controls when the catalog re-reads storage.
type RefreshConfig struct {
	// Interval between safety-net rescans; 0 disables them.
	Interval time.Duration `yaml:"interval"`

	// StateDir holds the scan manifest; empty disables persistence.
	StateDir string `yaml:"state_dir,omitempty"`
}

// UnmarshalYAML accepts the interval as a duration string ("5m", "1h30m").
func (r *RefreshConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Interval string `yaml:"interval"`
		StateDir string `yaml:"state_dir"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.StateDir = raw.StateDir
	if raw.Interval == "" {
		r.Interval = 0
		return nil
	}
	d, err := time.ParseDuration(raw.Interval)
	if err != nil {
		return fmt.Errorf("invalid refresh interval %q: %w", raw.Interval, err)
	}
	r.Interval = d
	return nil
}

// MarshalYAML renders the interval back as a duration string.
func (r RefreshConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Interval string `yaml:"interval"`
		StateDir string `yaml:"state_dir,omitempty"`
	}{
		Interval: r.Interval.String(),
		StateDir: r.StateDir,
	}, nil
}

// Settings represents general application settings.
type Settings struct {
	LogLevel     string `yaml:"log_level"`     // panic, fatal, error, warn, info, debug, trace
	NoColor      bool   `yaml:"no_color"`      // disable colored log output
	OutputFormat string `yaml:"output_format"` // text, json (CLI output)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	stateDir := ""
	if cacheDir, err := os.UserCacheDir(); err == nil {
		stateDir = filepath.Join(cacheDir, "pindex")
	}
	return &Config{
		Server: ServerConfig{
			Host:        DefaultHost,
			Port:        DefaultPort,
			FallbackURL: DefaultFallbackURL,
		},
		Storage: StorageConfig{
			RootDir: "packages",
		},
		Refresh: RefreshConfig{
			Interval: DefaultRefreshInterval,
			StateDir: stateDir,
		},
		Settings: Settings{
			LogLevel:     DefaultLogLevel,
			OutputFormat: "text",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults rather than an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}
	return &config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}
	if err := fsutil.EnsureDir(filepath.Dir(absPath)); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	if _, err := fsutil.AtomicWrite(absPath, strings.NewReader(string(data))); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	return nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.FallbackURL == "" {
		c.Server.FallbackURL = defaults.Server.FallbackURL
	}
	if c.Storage.RootDir == "" {
		c.Storage.RootDir = defaults.Storage.RootDir
	}
	if c.Refresh.StateDir == "" {
		c.Refresh.StateDir = defaults.Refresh.StateDir
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.Settings.OutputFormat
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Storage.RootDir == "" {
		return fmt.Errorf("storage root_dir cannot be empty")
	}
	if c.Refresh.Interval < 0 {
		return fmt.Errorf("refresh interval cannot be negative")
	}
	if c.Server.CacheControl < 0 {
		return fmt.Errorf("cache_control cannot be negative")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Settings.OutputFormat] {
		return fmt.Errorf("invalid output format: %s", c.Settings.OutputFormat)
	}
	validLevels := map[string]bool{
		"panic": true, "fatal": true, "error": true, "warn": true,
		"info": true, "debug": true, "trace": true,
	}
	if !validLevels[strings.ToLower(c.Settings.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.Settings.LogLevel)
	}
	for event := range c.Hooks {
		switch hook.Event(event) {
		case hook.PackageAdded, hook.PackageRemoved, hook.IndexRefreshed:
		default:
			return fmt.Errorf("unknown hook event: %s", event)
		}
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ManifestPath returns the scan manifest location, or "" when state
// persistence is disabled.
func (c *Config) ManifestPath() string {
	if c.Refresh.StateDir == "" {
		return ""
	}
	return filepath.Join(c.Refresh.StateDir, ManifestFilename)
}

// HookScripts converts the configured hook map into typed events.
func (c *Config) HookScripts() map[hook.Event]string {
	if len(c.Hooks) == 0 {
		return nil
	}
	scripts := make(map[hook.Event]string, len(c.Hooks))
	for event, path := range c.Hooks {
		scripts[hook.Event(event)] = path
	}
	return scripts
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "pindex", "config.yaml"), nil
}
