package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/glorpus-work/pindex/pkg/config"
	"github.com/glorpus-work/pindex/pkg/logger"
)

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	NoColor      *bool
	OutputFormat *string
)

// loadConfig resolves the configuration file and applies the global CLI
// flag overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
	}
	if NoColor != nil && *NoColor {
		cfg.Settings.NoColor = true
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	logger.InitLogger(cfg.Settings.LogLevel, cfg.Settings.NoColor)
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path makes LoadConfig fall back to defaults, which
		// produces a clearer error later than failing here would.
		logger.Warn("Failed to get default config path, using empty path", logrus.Fields{"error": err})
		return ""
	}
	return defaultPath
}
