package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/pindex/pkg/hook"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "packages", cfg.Storage.RootDir)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
	assert.Equal(t, DefaultFallbackURL, cfg.Server.FallbackURL)
	assert.False(t, cfg.Server.DisableFallback)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestLoadConfigFromReader(t *testing.T) {
	yaml := `
server:
  host: 127.0.0.1
  port: 9000
  allow_overwrite: true
  disable_fallback: true
  cache_control: 1800
storage:
  root_dir: /srv/packages
  recursive: true
refresh:
  interval: 5m
  state_dir: /var/lib/pindex
hooks:
  package-added: /etc/pindex/added.tengo
settings:
  log_level: debug
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.True(t, cfg.Server.AllowOverwrite)
	assert.True(t, cfg.Server.DisableFallback)
	assert.Equal(t, 1800, cfg.Server.CacheControl)
	// fallback_url not set in the file, so the default applies
	assert.Equal(t, DefaultFallbackURL, cfg.Server.FallbackURL)
	assert.True(t, cfg.Storage.Recursive)
	assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, filepath.Join("/var/lib/pindex", ManifestFilename), cfg.ManifestPath())
	assert.Equal(t, map[hook.Event]string{hook.PackageAdded: "/etc/pindex/added.tengo"}, cfg.HookScripts())
	// unspecified fields fall back to defaults
	assert.Equal(t, "text", cfg.Settings.OutputFormat)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 99999\n"},
		{"negative cache control", "server:\n  cache_control: -5\n"},
		{"negative interval", "refresh:\n  interval: -1m\n"},
		{"bad log level", "settings:\n  log_level: loud\n"},
		{"bad output format", "settings:\n  output_format: csv\n"},
		{"unknown hook event", "hooks:\n  pre-install: /tmp/x.tengo\n"},
		{"not yaml", "{{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromReader(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Port = 9090
	cfg.Storage.RootDir = "/srv/pkgs"
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, loaded.Server.Port)
	assert.Equal(t, "/srv/pkgs", loaded.Storage.RootDir)
}

func TestManifestPathDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Refresh.StateDir = ""
	// applyDefaults would refill it; emptied explicitly here
	assert.Equal(t, "", cfg.ManifestPath())
}
