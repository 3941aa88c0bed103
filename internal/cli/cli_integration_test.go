package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/pindex/pkg/config"
)

// setGlobalFlags points the package-level flag variables at fresh values
// for the duration of one test.
func setGlobalFlags(t *testing.T, configPath, outputFormat string) {
	t.Helper()
	verbose := false
	noColor := true
	ConfigPath = &configPath
	Verbose = &verbose
	NoColor = &noColor
	OutputFormat = &outputFormat
	t.Cleanup(func() {
		ConfigPath = nil
		Verbose = nil
		NoColor = nil
		OutputFormat = nil
	})
}

func writeTestConfig(t *testing.T, rootDir string) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`server:
  host: 127.0.0.1
  port: 8080
storage:
  root_dir: %s
refresh:
  interval: 0s
  state_dir: %s
settings:
  log_level: error
  no_color: true
  output_format: text
`, rootDir, dir)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath
}

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// what was written.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	runErr := fn()

	os.Stdout = old
	require.NoError(t, w.Close())
	out := <-done
	require.NoError(t, runErr)
	return out
}

func TestScanCommand(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "demo-1.0.tar.gz"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "demo-1.1.tar.gz"), []byte("b"), 0o644))
	setGlobalFlags(t, writeTestConfig(t, rootDir), "")

	cmd := NewScanCmd()
	cmd.SetArgs([]string{})

	out := captureStdout(t, cmd.Execute)
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "1.1")
	assert.Contains(t, out, "2 files across 1 projects")
}

func TestScanCommand_JSONOutput(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "demo-1.0.tar.gz"), []byte("a"), 0o644))
	setGlobalFlags(t, writeTestConfig(t, rootDir), "json")

	cmd := NewScanCmd()
	cmd.SetArgs([]string{})

	out := captureStdout(t, cmd.Execute)
	assert.Contains(t, out, `"generation": 1`)
	assert.Contains(t, out, `"name": "demo"`)
	assert.Contains(t, out, `"latest": "1.0"`)
}

func TestScanCommand_RootFlagOverride(t *testing.T) {
	configuredRoot := t.TempDir()
	flagRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(flagRoot, "flagged-2.0.tar.gz"), []byte("x"), 0o644))
	setGlobalFlags(t, writeTestConfig(t, configuredRoot), "")

	cmd := NewScanCmd()
	cmd.SetArgs([]string{"--root", flagRoot})

	out := captureStdout(t, cmd.Execute)
	assert.Contains(t, out, "flagged")
}

func TestConfigInitCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	setGlobalFlags(t, configPath, "")

	cmd := NewConfigCmd()
	cmd.SetArgs([]string{"init"})
	require.NoError(t, cmd.Execute())

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, cfg.Server.Port)

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		cmd := NewConfigCmd()
		cmd.SetArgs([]string{"init"})
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		assert.Error(t, cmd.Execute())
	})

	t.Run("overwrites with force", func(t *testing.T) {
		cmd := NewConfigCmd()
		cmd.SetArgs([]string{"init", "--force"})
		assert.NoError(t, cmd.Execute())
	})
}

func TestConfigShowCommand(t *testing.T) {
	rootDir := t.TempDir()
	setGlobalFlags(t, writeTestConfig(t, rootDir), "")

	cmd := NewConfigCmd()
	cmd.SetArgs([]string{"show"})

	out := captureStdout(t, cmd.Execute)
	assert.Contains(t, out, "root_dir: "+rootDir)
	assert.Contains(t, out, "port: 8080")
}
