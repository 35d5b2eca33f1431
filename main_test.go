package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luispater/webdriverkit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppLoadsConfigAndScenarios(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "noop.yaml"), []byte("workflow:\n  - index: 1\n    action: AlwaysTrue\n"), 0o644))
	cfgFile := filepath.Join(dir, "main.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("headless: true\nscenario-dir: "+scenarios+"\n"), 0o644))

	configPath = cfgFile
	t.Cleanup(func() { configPath = config.DefaultConfigPath })

	a, err := newApp(runCmd)
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.cfg.Headless)
	assert.Equal(t, []string{"noop"}, a.runner.Scenarios())
	assert.False(t, a.driver.IsInitialized(), "the browser starts lazily")
}

func TestNewAppFallsBackToDefaults(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "absent.yaml")
	t.Cleanup(func() { configPath = config.DefaultConfigPath })

	a, err := newApp(runCmd)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "2048", a.cfg.ApiPort)
	assert.Contains(t, a.runner.Scenarios(), "search", "bundled sample scenarios load and validate")
}
