package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "nats://localhost:4222", cfg.Bus.URL)
	assert.Equal(t, "Epoch", cfg.Topics.Epoch)
	assert.Equal(t, "SimState", cfg.Topics.SimulationState)
	assert.Equal(t, "Status.Ready", cfg.Topics.Status)
	assert.Equal(t, "Status.Error", cfg.Topics.Error)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvSimulationID, "2020-06-01T12:00:00.000Z")
	t.Setenv(EnvComponentName, "grid_component")
	t.Setenv(EnvBusURL, "nats://bus:4222")
	t.Setenv(EnvOtherTopics, "ResourceState.Generator, ResourceState.Load")
	t.Setenv(EnvMetricsPort, "9091")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "2020-06-01T12:00:00.000Z", cfg.SimulationID)
	assert.Equal(t, "grid_component", cfg.ComponentName)
	assert.Equal(t, "nats://bus:4222", cfg.Bus.URL)
	assert.Equal(t, []string{"ResourceState.Generator", "ResourceState.Load"}, cfg.Topics.Other)
	assert.Equal(t, 9091, cfg.MetricsPort)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	content := `
simulation_id: "2020-06-01T12:00:00.000Z"
component_name: storage_component
bus:
  url: nats://file-bus:4222
topics:
  other:
    - ResourceState.Storage
log_level: warn
`
	path := filepath.Join(t.TempDir(), "component.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv(EnvBusURL, "nats://env-bus:4222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "storage_component", cfg.ComponentName)
	// Environment wins over the file.
	assert.Equal(t, "nats://env-bus:4222", cfg.Bus.URL)
	assert.Equal(t, []string{"ResourceState.Storage"}, cfg.Topics.Other)
	// File values merge over the defaults.
	assert.Equal(t, "Epoch", cfg.Topics.Epoch)
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "missing simulation id")

	cfg.SimulationID = "not-a-timestamp"
	assert.Error(t, cfg.Validate())

	cfg.SimulationID = "2020-06-01T12:00:00.000Z"
	assert.Error(t, cfg.Validate(), "missing component name")

	cfg.ComponentName = "grid_component"
	assert.NoError(t, cfg.Validate())

	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
