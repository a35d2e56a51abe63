package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "conveyor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "workflow_dir: ./flows\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./flows", cfg.WorkflowDir)
	assert.Equal(t, DefaultWorkspaceDir, cfg.Workspace.Directory)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, DefaultWorkers, cfg.Daemon.Workers)
	assert.Equal(t, DefaultNATSSubject, cfg.NATS.Subject)
	assert.True(t, cfg.CacheEnabled(), "cache defaults to enabled")
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("CONVEYOR_WS", "/srv/ws")
	path := writeConfig(t, "workspace:\n  directory: ${CONVEYOR_WS}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/ws", cfg.Workspace.Directory)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateRejectsBadRetryMode(t *testing.T) {
	path := writeConfig(t, "checkout:\n  retry:\n    backoff: quadratic\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backoff")
}

func TestValidateRejectsShortScheduleInterval(t *testing.T) {
	path := writeConfig(t, "daemon:\n  schedules:\n    - workflow: gpu-build.yaml\n      every: 5s\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1m")
}

func TestValidateRejectsDuplicateSchedules(t *testing.T) {
	path := writeConfig(t, `daemon:
  schedules:
    - workflow: gpu-build.yaml
      every: 10m
    - workflow: gpu-build.yaml
      every: 30m
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate schedule")
}

func TestValidateNATSRequiresURL(t *testing.T) {
	path := writeConfig(t, "nats:\n  enabled: true\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestNormalizeRetryBackoff(t *testing.T) {
	assert.Equal(t, RetryBackoffFixed, NormalizeRetryBackoff(" Fixed "))
	assert.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff("EXPONENTIAL"))
	assert.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("cubic"))
}

func TestCacheEnabledExplicitFalse(t *testing.T) {
	path := writeConfig(t, "cache:\n  enabled: false\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.CacheEnabled())
}
