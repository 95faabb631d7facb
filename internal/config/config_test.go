package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetDroverEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "DROVER_API_KEY", "DROVER_MODEL",
		"DROVER_BASE_URL", "DROVER_TRUST_DB", "DROVER_AUTO_APPROVE", "DROVER_DEBUG",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "drover", cfg.Name)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Empty(t, cfg.Execution.AllowedBinaries, "default mode is permissive")
	assert.Equal(t, 4096, cfg.GetBinarySniffBytes())
	assert.Equal(t, time.Second, cfg.GetOutputThrottle())
	assert.Equal(t, 200*time.Millisecond, cfg.GetKillGrace())
	assert.Equal(t, 30*time.Second, cfg.GetDefaultTimeout())
	assert.False(t, cfg.Trust.AutoApprove)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	unsetDroverEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Model.Model, cfg.Model.Model)
}

func TestLoadSave_RoundTrip(t *testing.T) {
	unsetDroverEnv(t)

	dir := t.TempDir()
	path := Path(dir)

	cfg := DefaultConfig()
	cfg.Model.Model = "gemini-2.5-flash"
	cfg.Execution.AllowedBinaries = []string{"git", "go"}
	cfg.Execution.OutputThrottle = "250ms"
	cfg.Trust.AutoApprove = true
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadWorkspace(dir)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 250*time.Millisecond, loaded.GetOutputThrottle())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	unsetDroverEnv(t)

	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("model:\n  model: gemini-2.5-flash\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model.Model)
	// Fields the file doesn't mention retain defaults.
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, 4096, cfg.GetBinarySniffBytes())
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("model: [not: closed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("GEMINI_API_KEY sets key and provider", func(t *testing.T) {
		unsetDroverEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.Model.APIKey)
		assert.Equal(t, "gemini", cfg.Model.Provider)
	})

	t.Run("DROVER_API_KEY wins over GEMINI_API_KEY", func(t *testing.T) {
		unsetDroverEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem-key")
		t.Setenv("DROVER_API_KEY", "drv-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "drv-key", cfg.Model.APIKey)
	})

	t.Run("model and trust overrides", func(t *testing.T) {
		unsetDroverEnv(t)
		t.Setenv("DROVER_MODEL", "gemini-2.5-flash")
		t.Setenv("DROVER_TRUST_DB", "/tmp/trust.db")
		t.Setenv("DROVER_AUTO_APPROVE", "true")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "gemini-2.5-flash", cfg.Model.Model)
		assert.Equal(t, "/tmp/trust.db", cfg.Trust.DatabasePath)
		assert.True(t, cfg.Trust.AutoApprove)
	})

	t.Run("malformed bool is ignored", func(t *testing.T) {
		unsetDroverEnv(t)
		t.Setenv("DROVER_AUTO_APPROVE", "banana")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.False(t, cfg.Trust.AutoApprove)
	})
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.Timeout = "bogus"
	cfg.Execution.DefaultTimeout = ""
	cfg.Execution.OutputThrottle = "nope"
	cfg.Execution.KillGrace = ""
	cfg.Execution.BinarySniffBytes = -1

	assert.Equal(t, 120*time.Second, cfg.GetModelTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetDefaultTimeout())
	assert.Equal(t, time.Second, cfg.GetOutputThrottle())
	assert.Equal(t, 200*time.Millisecond, cfg.GetKillGrace())
	assert.Equal(t, 4096, cfg.GetBinarySniffBytes())
}
