package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Addr)
	assert.Equal(t, 12, cfg.BufferSize)
	assert.Equal(t, 15*time.Minute, cfg.FlowTTL.Std())
	assert.Equal(t, 1.0, cfg.Memory.ReinforceDelta)
	assert.Equal(t, 1.5, cfg.Memory.ContradictDelta)
	assert.Equal(t, 2.0, cfg.Memory.Beta)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
summary_threshold: 1200
flow_ttl: 5m
memory:
  beta: 3.5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 1200, cfg.SummaryThreshold)
	assert.Equal(t, 3.5, cfg.Memory.Beta)
	assert.Equal(t, 5*time.Minute, cfg.FlowTTL.Std())
	// Untouched fields keep their defaults.
	assert.Equal(t, 12, cfg.BufferSize)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9000\"\n"), 0o644))

	t.Setenv("AGENTCORE_ADDR", ":7777")
	t.Setenv("AGENTCORE_JWT_SECRET", "from-env")
	t.Setenv("AGENTCORE_SUMMARY_THRESHOLD", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Addr)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 42, cfg.SummaryThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
