package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Engine.MaxIterations)
	require.Equal(t, 0.9, cfg.Engine.ScoreThreshold)
	require.Len(t, cfg.Governors, 3)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.yaml")
	data := `
engine:
  max_iterations: 8
  global_timeout: 90s
governors:
  - name: arch
    kind: datalog
    weight: 2.0
    policy_path: rules/arch.gl
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Engine.MaxIterations)
	require.Len(t, cfg.Governors, 1)
	require.Equal(t, "datalog", cfg.Governors[0].Kind)

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	require.Equal(t, 8, ec.MaxIterations)
	require.Equal(t, 90*time.Second, ec.GlobalTimeout)
	require.Equal(t, 10*time.Second, ec.PerGovernorTimeout)
}

func TestEngineConfigRejectsBadDuration(t *testing.T) {
	cfg := Default()
	cfg.Engine.GlobalTimeout = "soon"
	_, err := cfg.EngineConfig()
	require.Error(t, err)
}

func TestEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Generation.APIKey)
}
