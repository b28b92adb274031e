package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port              int    `env:"TEST_CFG_PORT" envDefault:"8010"`
	LogLevel          string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	RecomputeOnDelete bool   `env:"TEST_CFG_RECOMPUTE_ON_DELETE" envDefault:"true"`
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_SECRET,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.RecomputeOnDelete)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_RECOMPUTE_ON_DELETE", "false")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.RecomputeOnDelete)
}

func TestLoad_Errors(t *testing.T) {
	var req requiredConfig
	err := Load(&req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	t.Setenv("TEST_CFG_PORT", "eighty")
	var cfg testConfig
	assert.Error(t, Load(&cfg))
}

func TestLoadFrom_IgnoresProcessEnv(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9999")

	var cfg testConfig
	require.NoError(t, LoadFrom(&cfg, map[string]string{"TEST_CFG_LOG_LEVEL": "debug"}))

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFrom_Required(t *testing.T) {
	var cfg requiredConfig
	assert.Error(t, LoadFrom(&cfg, map[string]string{}))
	require.NoError(t, LoadFrom(&cfg, map[string]string{"TEST_CFG_SECRET": "s3cret"}))
	assert.Equal(t, "s3cret", cfg.Secret)
}
