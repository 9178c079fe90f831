package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int      `env:"TEST_CFG_PORT" envDefault:"8080"`
	Host     string   `env:"TEST_CFG_HOST" envDefault:"localhost"`
	LogLevel string   `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Debug    bool     `env:"TEST_CFG_DEBUG" envDefault:"false"`
	Brokers  []string `env:"TEST_CFG_BROKERS" envSeparator:","`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_HOST", "0.0.0.0")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_DEBUG", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
}

type requiredConfig struct {
	APIKey     string `env:"TEST_CFG_API_KEY,required"`
	BackendURL string `env:"TEST_CFG_BACKEND_URL,required"`
}

func TestLoad_RequiredFieldsMissing(t *testing.T) {
	var cfg requiredConfig
	err := LoadFrom(&cfg, map[string]string{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
	assert.Contains(t, err.Error(), "TEST_CFG_API_KEY")
	assert.Contains(t, err.Error(), "TEST_CFG_BACKEND_URL")
}

func TestLoad_RequiredFieldsPresent(t *testing.T) {
	t.Setenv("TEST_CFG_API_KEY", "secret-123")
	t.Setenv("TEST_CFG_BACKEND_URL", "http://backend:3000/api")

	var cfg requiredConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, "secret-123", cfg.APIKey)
	assert.Equal(t, "http://backend:3000/api", cfg.BackendURL)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadFrom_IgnoresProcessEnv(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")

	var cfg testConfig
	err := LoadFrom(&cfg, map[string]string{
		"TEST_CFG_HOST":    "backend.local",
		"TEST_CFG_BROKERS": "kafka-1:9092,kafka-2:9092",
	})

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "backend.local", cfg.Host)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
}
