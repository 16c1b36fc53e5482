package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
address: tcp://192.168.1.50:4003
credentials: lutron,integration
log_level: debug
readiness_delay: 300ms
retry_interval: 2s
warn_window: 16
circuit_breaker:
  failures: 5
http:
  listen: ":9100"
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "tcp://192.168.1.50:4003", cfg.Address)
	assert.Equal(t, "lutron,integration", cfg.Credentials)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 300*time.Millisecond, cfg.ReadinessDelay)
	assert.Equal(t, 2*time.Second, cfg.RetryInterval)
	assert.Zero(t, cfg.SettleDelay)
	assert.Equal(t, 16, cfg.WarnWindow)
	assert.Equal(t, uint32(5), cfg.CircuitBreaker.Failures)
	assert.Equal(t, ":9100", cfg.HTTP.Listen)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestParse_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":    "adress: tcp://10.0.0.1:4003\n",
		"bad duration":   "retry_interval: soon\n",
		"negative delay": "settle_delay: -1s\n",
		"not a mapping":  "- address\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homeworks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://192.168.1.50:4003", cfg.Address)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestClientConfig(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	client := cfg.ClientConfig(nil)
	assert.Equal(t, cfg.Address, client.Address)
	assert.Equal(t, cfg.Credentials, client.Credentials)
	assert.Equal(t, 300*time.Millisecond, client.ReadinessDelay)
	assert.Equal(t, 16, client.WarnWindow)

	require.NotNil(t, client.CircuitBreakerSettings)
	assert.Equal(t, defaultBreakerTimeout, client.CircuitBreakerSettings.Timeout)
	assert.Equal(t, cfg.Address, client.CircuitBreakerSettings.Name)
}

func TestClientConfig_NoBreaker(t *testing.T) {
	cfg := &Config{Address: "10.0.0.1:4003"}
	assert.Nil(t, cfg.ClientConfig(nil).CircuitBreakerSettings)
}
