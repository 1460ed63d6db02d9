package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "registry:\n  config_url: https://registry.example.com/clients\n")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 60*time.Second, c.Scheduler.PollInterval)
	require.Equal(t, 10*time.Second, c.Scheduler.ErrorBackoff)
	require.Equal(t, 20, c.Scheduler.ClosedTradeLimit)
	require.Equal(t, "5m", c.MarketData.Interval)
	require.Equal(t, 200, c.MarketData.Limit)
	require.Equal(t, 5*time.Second, c.Heartbeat.Timeout)
	require.Equal(t, "memory", c.Dedup.Backend)
	require.Equal(t, "log", c.Ledger.Backend)
	require.Equal(t, "https://fapi.binance.com", c.Brokers.Binance.LiveURL)
	require.Equal(t, "https://api-demo.bybit.com", c.Brokers.Bybit.TestURL)
	require.Equal(t, 5000, c.Brokers.Bybit.RecvWindow)
}

func TestLoadRejectsMissingRegistry(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: production\n"))
	require.Error(t, err)
}

func TestLoadRejectsBackoffAbovePoll(t *testing.T) {
	path := writeConfig(t, `registry:
  config_url: https://registry.example.com/clients
scheduler:
  poll_interval: 5s
  error_backoff: 10s
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "error_backoff")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "registry:\n  config_url: https://registry.example.com/clients\n")
	t.Setenv("REGISTRY_URL", "https://other.example.com/clients")
	t.Setenv("LOG_URL", "https://logs.example.com/ingest")
	t.Setenv("DEDUP_BACKEND", "redis")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	require.Equal(t, "https://other.example.com/clients", c.Registry.ConfigURL)
	require.Equal(t, "http", c.Sink.Backend)
	require.Equal(t, "https://logs.example.com/ingest", c.Sink.URL)
	require.Equal(t, "redis", c.Dedup.Backend)
}

func TestKafkaBackendNeedsBrokers(t *testing.T) {
	path := writeConfig(t, `registry:
  config_url: https://registry.example.com/clients
ledger:
  backend: kafka
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "kafka.brokers")
}
