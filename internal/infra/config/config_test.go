package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9090"
gateway:
  mode: remote
  remoteBaseUrl: "http://forecast-api:8080"
cache:
  ttl: 10m
conversation:
  recordTimeout: 3s
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("CONVERSATION_FETCH_TIMEOUT", "7s")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Address)
	require.Equal(t, GatewayModeRemote, cfg.Gateway.Mode)
	require.Equal(t, "http://forecast-api:8080", cfg.Gateway.RemoteBaseURL)
	require.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	require.Equal(t, 7*time.Second, cfg.Conversation.FetchTimeout)
	require.Equal(t, 3*time.Second, cfg.Conversation.RecordTimeout)
	require.Equal(t, 100, cfg.Conversation.MaxCityLength)
}

func TestLoadRecordTimeoutFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("conversation:\n  recordTimeout: 9s\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("CONVERSATION_RECORD_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 750*time.Millisecond, cfg.Conversation.RecordTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown gateway mode":  func(c *Config) { c.Gateway.Mode = "carrier-pigeon" },
		"zero fetch timeout":    func(c *Config) { c.Conversation.FetchTimeout = 0 },
		"zero record timeout":   func(c *Config) { c.Conversation.RecordTimeout = 0 },
		"valkey without addr":   func(c *Config) { c.Cache.Valkey.Enabled = true },
		"archive without url":   func(c *Config) { c.Itineraries.Archive.Enabled = true },
		"non positive idle ttl": func(c *Config) { c.Sessions.IdleTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, defaultConfig().Validate())
}
