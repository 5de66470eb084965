package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	fileName := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(fileName, []byte(content), 0o600))
	return fileName
}

func TestGetConfigFromFile_Defaults(t *testing.T) {
	cfg, err := GetConfigFromFile(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8083", cfg.Backend.BaseUrl)
	assert.Equal(t, "http://localhost:8083/api", cfg.Backend.ApiUrl())
	assert.Equal(t, time.Duration(0), cfg.Backend.Timeout)
	assert.Equal(t, SessionStorageBolt, cfg.Session.Storage)
	assert.Equal(t, DefaultSessionKey, cfg.Session.Key)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, DatabaseSQLite, cfg.Audit.Type)
	assert.Empty(t, cfg.Metrics.ListeningAddress)
}

func TestGetConfigFromFile_EnvSubstitution(t *testing.T) {
	t.Setenv("VOTE_BACKEND_HOST", "voting.example.com:9443")

	fileName := writeConfig(t, `
backend:
  base_url: https://${VOTE_BACKEND_HOST}/
  api_prefix: api/
  timeout: 10s
session:
  storage: FILE
  path: /tmp/vote-session
monitor:
  interval: 5s
audit:
  enabled: true
  type: Postgres
  dsn: host=localhost user=vote dbname=audit
advanced:
  log_level: debug
`)

	cfg, err := GetConfigFromFile(fileName)
	require.NoError(t, err)

	assert.Equal(t, "https://voting.example.com:9443", cfg.Backend.BaseUrl)
	assert.Equal(t, "/api", cfg.Backend.ApiPrefix)
	assert.Equal(t, "https://voting.example.com:9443/api", cfg.Backend.ApiUrl())
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.True(t, cfg.Backend.VerifyTls) // kept from defaults
	assert.Equal(t, SessionStorageFile, cfg.Session.Storage)
	assert.Equal(t, DefaultSessionKey, cfg.Session.Key)
	assert.Equal(t, 5*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, DatabasePostgres, cfg.Audit.Type)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
}

func TestGetConfigFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unsupported scheme",
			content: "backend:\n  base_url: ftp://localhost\n",
		},
		{
			name:    "missing host",
			content: "backend:\n  base_url: http://\n",
		},
		{
			name:    "unknown session storage",
			content: "session:\n  storage: redis\n",
		},
		{
			name:    "audit without dsn",
			content: "audit:\n  enabled: true\n  dsn: \"\"\n",
		},
		{
			name:    "unsupported audit database",
			content: "audit:\n  enabled: true\n  type: oracle\n",
		},
		{
			name:    "broken yaml",
			content: "backend: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetConfigFromFile(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestGetConfig_EnvFileName(t *testing.T) {
	fileName := writeConfig(t, "monitor:\n  interval: 1m\n")
	t.Setenv("VOTE_PORTAL_CONFIG", fileName)

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Monitor.Interval)
}
