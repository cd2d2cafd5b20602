package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, StorageBolt, cfg.Storage)
	assert.False(t, cfg.WireOrderItems)
	assert.False(t, cfg.SerializeJournalWrites)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "tableside.yaml", `
api_base_url: https://pos.example.com/api
token: abc
request_timeout: 5s
storage: redis
redis:
  addr: redis:6379
  db: 2
refresh_interval: 1m
wire_order_items: true
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://pos.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, StorageRedis, cfg.Storage)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "tableside", cfg.Redis.Prefix)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.True(t, cfg.WireOrderItems)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "tableside.yaml", "token: from-file\nlog_level: debug\n")
	t.Setenv("TABLESIDE_TOKEN", "from-env")
	t.Setenv("TABLESIDE_SERIALIZE_JOURNAL_WRITES", "true")
	t.Setenv("TABLESIDE_REQUEST_TIMEOUT", "3s")
	t.Setenv("TABLESIDE_REDIS_DB", "4")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.SerializeJournalWrites)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.Redis.DB)
}

func TestDotEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "TABLESIDE_DATA_DIR=/tmp/tableside-dotenv\n")
	t.Setenv("TABLESIDE_DATA_DIR", "")
	os.Unsetenv("TABLESIDE_DATA_DIR")

	cfg, err := Load("", envFile)
	t.Cleanup(func() { os.Unsetenv("TABLESIDE_DATA_DIR") })
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tableside-dotenv", cfg.DataDir)
}

func TestMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad yaml", yaml: "storage: [", wantErr: "failed to parse config"},
		{name: "unknown storage", yaml: "storage: sqlite\n", wantErr: "unknown storage backend"},
		{name: "bad url", yaml: "api_base_url: localhost\n", wantErr: "api_base_url"},
		{name: "bad bool", env: map[string]string{"TABLESIDE_LOG_JSON": "maybe"}, wantErr: "invalid bool"},
		{name: "bad duration", env: map[string]string{"TABLESIDE_REFRESH_INTERVAL": "soon"}, wantErr: "invalid duration"},
		{name: "zero interval", yaml: "refresh_interval: 0s\n", wantErr: "refresh_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "c.yaml", tt.yaml)
			}
			_, err := Load(path, "")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.ErrorContains(t, err, "failed to read config")
}
