package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSONConfig(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestParseJSON_AllSections(t *testing.T) {
	path := writeTempJSONConfig(t, map[string]any{
		"app": map[string]any{"name": "keeper", "developer_token": "tok"},
		"adapter": map[string]any{
			"host":                "https://www.evernote.com",
			"request_timeout":     "20s",
			"requests_per_second": 3,
			"burst":               2,
		},
		"storage": map[string]any{
			"db":            map[string]any{"dsn": "notes.db"},
			"settings_path": "settings.yaml",
			"secrets":       map[string]any{"backend": "keyring"},
		},
		"sync": map[string]any{
			"max_chunk_entries":      60,
			"cache_page_size":        40,
			"account_limits_refresh": "6h",
			"interval":               "1m",
		},
		"log": map[string]any{"path": "client.log", "level": "debug"},
	})

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "keeper", cfg.App.Name)
	assert.Equal(t, "tok", cfg.App.DeveloperToken)
	assert.Equal(t, "https://www.evernote.com", cfg.Adapter.Host)
	assert.Equal(t, 20*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 2, cfg.Adapter.Burst)
	assert.Equal(t, "notes.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "keyring", cfg.Storage.Secrets.Backend)
	assert.Equal(t, 60, cfg.Sync.MaxChunkEntries)
	assert.Equal(t, 40, cfg.Sync.CachePageSize)
	assert.Equal(t, 6*time.Hour, cfg.Sync.AccountLimitsRefresh)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Empty(t, cfg.JSONFilePath)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading a json file")
}

func TestParseJSON_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := parseJSON(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error decoding json configs")
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "string", input: `"90s"`, expected: 90 * time.Second},
		{name: "number of nanoseconds", input: `1000000000`, expected: time.Second},
		{name: "bad string", input: `"later"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalJSON([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, time.Duration(d))
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	data, err := Duration(2 * time.Minute).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2m0s"`, string(data))
}
