// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_AllFields(t *testing.T) {
	environ := map[string]string{
		"CONFIG": "/path/to/config.json",

		"APP_NAME":            "keeper",
		"APP_CLIENT_NAME":     "keeper-cli",
		"APP_CONSUMER_KEY":    "ck",
		"APP_CONSUMER_SECRET": "cs",
		"APP_DEVELOPER_TOKEN": "S=s1:U=1:token",

		"ADAPTER_HOST":                "https://sandbox.evernote.com",
		"ADAPTER_REQUEST_TIMEOUT":     "15s",
		"ADAPTER_REQUESTS_PER_SECOND": "2.5",
		"ADAPTER_BURST":               "3",

		// Storage has nested prefixes: STORAGE_ + DB_ / SECRETS_
		"STORAGE_DB_DSN":             "/var/lib/keeper/notes.db",
		"STORAGE_SETTINGS_PATH":      "/var/lib/keeper/settings.yaml",
		"STORAGE_SECRETS_BACKEND":    "file",
		"STORAGE_SECRETS_FILE_PATH":  "/var/lib/keeper/secrets.bin",
		"STORAGE_SECRETS_PASSPHRASE": "pass",

		"SYNC_MAX_CHUNK_ENTRIES":      "100",
		"SYNC_CACHE_PAGE_SIZE":        "25",
		"SYNC_DOWNLOAD_THUMBNAILS":    "true",
		"SYNC_THUMBNAIL_DIR":          "/tmp/thumbs",
		"SYNC_ACCOUNT_LIMITS_REFRESH": "12h",
		"SYNC_INTERVAL":               "15m",

		"LOG_PATH":    "/var/log/keeper.log",
		"LOG_LEVEL":   "info",
		"LOG_CONSOLE": "true",
	}

	cfg := &StructuredConfig{}
	err := parseEnv(cfg, environ)

	require.NoError(t, err)
	assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)
	assert.Equal(t, "keeper", cfg.App.Name)
	assert.Equal(t, "keeper-cli", cfg.App.ClientName)
	assert.Equal(t, "S=s1:U=1:token", cfg.App.DeveloperToken)
	assert.Equal(t, "https://sandbox.evernote.com", cfg.Adapter.Host)
	assert.Equal(t, 15*time.Second, cfg.Adapter.RequestTimeout)
	assert.InDelta(t, 2.5, cfg.Adapter.RequestsPerSecond, 0.001)
	assert.Equal(t, 3, cfg.Adapter.Burst)
	assert.Equal(t, "/var/lib/keeper/notes.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "/var/lib/keeper/settings.yaml", cfg.Storage.SettingsPath)
	assert.Equal(t, "file", cfg.Storage.Secrets.Backend)
	assert.Equal(t, "pass", cfg.Storage.Secrets.Passphrase)
	assert.Equal(t, 100, cfg.Sync.MaxChunkEntries)
	assert.Equal(t, 25, cfg.Sync.CachePageSize)
	assert.True(t, cfg.Sync.DownloadThumbnails)
	assert.Equal(t, 12*time.Hour, cfg.Sync.AccountLimitsRefresh)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Console)
}

func TestParseEnv_Empty(t *testing.T) {
	cfg := &StructuredConfig{}
	require.NoError(t, parseEnv(cfg, map[string]string{}))
	assert.Empty(t, cfg.Adapter.Host)
	assert.Zero(t, cfg.Sync.MaxChunkEntries)
}

func TestParseEnv_InvalidDuration(t *testing.T) {
	err := parseEnv(&StructuredConfig{}, map[string]string{"ADAPTER_REQUEST_TIMEOUT": "not-a-duration"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error getting env configs")
}

func TestParseEnv_ProcessEnvironment(t *testing.T) {
	t.Setenv("ADAPTER_HOST", "https://www.evernote.com")

	cfg := &StructuredConfig{}
	require.NoError(t, parseEnv(cfg, nil))
	assert.Equal(t, "https://www.evernote.com", cfg.Adapter.Host)
}
