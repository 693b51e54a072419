package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validStructuredConfig() *StructuredConfig {
	return &StructuredConfig{
		Adapter: Adapter{Host: "https://www.evernote.com"},
		Storage: Storage{
			DB:           DB{DSN: "notes.db"},
			SettingsPath: "settings.yaml",
		},
	}
}

func TestNewClientConfig_Defaults(t *testing.T) {
	cfg := newClientConfig(validStructuredConfig())

	assert.Equal(t, DefaultAppName, cfg.App.Name)
	assert.Equal(t, DefaultAppName, cfg.App.ClientName)
	assert.Equal(t, DefaultRequestTimeout, cfg.Adapter.RequestTimeout)
	assert.InDelta(t, float64(DefaultRequestsPerSecond), cfg.Adapter.RequestsPerSecond, 0.001)
	assert.Equal(t, 1, cfg.Adapter.Burst)
	assert.Equal(t, SecretsBackendKeyring, cfg.Storage.Secrets.Backend)
	assert.Equal(t, DefaultMaxChunkEntries, cfg.Sync.MaxChunkEntries)
	assert.Equal(t, DefaultCachePageSize, cfg.Sync.CachePageSize)
	assert.Equal(t, DefaultAccountLimitsRefresh, cfg.Sync.AccountLimitsRefresh)
	assert.NoError(t, cfg.validate())
}

func TestNewClientConfig_KeepsExplicitValues(t *testing.T) {
	src := validStructuredConfig()
	src.App.Name = "keeper"
	src.Sync.MaxChunkEntries = 10
	src.Sync.Interval = time.Minute

	cfg := newClientConfig(src)
	assert.Equal(t, "keeper", cfg.App.Name)
	assert.Equal(t, 10, cfg.Sync.MaxChunkEntries)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *ClientConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(*ClientConfig) {}},
		{
			name:    "empty dsn",
			mutate:  func(cfg *ClientConfig) { cfg.Storage.DB.DSN = "" },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "empty settings path",
			mutate:  func(cfg *ClientConfig) { cfg.Storage.SettingsPath = "" },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name: "file secrets without passphrase",
			mutate: func(cfg *ClientConfig) {
				cfg.Storage.Secrets = ClientSecrets{Backend: SecretsBackendFile, FilePath: "s.bin"}
			},
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "unknown secrets backend",
			mutate:  func(cfg *ClientConfig) { cfg.Storage.Secrets.Backend = "vault" },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "relative host",
			mutate:  func(cfg *ClientConfig) { cfg.Adapter.Host = "evernote.com" },
			wantErr: ErrInvalidAdapterConfigs,
		},
		{
			name:    "thumbnails without dir",
			mutate:  func(cfg *ClientConfig) { cfg.Sync.DownloadThumbnails = true },
			wantErr: ErrInvalidSyncConfigs,
		},
		{
			name:    "negative interval",
			mutate:  func(cfg *ClientConfig) { cfg.Sync.Interval = -time.Second },
			wantErr: ErrInvalidWorkerConfigs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newClientConfig(validStructuredConfig())
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
