package config

import (
	"fmt"
	"time"
)

// Defaults applied by [GetClientConfig] to unset fields.
const (
	DefaultAppName              = "go-note-keeper"
	DefaultRequestTimeout       = 30 * time.Second
	DefaultRequestsPerSecond    = 5
	DefaultMaxChunkEntries      = 50
	DefaultCachePageSize        = 50
	DefaultAccountLimitsRefresh = 24 * time.Hour
	DefaultSecretsBackend       = SecretsBackendKeyring
)

// Secret store backends.
const (
	SecretsBackendKeyring = "keyring"
	SecretsBackendFile    = "file"
)

// ClientApp holds client identity settings.
type ClientApp struct {
	Name           string
	ClientName     string
	ConsumerKey    string
	ConsumerSecret string
	DeveloperToken string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// Host is the note service base URL.
	Host string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
	// RequestsPerSecond and Burst configure the client-side throttle.
	RequestsPerSecond float64
	Burst             int
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite file, ":memory:" or a ".json" file path.
	DSN string
}

// ClientSecrets selects the secret store.
type ClientSecrets struct {
	Backend    string
	FilePath   string
	Passphrase string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	DB           ClientDB
	SettingsPath string
	Secrets      ClientSecrets
}

// ClientSync holds sync engine settings.
type ClientSync struct {
	MaxChunkEntries      int
	CachePageSize        int
	DownloadThumbnails   bool
	ThumbnailDir         string
	AccountLimitsRefresh time.Duration
	// Interval enables periodic synchronization when non-zero.
	Interval time.Duration
}

// ClientLog holds log file settings.
type ClientLog struct {
	Path    string
	Level   string
	Console bool
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	App     ClientApp
	Adapter ClientAdapter
	Storage ClientStorage
	Sync    ClientSync
	Log     ClientLog
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps the fields,
// applies defaults and validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := newClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

func newClientConfig(cfg *StructuredConfig) *ClientConfig {
	clientCfg := &ClientConfig{
		App: ClientApp{
			Name:           cfg.App.Name,
			ClientName:     cfg.App.ClientName,
			ConsumerKey:    cfg.App.ConsumerKey,
			ConsumerSecret: cfg.App.ConsumerSecret,
			DeveloperToken: cfg.App.DeveloperToken,
		},
		Adapter: ClientAdapter{
			Host:              cfg.Adapter.Host,
			RequestTimeout:    cfg.Adapter.RequestTimeout,
			RequestsPerSecond: cfg.Adapter.RequestsPerSecond,
			Burst:             cfg.Adapter.Burst,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
			SettingsPath: cfg.Storage.SettingsPath,
			Secrets: ClientSecrets{
				Backend:    cfg.Storage.Secrets.Backend,
				FilePath:   cfg.Storage.Secrets.FilePath,
				Passphrase: cfg.Storage.Secrets.Passphrase,
			},
		},
		Sync: ClientSync{
			MaxChunkEntries:      cfg.Sync.MaxChunkEntries,
			CachePageSize:        cfg.Sync.CachePageSize,
			DownloadThumbnails:   cfg.Sync.DownloadThumbnails,
			ThumbnailDir:         cfg.Sync.ThumbnailDir,
			AccountLimitsRefresh: cfg.Sync.AccountLimitsRefresh,
			Interval:             cfg.Sync.Interval,
		},
		Log: ClientLog{
			Path:    cfg.Log.Path,
			Level:   cfg.Log.Level,
			Console: cfg.Log.Console,
		},
	}
	clientCfg.applyDefaults()

	return clientCfg
}

func (cfg *ClientConfig) applyDefaults() {
	if cfg.App.Name == "" {
		cfg.App.Name = DefaultAppName
	}
	if cfg.App.ClientName == "" {
		cfg.App.ClientName = cfg.App.Name
	}
	if cfg.Adapter.RequestTimeout == 0 {
		cfg.Adapter.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Adapter.RequestsPerSecond == 0 {
		cfg.Adapter.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Adapter.Burst == 0 {
		cfg.Adapter.Burst = 1
	}
	if cfg.Storage.Secrets.Backend == "" {
		cfg.Storage.Secrets.Backend = DefaultSecretsBackend
	}
	if cfg.Sync.MaxChunkEntries == 0 {
		cfg.Sync.MaxChunkEntries = DefaultMaxChunkEntries
	}
	if cfg.Sync.CachePageSize == 0 {
		cfg.Sync.CachePageSize = DefaultCachePageSize
	}
	if cfg.Sync.AccountLimitsRefresh == 0 {
		cfg.Sync.AccountLimitsRefresh = DefaultAccountLimitsRefresh
	}
}
