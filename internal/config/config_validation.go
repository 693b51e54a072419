// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"net/url"
)

// validate checks the merged [StructuredConfig]. Source-level checks only;
// required fields are checked on [ClientConfig].
func (cfg *StructuredConfig) validate() error {
	if cfg.Adapter.RequestsPerSecond < 0 || cfg.Adapter.Burst < 0 {
		return ErrInvalidAdapterConfigs
	}
	if cfg.Sync.MaxChunkEntries < 0 || cfg.Sync.CachePageSize < 0 {
		return ErrInvalidSyncConfigs
	}
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || cfg.Storage.SettingsPath == "" {
		return ErrInvalidStorageConfigs
	}

	switch cfg.Storage.Secrets.Backend {
	case SecretsBackendKeyring:
	case SecretsBackendFile:
		if cfg.Storage.Secrets.FilePath == "" || cfg.Storage.Secrets.Passphrase == "" {
			return ErrInvalidStorageConfigs
		}
	default:
		return ErrInvalidStorageConfigs
	}

	host, err := url.Parse(cfg.Adapter.Host)
	if err != nil || host.Scheme == "" || host.Host == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Sync.DownloadThumbnails && cfg.Sync.ThumbnailDir == "" {
		return ErrInvalidSyncConfigs
	}
	if cfg.Sync.Interval < 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}
