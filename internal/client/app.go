// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-note-keeper/internal/adapter"
	"github.com/MKhiriev/go-note-keeper/internal/config"
	"github.com/MKhiriev/go-note-keeper/internal/credentials"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/service"
	"github.com/MKhiriev/go-note-keeper/internal/settings"
	"github.com/MKhiriev/go-note-keeper/internal/store"
)

// App owns every long-lived component of the sync client.
type App struct {
	cfg     *config.ClientConfig
	sync    service.Synchronizer
	job     *service.SyncJob
	storage *store.AsyncStorage
	logger  *logger.Logger
}

// NewApp builds the client from cfg.
func NewApp(ctx context.Context, cfg *config.ClientConfig, log *logger.Logger) (*App, error) {
	remote, err := adapter.NewHTTPNoteService(cfg.Adapter, log)
	if err != nil {
		return nil, fmt.Errorf("create note service adapter: %w", err)
	}

	localStorage, err := newLocalStorage(ctx, cfg.Storage.DB, log)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	storage := store.NewAsyncStorage(localStorage, log)

	secrets, err := credentials.NewSecretStore(cfg.Storage.Secrets)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("create secret store: %w", err)
	}

	settingsStore, err := settings.NewFileStore(cfg.Storage.SettingsPath)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("open settings: %w", err)
	}

	var thumbnails service.ThumbnailSink
	if cfg.Sync.DownloadThumbnails {
		if thumbnails, err = service.NewDirThumbnailSink(cfg.Sync.ThumbnailDir); err != nil {
			_ = storage.Close()
			return nil, err
		}
	}

	// only developer tokens can be obtained without a browser
	var authenticator service.Authenticator
	if cfg.App.DeveloperToken != "" {
		authenticator = service.NewDeveloperTokenAuthenticator(cfg.App.DeveloperToken, cfg.Adapter.Host)
	}

	manager := service.NewSyncManager(remote, storage, secrets, settingsStore, authenticator, thumbnails, service.SyncManagerConfig{
		App:           cfg.App.Name,
		Host:          hostKey(cfg.Adapter.Host),
		CachePageSize: cfg.Sync.CachePageSize,
		RemoteToLocal: service.RemoteToLocalConfig{
			ClientName:           cfg.App.ClientName,
			MaxChunkEntries:      int32(cfg.Sync.MaxChunkEntries),
			DownloadThumbnails:   cfg.Sync.DownloadThumbnails,
			ThumbnailSize:        service.DefaultThumbnailSize,
			AccountLimitsRefresh: cfg.Sync.AccountLimitsRefresh,
		},
	}, log)
	manager.Subscribe(eventLogger(log.WithComponent("events")))

	return newApp(cfg, manager, storage, log), nil
}

func newApp(cfg *config.ClientConfig, s service.Synchronizer, storage *store.AsyncStorage, log *logger.Logger) *App {
	return &App{
		cfg:     cfg,
		sync:    s,
		job:     service.NewSyncJob(s, log),
		storage: storage,
		logger:  log,
	}
}

// Run synchronizes once, or every cfg.Sync.Interval until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Sync.Interval <= 0 {
		cp, err := a.sync.Synchronize(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("synchronize: %w", err)
		}
		a.logger.Info().Int32("update_count", cp.LastUpdateCount).Msg("synchronized")
		return nil
	}

	a.logger.Info().Dur("interval", a.cfg.Sync.Interval).Msg("starting periodic synchronization")
	a.job.Start(ctx, a.cfg.Sync.Interval)
	<-ctx.Done()
	a.job.Stop()
	return nil
}

// Close releases the local storage.
func (a *App) Close() error {
	a.job.Stop()
	if a.storage == nil {
		return nil
	}
	return a.storage.Close()
}

// newLocalStorage picks the storage by DSN: ":memory:" and ".json" paths use
// the map-backed storage, anything else is a SQLite file.
func newLocalStorage(ctx context.Context, cfg config.ClientDB, log *logger.Logger) (store.LocalStorage, error) {
	switch {
	case cfg.DSN == ":memory:", strings.HasSuffix(cfg.DSN, ".json"):
		return store.NewMemoryStorage(cfg.DSN)
	default:
		return store.NewSQLiteStorage(ctx, cfg, log)
	}
}

// hostKey strips the scheme so that settings and secrets stay the same for
// http and https URLs of one host.
func hostKey(host string) string {
	if _, rest, ok := strings.Cut(host, "://"); ok {
		host = rest
	}
	return strings.TrimSuffix(host, "/")
}
