// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// go-note-keeper sync client. It aggregates all sub-configurations and is
// populated by merging values from environment variables, command-line flags,
// and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application identity and account credentials.
	App App `envPrefix:"APP_"`

	// Adapter holds settings of the remote note service client.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Storage holds configuration for the local database, the settings file
	// and the secret store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds tuning knobs of the synchronization engine.
	Sync Sync `envPrefix:"SYNC_"`

	// Log holds the client log file settings.
	Log Log `envPrefix:"LOG_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// Name prefixes every secret store key and settings section.
	// Env: APP_NAME
	Name string `env:"NAME"`

	// ClientName is reported to the service by the protocol version check.
	// Env: APP_CLIENT_NAME
	ClientName string `env:"CLIENT_NAME"`

	// ConsumerKey and ConsumerSecret identify the application to the OAuth
	// endpoint.
	// Env: APP_CONSUMER_KEY, APP_CONSUMER_SECRET
	ConsumerKey    string `env:"CONSUMER_KEY"`
	ConsumerSecret string `env:"CONSUMER_SECRET"`

	// DeveloperToken is a long-lived auth token used instead of the OAuth
	// browser flow.
	// Env: APP_DEVELOPER_TOKEN
	DeveloperToken string `env:"DEVELOPER_TOKEN"`
}

// Adapter holds the remote note service client settings.
type Adapter struct {
	// Host is the base URL of the note service (e.g. "https://www.evernote.com").
	// Env: ADAPTER_HOST
	Host string `env:"HOST"`

	// RequestTimeout bounds a single remote call (e.g. "30s").
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// RequestsPerSecond throttles outgoing calls on the client side.
	// Env: ADAPTER_REQUESTS_PER_SECOND
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND"`

	// Burst is the number of calls allowed above the steady rate.
	// Env: ADAPTER_BURST
	Burst int `env:"BURST"`
}

// Storage groups the configuration of every persistence backend.
type Storage struct {
	// DB holds the local note database settings.
	DB DB `envPrefix:"DB_"`

	// SettingsPath is the YAML file with per-account sync settings.
	// Env: STORAGE_SETTINGS_PATH
	SettingsPath string `env:"SETTINGS_PATH"`

	// Secrets selects and configures the secret store.
	Secrets Secrets `envPrefix:"SECRETS_"`
}

// DB holds connection settings for the local note database.
type DB struct {
	// DSN is the SQLite database file. ":memory:" selects the in-memory
	// storage, a path ending in ".json" selects the JSON file storage.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Secrets configures where auth tokens are kept.
type Secrets struct {
	// Backend is "keyring" (the OS keychain) or "file".
	// Env: STORAGE_SECRETS_BACKEND
	Backend string `env:"BACKEND"`

	// FilePath and Passphrase configure the encrypted file backend.
	// Env: STORAGE_SECRETS_FILE_PATH, STORAGE_SECRETS_PASSPHRASE
	FilePath   string `env:"FILE_PATH"`
	Passphrase string `env:"PASSPHRASE"`
}

// Sync holds sync engine settings.
type Sync struct {
	// MaxChunkEntries caps the entries of one downloaded sync chunk.
	// Env: SYNC_MAX_CHUNK_ENTRIES
	MaxChunkEntries int `env:"MAX_CHUNK_ENTRIES"`

	// CachePageSize is the page size used when filling sync caches.
	// Env: SYNC_CACHE_PAGE_SIZE
	CachePageSize int `env:"CACHE_PAGE_SIZE"`

	// DownloadThumbnails enables thumbnail download into ThumbnailDir.
	// Env: SYNC_DOWNLOAD_THUMBNAILS, SYNC_THUMBNAIL_DIR
	DownloadThumbnails bool   `env:"DOWNLOAD_THUMBNAILS"`
	ThumbnailDir       string `env:"THUMBNAIL_DIR"`

	// AccountLimitsRefresh is how old cached account limits may get.
	// Env: SYNC_ACCOUNT_LIMITS_REFRESH
	AccountLimitsRefresh time.Duration `env:"ACCOUNT_LIMITS_REFRESH"`

	// Interval enables periodic synchronization when non-zero.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`
}

// Log holds the client log settings.
type Log struct {
	// Path is the log file. Env: LOG_PATH
	Path string `env:"PATH"`
	// Level is a zerolog level name. Env: LOG_LEVEL
	Level string `env:"LEVEL"`
	// Console mirrors log entries to stderr. Env: LOG_CONSOLE
	Console bool `env:"CONSOLE"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
