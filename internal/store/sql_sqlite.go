package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MKhiriev/go-note-keeper/internal/config"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
)

// sqliteParams are appended to every DSN: enforced foreign keys for the
// cascades, a busy timeout and WAL journaling.
var sqliteParams = url.Values{
	"_foreign_keys": {"on"},
	"_busy_timeout": {"5000"},
	"_journal_mode": {"WAL"},
	"_txlock":       {"immediate"},
}

// NewConnectSQLite opens the database file named by cfg.DSN, creating its
// directory when needed, and verifies the connection.
func NewConnectSQLite(ctx context.Context, cfg config.ClientDB, log *logger.Logger) (*DB, error) {
	path, _, _ := strings.Cut(strings.TrimPrefix(cfg.DSN, "file:"), "?")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			log.Err(err).Str("func", "NewConnectSQLite").Str("dir", dir).Msg("error creating database directory")
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", sqliteDSN(cfg.DSN))
	if err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error connecting database")
		return nil, fmt.Errorf("error opening connection to DB: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error connecting database (ping)")
		return nil, err
	}
	log.Debug().Str("func", "NewConnectSQLite").Str("dsn", cfg.DSN).Msg("connected to database successfully")

	return &DB{
		DB:     conn,
		logger: log,
	}, nil
}

// sqliteDSN adds sqliteParams to path, keeping parameters already present.
func sqliteDSN(dsn string) string {
	base, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		params = url.Values{}
	}
	for k, v := range sqliteParams {
		if _, ok := params[k]; !ok {
			params[k] = v
		}
	}
	return "file:" + base + "?" + params.Encode()
}
