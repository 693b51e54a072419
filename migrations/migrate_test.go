// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package migrations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_NilDB(t *testing.T) {
	_, err := Migrate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db is nil")
}

func TestMigrate_DBError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// no expectations: the first statement goose issues fails
	_, err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration error")
}

func TestMigrate_SQLiteInMemory(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, applied)

	for _, table := range []string{"notebooks", "tags", "saved_searches", "linked_notebooks", "notes", "resources", "note_tags", "users"} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	applied, err = Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMigrate_BackfillsNameKey(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, schema, goose.WithGoMigrations(nameKeyMigration))
	require.NoError(t, err)
	_, err = provider.UpTo(ctx, 2)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO notebooks (local_id, name, payload) VALUES ('l1', 'Работа', '{}')`)
	require.NoError(t, err)

	applied, err := Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, applied)

	var key string
	require.NoError(t, db.QueryRow(`SELECT name_key FROM notebooks WHERE local_id = 'l1'`).Scan(&key))
	assert.Equal(t, "работа", key)
}
