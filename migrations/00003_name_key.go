package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/MKhiriev/go-note-keeper/models"
)

// entityTables share the same column layout.
var entityTables = []string{"notebooks", "tags", "saved_searches", "linked_notebooks", "notes", "resources"}

// nameIndexed are the tables looked up by name.
var nameIndexed = []string{"notebooks", "tags", "saved_searches"}

// nameKeyMigration adds name_key, the case-folded name. SQLite's lower()
// folds ASCII only, so the key is computed in Go for existing rows and on
// every write.
var nameKeyMigration = goose.NewGoMigration(3,
	&goose.GoFunc{RunTx: addNameKey},
	&goose.GoFunc{RunTx: dropNameKey},
)

func addNameKey(ctx context.Context, tx *sql.Tx) error {
	for _, table := range entityTables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN name_key TEXT NOT NULL DEFAULT ''`, table)); err != nil {
			return fmt.Errorf("add name_key to %s: %w", table, err)
		}
		if err := backfillNameKey(ctx, tx, table); err != nil {
			return err
		}
	}
	for _, table := range nameIndexed {
		stmts := []string{
			fmt.Sprintf(`DROP INDEX IF EXISTS idx_%s_name`, table),
			fmt.Sprintf(`CREATE INDEX idx_%s_name_key ON %s (name_key, linked_notebook_guid)`, table, table),
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("index %s by name_key: %w", table, err)
			}
		}
	}
	return nil
}

func backfillNameKey(ctx context.Context, tx *sql.Tx, table string) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT local_id, name FROM %s`, table))
	if err != nil {
		return fmt.Errorf("read %s names: %w", table, err)
	}
	keys := make(map[string]string)
	for rows.Next() {
		var localID, name string
		if err = rows.Scan(&localID, &name); err != nil {
			rows.Close()
			return fmt.Errorf("scan %s name: %w", table, err)
		}
		keys[localID] = models.NameKey(name)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	update := fmt.Sprintf(`UPDATE %s SET name_key = ? WHERE local_id = ?`, table)
	for localID, key := range keys {
		if _, err = tx.ExecContext(ctx, update, key, localID); err != nil {
			return fmt.Errorf("backfill %s name_key: %w", table, err)
		}
	}
	return nil
}

func dropNameKey(ctx context.Context, tx *sql.Tx) error {
	for _, table := range nameIndexed {
		stmts := []string{
			fmt.Sprintf(`DROP INDEX IF EXISTS idx_%s_name_key`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_name ON %s (lower(name))`, table, table),
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}
	for _, table := range entityTables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s DROP COLUMN name_key`, table)); err != nil {
			return fmt.Errorf("drop name_key from %s: %w", table, err)
		}
	}
	return nil
}
