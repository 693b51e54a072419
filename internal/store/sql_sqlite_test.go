package store

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-keeper/internal/config"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/models"
)

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		wantBase string
		want     map[string]string
	}{
		{
			name:     "plain path",
			dsn:      "notes.db",
			wantBase: "file:notes.db",
			want:     map[string]string{"_foreign_keys": "on", "_busy_timeout": "5000"},
		},
		{
			name:     "keeps own params",
			dsn:      "file:notes.db?_busy_timeout=100&cache=shared",
			wantBase: "file:notes.db",
			want:     map[string]string{"_busy_timeout": "100", "cache": "shared", "_journal_mode": "WAL"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, query, ok := strings.Cut(sqliteDSN(tt.dsn), "?")
			require.True(t, ok)
			assert.Equal(t, tt.wantBase, base)

			params, err := url.ParseQuery(query)
			require.NoError(t, err)
			for k, v := range tt.want {
				assert.Equal(t, v, params.Get(k), k)
			}
		})
	}
}

func TestNewSQLiteStorage_CreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "notes.db")

	s, err := NewSQLiteStorage(context.Background(), config.ClientDB{DSN: dsn}, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Notebooks().FindByGuid(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorage_FindByName_FoldsUnicode(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStorage(ctx, config.ClientDB{DSN: filepath.Join(t.TempDir(), "notes.db")}, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Notebooks().Add(ctx, models.Notebook{Name: "Работа"})
	require.NoError(t, err)
	_, err = s.Notebooks().Add(ctx, models.Notebook{Name: "Äpfel", SyncMeta: models.SyncMeta{LinkedNotebookGuid: "ln"}})
	require.NoError(t, err)

	nb, err := s.Notebooks().FindByName(ctx, "РАБОТА", "")
	require.NoError(t, err)
	assert.Equal(t, "Работа", nb.Name)

	nb, err = s.Notebooks().FindByName(ctx, "äpfel", "ln")
	require.NoError(t, err)
	assert.Equal(t, "Äpfel", nb.Name)

	_, err = s.Notebooks().FindByName(ctx, "äpfel", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
