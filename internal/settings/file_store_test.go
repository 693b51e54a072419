package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-keeper/models"
)

var testAccount = Account{Host: "www.example.com", UserID: 42}

func TestFileStore_CheckpointPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.yaml")
	ctx := context.Background()

	store, err := NewFileStore(path)
	require.NoError(t, err)

	cp := models.SyncCheckpoint{
		LastUpdateCount: 120,
		LastSyncTime:    1700000000000,
		LinkedNotebooks: map[string]models.LinkedNotebookCheckpoint{
			"ln-b": {UpdateCount: 7, SyncTime: 2},
			"ln-a": {UpdateCount: 3, SyncTime: 1},
		},
	}
	require.NoError(t, store.Update(ctx, testAccount, func(s *AccountSettings) error {
		s.SetCheckpoint(cp)
		return nil
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "last_sync_update_count: 120")
	assert.Contains(t, string(raw), "linked_notebook_guid: ln-a")
	assert.Contains(t, string(raw), "linked_notebook_last_update_count: 3")

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Load(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, cp, got.Checkpoint())
	assert.Equal(t, "ln-a", got.LastSyncParams.LinkedNotebooks[0].Guid)
}

func TestFileStore_AccountsAreIsolated(t *testing.T) {
	store, err := NewFileStore("")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, testAccount, func(s *AccountSettings) error {
		s.Auth.NoteStoreURL = "https://www.example.com/shard/s1/notestore"
		return nil
	}))

	other, err := store.Load(ctx, Account{Host: "www.example.com", UserID: 7})
	require.NoError(t, err)
	assert.Empty(t, other.Auth.NoteStoreURL)
	assert.True(t, other.Checkpoint().IsFullSyncRequired())
}

func TestFileStore_UpdateErrorLeavesStateUntouched(t *testing.T) {
	store, err := NewFileStore("")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, testAccount, func(s *AccountSettings) error {
		s.Auth.ExpirationTimestamp = 10
		return nil
	}))

	boom := errors.New("boom")
	err = store.Update(ctx, testAccount, func(s *AccountSettings) error {
		s.Auth.ExpirationTimestamp = 20
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Load(ctx, testAccount)
	require.NoError(t, err)
	assert.EqualValues(t, 10, got.Auth.ExpirationTimestamp)
}

func TestFileStore_LoadReturnsCopy(t *testing.T) {
	store, err := NewFileStore("")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, testAccount, func(s *AccountSettings) error {
		s.Auth.LinkedNotebookExpirations = map[string]int64{"ln-1": 5}
		return nil
	}))

	got, err := store.Load(ctx, testAccount)
	require.NoError(t, err)
	got.Auth.LinkedNotebookExpirations["ln-1"] = 99

	again, err := store.Load(ctx, testAccount)
	require.NoError(t, err)
	assert.EqualValues(t, 5, again.Auth.LinkedNotebookExpirations["ln-1"])
}

func TestFileStore_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accounts: [unclosed"), 0o644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestAccountSettings_Limits(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := AccountSettings{}

	_, ok := s.Limits(now, time.Hour)
	assert.False(t, ok)

	s.AccountLimits = &LimitsRecord{
		AccountLimits: models.AccountLimits{NoteSizeMax: 25 << 20},
		FetchedAt:     now.Add(-30 * time.Minute),
	}
	limits, ok := s.Limits(now, time.Hour)
	assert.True(t, ok)
	assert.EqualValues(t, 25<<20, limits.NoteSizeMax)

	_, ok = s.Limits(now, 10*time.Minute)
	assert.False(t, ok)
}
