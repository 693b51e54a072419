package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-keeper/internal/store"
	"github.com/MKhiriev/go-note-keeper/models"
)

// countingSearches counts List calls and checks the cache between pages.
type countingSearches struct {
	store.Repository[models.SavedSearch]

	mu     sync.Mutex
	calls  int
	during func()
	err    error
}

func (r *countingSearches) List(ctx context.Context, opts store.ListOptions) ([]models.SavedSearch, error) {
	r.mu.Lock()
	r.calls++
	during, err := r.during, r.err
	r.mu.Unlock()

	if during != nil {
		during()
	}
	if err != nil {
		return nil, err
	}
	return r.Repository.List(ctx, opts)
}

func (r *countingSearches) listCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type countingStorage struct {
	store.LocalStorage
	searches *countingSearches
}

func (s *countingStorage) SavedSearches() store.Repository[models.SavedSearch] {
	return s.searches
}

func newCountingStorage(t *testing.T, searches int) (*store.AsyncStorage, *countingSearches) {
	t.Helper()
	ls, err := store.NewMemoryStorage("")
	require.NoError(t, err)

	for i := 0; i < searches; i++ {
		_, err = ls.SavedSearches().Add(context.Background(), models.SavedSearch{
			SyncMeta: models.SyncMeta{Guid: fmt.Sprintf("search-%03d", i), USN: int32(i + 1), Dirty: true},
			Name:     fmt.Sprintf("Search %03d", i),
			Query:    "tag:todo",
		})
		require.NoError(t, err)
	}

	counting := &countingSearches{Repository: ls.SavedSearches()}
	return newTestAsyncStorage(t, &countingStorage{LocalStorage: ls, searches: counting}), counting
}

// ── Fill ─────────────────────────────────────────────────────────────────────

func TestSyncCache_Fill_Pages(t *testing.T) {
	storage, repo := newCountingStorage(t, 120)
	cache := NewSyncCache[models.SavedSearch](storage, models.EntitySavedSearch, 50)

	var filledDuringList []bool
	repo.during = func() { filledDuringList = append(filledDuringList, cache.IsFilled()) }

	require.NoError(t, cache.Fill(context.Background()))

	assert.Equal(t, 3, repo.listCalls())
	assert.Equal(t, []bool{false, false, false}, filledDuringList)
	assert.True(t, cache.IsFilled())
	assert.Equal(t, 120, cache.Len())
	assert.Equal(t, 120, cache.DirtyLen())
}

func TestSyncCache_Fill_ExactPageMultiple(t *testing.T) {
	storage, repo := newCountingStorage(t, 100)
	cache := NewSyncCache[models.SavedSearch](storage, models.EntitySavedSearch, 50)

	require.NoError(t, cache.Fill(context.Background()))

	// The third, empty page tells the cache it is done.
	assert.Equal(t, 3, repo.listCalls())
	assert.Equal(t, 100, cache.Len())
}

func TestSyncCache_Fill_Twice_IsNoop(t *testing.T) {
	storage, repo := newCountingStorage(t, 10)
	cache := NewSyncCache[models.SavedSearch](storage, models.EntitySavedSearch, 50)

	require.NoError(t, cache.Fill(context.Background()))
	require.NoError(t, cache.Fill(context.Background()))

	assert.Equal(t, 1, repo.listCalls())
}

func TestSyncCache_Fill_Error_Clears(t *testing.T) {
	storage, repo := newCountingStorage(t, 10)
	repo.err = errors.New("disk on fire")
	cache := NewSyncCache[models.SavedSearch](storage, models.EntitySavedSearch, 50)

	err := cache.Fill(context.Background())

	require.Error(t, err)
	assert.False(t, cache.IsFilled())
	assert.Zero(t, cache.Len())
}

func TestSyncCache_Fill_DefaultPageSize(t *testing.T) {
	storage, repo := newCountingStorage(t, 60)
	cache := NewSyncCache[models.SavedSearch](storage, models.EntitySavedSearch, 0)

	require.NoError(t, cache.Fill(context.Background()))
	assert.Equal(t, 2, repo.listCalls())
}

// ── Lookups ──────────────────────────────────────────────────────────────────

func TestSyncCache_Lookups(t *testing.T) {
	storage := newTestStorage(t)
	synced := mustAdd(t, storage, models.EntityTag, models.Tag{
		SyncMeta: models.SyncMeta{Guid: "tag-1", USN: 4},
		Name:     "Travel",
	})
	fresh := mustAdd(t, storage, models.EntityTag, models.Tag{
		SyncMeta: models.SyncMeta{Dirty: true},
		Name:     "Draft",
	})
	mustAdd(t, storage, models.EntityTag, models.Tag{
		SyncMeta: models.SyncMeta{Guid: "tag-2", USN: 5, LinkedNotebookGuid: "ln-1"},
		Name:     "Travel",
	})

	cache := NewSyncCache[models.Tag](storage, models.EntityTag, 2)
	require.NoError(t, cache.Fill(context.Background()))

	guid, ok := cache.GuidByName("travel", "")
	require.True(t, ok)
	assert.Equal(t, "tag-1", guid)

	guid, ok = cache.GuidByName("TRAVEL", "ln-1")
	require.True(t, ok)
	assert.Equal(t, "tag-2", guid)

	_, ok = cache.GuidByName("Draft", "")
	assert.False(t, ok, "never synced entities have no guid")

	localID, ok := cache.LocalIDByName("draft", "")
	require.True(t, ok)
	assert.Equal(t, fresh.LocalID, localID)

	name, ok := cache.NameByGuid("tag-1")
	require.True(t, ok)
	assert.Equal(t, "Travel", name)

	name, ok = cache.NameByLocalID(synced.LocalID)
	require.True(t, ok)
	assert.Equal(t, "Travel", name)

	_, ok = cache.DirtyByGuid("tag-1")
	assert.False(t, ok)
}

// ── Notifications ────────────────────────────────────────────────────────────

func TestSyncCache_FollowsStorageChanges(t *testing.T) {
	storage := newTestStorage(t)
	cache := NewSyncCache[models.Notebook](storage, models.EntityNotebook, 10)
	require.NoError(t, cache.Fill(context.Background()))

	nb := mustAdd(t, storage, models.EntityNotebook, models.Notebook{
		SyncMeta: models.SyncMeta{Guid: "nb-1", USN: 1},
		Name:     "Inbox",
	})
	guid, ok := cache.GuidByName("Inbox", "")
	require.True(t, ok)
	assert.Equal(t, "nb-1", guid)

	nb.Name = "Archive"
	nb.Dirty = true
	mustUpdate(t, storage, models.EntityNotebook, nb)

	_, ok = cache.GuidByName("Inbox", "")
	assert.False(t, ok, "old name must be forgotten")
	name, _ := cache.NameByGuid("nb-1")
	assert.Equal(t, "Archive", name)
	dirty, ok := cache.DirtyByGuid("nb-1")
	require.True(t, ok)
	assert.Equal(t, "Archive", dirty.Name)

	c := storage.Do(context.Background(), store.Request{Op: store.OpExpungeByGuid, EntityType: models.EntityNotebook, Guid: "nb-1"})
	require.NoError(t, c.Err)

	_, ok = cache.NameByGuid("nb-1")
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}

func TestSyncCache_IgnoresOtherTypes(t *testing.T) {
	storage := newTestStorage(t)
	cache := NewSyncCache[models.Tag](storage, models.EntityTag, 10)
	require.NoError(t, cache.Fill(context.Background()))

	mustAdd(t, storage, models.EntityNotebook, models.Notebook{SyncMeta: models.SyncMeta{Guid: "nb-1", USN: 1}, Name: "Inbox"})

	assert.Zero(t, cache.Len())
}

func TestSyncCache_LinkedNotebookExpunge_DropsOwnedEntries(t *testing.T) {
	storage := newTestStorage(t)
	mustAdd(t, storage, models.EntityLinkedNotebook, models.LinkedNotebook{
		SyncMeta:  models.SyncMeta{Guid: "ln-1", USN: 1},
		ShareName: "Shared",
	})
	mustAdd(t, storage, models.EntityTag, models.Tag{SyncMeta: models.SyncMeta{Guid: "own", USN: 1}, Name: "Own"})
	mustAdd(t, storage, models.EntityTag, models.Tag{SyncMeta: models.SyncMeta{Guid: "shared", USN: 1, LinkedNotebookGuid: "ln-1"}, Name: "Shared"})

	cache := NewSyncCache[models.Tag](storage, models.EntityTag, 10)
	require.NoError(t, cache.Fill(context.Background()))
	require.Equal(t, 2, cache.Len())

	c := storage.Do(context.Background(), store.Request{Op: store.OpExpungeByGuid, EntityType: models.EntityLinkedNotebook, Guid: "ln-1"})
	require.NoError(t, c.Err)

	assert.Equal(t, 1, cache.Len())
	_, ok := cache.NameByGuid("shared")
	assert.False(t, ok)
	_, ok = cache.NameByGuid("own")
	assert.True(t, ok)
}

func TestSyncCache_Clear_Disconnects(t *testing.T) {
	storage := newTestStorage(t)
	cache := NewSyncCache[models.Tag](storage, models.EntityTag, 10)
	require.NoError(t, cache.Fill(context.Background()))

	cache.Clear()
	mustAdd(t, storage, models.EntityTag, models.Tag{SyncMeta: models.SyncMeta{Guid: "t", USN: 1}, Name: "Later"})

	assert.False(t, cache.IsFilled())
	assert.Zero(t, cache.Len())
}
