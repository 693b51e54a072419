package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-note-keeper/internal/adapter"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/mock"
	"github.com/MKhiriev/go-note-keeper/internal/store"
	"github.com/MKhiriev/go-note-keeper/models"
)

type sendFixture struct {
	remote  *mock.MockNoteService
	storage *store.AsyncStorage
	m       *SendLocalChangesManager
	events  *eventRecorder
}

func newSendFixture(t *testing.T, linkedAuth LinkedNotebookAuthProvider) *sendFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	remote := mock.NewMockNoteService(ctrl)
	storage := newTestStorage(t)

	m := NewSendLocalChangesManager(remote, storage, linkedAuth, 10, logger.Nop())
	m.SetAuthData(testAuth)
	rec := &eventRecorder{}
	m.Subscribe(rec.record)

	return &sendFixture{remote: remote, storage: storage, m: m, events: rec}
}

func TestSendLocalChanges_NothingDirty(t *testing.T) {
	f := newSendFixture(t, nil)
	mustAdd(t, f.storage, models.EntityTag, models.Tag{SyncMeta: models.SyncMeta{Guid: "t", USN: 3}, Name: "Clean"})

	res, err := f.m.Run(context.Background(), models.SyncCheckpoint{LastUpdateCount: 10})

	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.Equal(t, int32(10), res.Checkpoint.LastUpdateCount)
	assert.False(t, res.RepeatIncrementalSync)
	assert.Equal(t, SendFinished, f.m.State())
}

func TestSendLocalChanges_CreatesNewTag(t *testing.T) {
	f := newSendFixture(t, nil)
	local := mustAdd(t, f.storage, models.EntityTag, models.Tag{SyncMeta: models.SyncMeta{Dirty: true}, Name: "New"})

	f.remote.EXPECT().CreateTag(gomock.Any(), testCreds, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ adapter.Credentials, tag models.Tag) (models.Tag, error) {
			assert.Equal(t, "New", tag.Name)
			tag.Guid = "tag-new"
			tag.USN = 11
			return tag, nil
		})

	res, err := f.m.Run(context.Background(), models.SyncCheckpoint{LastUpdateCount: 10})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, int32(11), res.Checkpoint.LastUpdateCount)
	assert.False(t, res.RepeatIncrementalSync)

	stored, ok := findGuid[models.Tag](t, f.storage, models.EntityTag, "tag-new")
	require.True(t, ok)
	assert.Equal(t, local.LocalID, stored.LocalID)
	assert.Equal(t, int32(11), stored.USN)
	assert.False(t, stored.Dirty)

	sent := eventsOf[ChangesSent](f.events)
	require.Len(t, sent, 1)
	assert.Equal(t, 1, sent[0].Sent)
}

func TestSendLocalChanges_UsnGap_RequestsIncrementalSync(t *testing.T) {
	f := newSendFixture(t, nil)
	mustAdd(t, f.storage, models.EntityNotebook, models.Notebook{
		SyncMeta: models.SyncMeta{Guid: "nb-1", USN: 3, Dirty: true},
		Name:     "Inbox",
	})
	f.remote.EXPECT().UpdateNotebook(gomock.Any(), testCreds, gomock.Any()).Return(int32(13), nil)

	res, err := f.m.Run(context.Background(), models.SyncCheckpoint{LastUpdateCount: 10})

	require.NoError(t, err)
	assert.True(t, res.RepeatIncrementalSync)
	assert.Equal(t, int32(10), res.Checkpoint.LastUpdateCount, "checkpoint must not skip unseen changes")
	assert.Len(t, eventsOf[ShouldRepeatIncrementalSync](f.events), 1)

	nb, _ := findGuid[models.Notebook](t, f.storage, models.EntityNotebook, "nb-1")
	assert.Equal(t, int32(13), nb.USN)
	assert.False(t, nb.Dirty)
}

func TestSendLocalChanges_Conflict_StopsPass(t *testing.T) {
	f := newSendFixture(t, nil)
	mustAdd(t, f.storage, models.EntityTag, models.Tag{SyncMeta: models.SyncMeta{Guid: "tag-1", USN: 3, Dirty: true}, Name: "A"})
	mustAdd(t, f.storage, models.EntityNotebook, models.Notebook{SyncMeta: models.SyncMeta{Dirty: true}, Name: "Never sent"})

	f.remote.EXPECT().UpdateTag(gomock.Any(), testCreds, gomock.Any()).
		Return(int32(0), fmt.Errorf("update tag: %w", adapter.ErrDataConflict))

	res, err := f.m.Run(context.Background(), models.SyncCheckpoint{LastUpdateCount: 10})

	require.NoError(t, err)
	assert.True(t, res.Conflict)
	assert.Equal(t, int32(10), res.Checkpoint.LastUpdateCount)

	conflicts := eventsOf[ConflictDetected](f.events)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictDetected{EntityType: models.EntityTag, Guid: "tag-1"}, conflicts[0])
	assert.Empty(t, eventsOf[ChangesSent](f.events))

	tag, _ := findGuid[models.Tag](t, f.storage, models.EntityTag, "tag-1")
	assert.True(t, tag.Dirty, "rejected change stays dirty")
}

func TestSendLocalChanges_NoteGetsNotebookGuidFromSamePass(t *testing.T) {
	f := newSendFixture(t, nil)
	nb := mustAdd(t, f.storage, models.EntityNotebook, models.Notebook{SyncMeta: models.SyncMeta{Dirty: true}, Name: "Fresh"})
	mustAdd(t, f.storage, models.EntityNote, models.Note{
		SyncMeta:        models.SyncMeta{Dirty: true},
		Title:           "Draft",
		Content:         "<en-note/>",
		NotebookLocalID: nb.LocalID,
		Resources: []models.Resource{
			{SyncMeta: models.SyncMeta{Dirty: true}, Mime: "image/png", DataHash: []byte{7}},
		},
	})

	gomock.InOrder(
		f.remote.EXPECT().CreateNotebook(gomock.Any(), testCreds, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ adapter.Credentials, n models.Notebook) (models.Notebook, error) {
				n.Guid, n.USN = "nb-new", 11
				return n, nil
			}),
		f.remote.EXPECT().CreateNote(gomock.Any(), testCreds, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ adapter.Credentials, n models.Note) (models.Note, error) {
				assert.Equal(t, "nb-new", n.NotebookGuid)
				n.Guid, n.USN = "note-new", 12
				n.Resources = []models.Resource{
					{SyncMeta: models.SyncMeta{Guid: "res-new", USN: 12}, DataHash: []byte{7}},
				}
				return n, nil
			}),
	)

	res, err := f.m.Run(context.Background(), models.SyncCheckpoint{LastUpdateCount: 10})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, int32(12), res.Checkpoint.LastUpdateCount)

	note, ok := findGuid[models.Note](t, f.storage, models.EntityNote, "note-new")
	require.True(t, ok)
	assert.False(t, note.Dirty)
	assert.Equal(t, "nb-new", note.NotebookGuid)
	require.Len(t, note.Resources, 1)
	assert.Equal(t, "res-new", note.Resources[0].Guid)
	assert.False(t, note.Resources[0].Dirty)
}

func TestSendLocalChanges_NoteWithoutNotebook_Fails(t *testing.T) {
	f := newSendFixture(t, nil)
	mustAdd(t, f.storage, models.EntityNote, models.Note{SyncMeta: models.SyncMeta{Dirty: true}, Title: "Orphan"})

	_, err := f.m.Run(context.Background(), models.SyncCheckpoint{})

	require.ErrorIs(t, err, ErrMissingGuid)
	var ee *EntityError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, models.EntityNote, ee.EntityType)
	assert.Equal(t, SendFailed, f.m.State())
}

func TestSendLocalChanges_LocalOnlyEntitiesNeverSent(t *testing.T) {
	f := newSendFixture(t, nil)
	mustAdd(t, f.storage, models.EntitySavedSearch, models.SavedSearch{
		SyncMeta: models.SyncMeta{Dirty: true, Local: true},
		Name:     "Private",
	})

	res, err := f.m.Run(context.Background(), models.SyncCheckpoint{LastUpdateCount: 1})

	require.NoError(t, err)
	assert.Zero(t, res.Sent)
}

func TestSendLocalChanges_RemoteFailure(t *testing.T) {
	f := newSendFixture(t, nil)
	mustAdd(t, f.storage, models.EntitySavedSearch, models.SavedSearch{SyncMeta: models.SyncMeta{Dirty: true}, Name: "Todo"})
	f.remote.EXPECT().CreateSearch(gomock.Any(), testCreds, gomock.Any()).
		Return(models.SavedSearch{}, &adapter.EDAMError{Code: adapter.CodeBadDataFormat, Parameter: "SavedSearch.query"})

	_, err := f.m.Run(context.Background(), models.SyncCheckpoint{})

	var ee *EntityError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, models.EntitySavedSearch, ee.EntityType)
	assert.Equal(t, SendFailed, f.m.State())
	assert.Len(t, eventsOf[EntityFailure](f.events), 1)
	assert.Len(t, eventsOf[Failure](f.events), 1)
}

func TestSendLocalChanges_AuthExpired(t *testing.T) {
	f := newSendFixture(t, nil)
	mustAdd(t, f.storage, models.EntityTag, models.Tag{SyncMeta: models.SyncMeta{Dirty: true}, Name: "New"})
	f.remote.EXPECT().CreateTag(gomock.Any(), testCreds, gomock.Any()).Return(models.Tag{}, adapter.ErrAuthExpired)

	_, err := f.m.Run(context.Background(), models.SyncCheckpoint{})

	require.ErrorIs(t, err, adapter.ErrAuthExpired)
	var ee *EntityError
	assert.False(t, errors.As(err, &ee), "expired auth is not about one entity")
}

// ── Linked notebooks ─────────────────────────────────────────────────────────

func TestSendLocalChanges_LinkedNotebook(t *testing.T) {
	linkedAuth := &staticLinkedAuth{auth: models.LinkedNotebookAuth{AuthToken: "ln-token", ShardID: "s2"}}
	f := newSendFixture(t, linkedAuth)
	mustAdd(t, f.storage, models.EntityLinkedNotebook, models.LinkedNotebook{SyncMeta: models.SyncMeta{Guid: "ln-1", USN: 2}, ShareName: "Team"})
	mustAdd(t, f.storage, models.EntityLinkedNotebook, models.LinkedNotebook{SyncMeta: models.SyncMeta{Guid: "ln-2", USN: 3}, ShareName: "Idle"})
	mustAdd(t, f.storage, models.EntityNote, models.Note{
		SyncMeta:     models.SyncMeta{Guid: "note-1", USN: 5, Dirty: true, LinkedNotebookGuid: "ln-1"},
		Title:        "Shared draft",
		NotebookGuid: "nb-shared",
	})

	lnCreds := adapter.Credentials{AuthToken: "ln-token", ShardID: "s2"}
	f.remote.EXPECT().UpdateNote(gomock.Any(), lnCreds, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ adapter.Credentials, n models.Note) (models.Note, error) {
			n.USN = 6
			return n, nil
		})

	cp := models.SyncCheckpoint{
		LastUpdateCount: 10,
		LinkedNotebooks: map[string]models.LinkedNotebookCheckpoint{"ln-1": {UpdateCount: 5, SyncTime: 100}},
	}
	res, err := f.m.Run(context.Background(), cp)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, []string{"ln-1"}, linkedAuth.calls, "notebooks with nothing to send are not authenticated")
	assert.Equal(t, models.LinkedNotebookCheckpoint{UpdateCount: 6, SyncTime: 100}, res.Checkpoint.LinkedNotebooks["ln-1"])
	assert.Equal(t, int32(10), res.Checkpoint.LastUpdateCount)
}

func TestSendLocalChanges_LinkedNotebook_NoProvider(t *testing.T) {
	f := newSendFixture(t, nil)
	mustAdd(t, f.storage, models.EntityLinkedNotebook, models.LinkedNotebook{SyncMeta: models.SyncMeta{Guid: "ln-1", USN: 2}, ShareName: "Team"})
	mustAdd(t, f.storage, models.EntityTag, models.Tag{SyncMeta: models.SyncMeta{Dirty: true, LinkedNotebookGuid: "ln-1"}, Name: "Shared"})

	_, err := f.m.Run(context.Background(), models.SyncCheckpoint{})

	assert.ErrorIs(t, err, ErrNoAuthenticator)
}

func TestUsnChain(t *testing.T) {
	c := &usnChain{last: 10}
	c.observe(11)
	c.observe(12)
	assert.False(t, c.gap)
	assert.Equal(t, int32(12), c.last)

	c.observe(14)
	assert.True(t, c.gap)
	assert.Equal(t, int32(14), c.last)
}
