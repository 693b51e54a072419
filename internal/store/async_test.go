package store

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/models"
)

func newTestAsyncStorage(t *testing.T) *AsyncStorage {
	t.Helper()
	ls, err := NewMemoryStorage("")
	require.NoError(t, err)
	a := NewAsyncStorage(ls, logger.Nop())
	t.Cleanup(func() { _ = a.Close() })
	return a
}

type notificationRecorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *notificationRecorder) record(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *notificationRecorder) kinds() []NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotificationKind, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Kind)
	}
	return out
}

func TestAsyncStorage_DoRoundTrip(t *testing.T) {
	a := newTestAsyncStorage(t)
	rec := &notificationRecorder{}
	a.Subscribe(rec.record)
	ctx := context.Background()

	added := a.Do(ctx, Request{Op: OpAdd, EntityType: models.EntityTag, Entity: models.Tag{SyncMeta: models.SyncMeta{Guid: "g"}, Name: "Work"}})
	require.NoError(t, added.Err)
	tag := added.Result.(models.Tag)
	assert.NotEmpty(t, tag.LocalID)
	assert.NotEqual(t, uuid.Nil, added.Request.ID)

	found := a.Do(ctx, Request{Op: OpFindByName, EntityType: models.EntityTag, Name: "work"})
	require.NoError(t, found.Err)
	assert.Equal(t, tag, found.Result)

	tag.Name = "Home"
	updated := a.Do(ctx, Request{Op: OpUpdate, EntityType: models.EntityTag, Entity: tag})
	require.NoError(t, updated.Err)

	listed := a.Do(ctx, Request{Op: OpList, EntityType: models.EntityTag})
	require.NoError(t, listed.Err)
	assert.Len(t, listed.Result.([]models.Tag), 1)

	expunged := a.Do(ctx, Request{Op: OpExpungeByGuid, EntityType: models.EntityTag, Guid: "g"})
	require.NoError(t, expunged.Err)
	assert.Nil(t, expunged.Result)

	assert.Equal(t, []NotificationKind{Added, Updated, Expunged}, rec.kinds())
	rec.mu.Lock()
	last := rec.notes[2]
	rec.mu.Unlock()
	assert.Equal(t, "Home", last.Entity.(models.Tag).Name)
	assert.Equal(t, tag.LocalID, last.Meta.LocalID)
}

func TestAsyncStorage_NotifiesBeforeReply(t *testing.T) {
	a := newTestAsyncStorage(t)
	var notified bool
	a.Subscribe(func(Notification) { notified = true })

	c := a.Do(context.Background(), Request{Op: OpAdd, EntityType: models.EntityNotebook, Entity: models.Notebook{Name: "Inbox"}})

	require.NoError(t, c.Err)
	assert.True(t, notified)
}

func TestAsyncStorage_FailuresAreNotBroadcast(t *testing.T) {
	a := newTestAsyncStorage(t)
	rec := &notificationRecorder{}
	a.Subscribe(rec.record)
	ctx := context.Background()

	c := a.Do(ctx, Request{Op: OpExpungeByGuid, EntityType: models.EntityNote, Guid: "missing"})
	assert.ErrorIs(t, c.Err, ErrNotFound)

	c = a.Do(ctx, Request{Op: OpAdd, EntityType: models.EntityTag, Entity: models.Notebook{}})
	assert.ErrorIs(t, c.Err, ErrInvalidEntity)

	c = a.Do(ctx, Request{Op: OpList, EntityType: models.EntityUnknown})
	assert.ErrorIs(t, c.Err, ErrUnsupportedOperation)

	assert.Empty(t, rec.kinds())
}

func TestAsyncStorage_Users(t *testing.T) {
	a := newTestAsyncStorage(t)
	ctx := context.Background()

	put := a.Do(ctx, Request{Op: OpPutUser, Entity: models.User{ID: 3, Username: "ann"}})
	require.NoError(t, put.Err)

	found := a.Do(ctx, Request{Op: OpFindUser, UserID: 3})
	require.NoError(t, found.Err)
	assert.Equal(t, "ann", found.Result.(models.User).Username)

	missing := a.Do(ctx, Request{Op: OpFindUser, UserID: 4})
	assert.ErrorIs(t, missing.Err, ErrNotFound)
}

func TestAsyncStorage_SubmitKeepsRequestID(t *testing.T) {
	a := newTestAsyncStorage(t)
	id := uuid.New()
	done := make(chan Completion, 1)

	got, err := a.Submit(context.Background(), Request{ID: id, Op: OpList, EntityType: models.EntityTag}, func(c Completion) {
		done <- c
	})

	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, id, (<-done).Request.ID)
}

func TestAsyncStorage_Unsubscribe(t *testing.T) {
	a := newTestAsyncStorage(t)
	rec := &notificationRecorder{}
	unsubscribe := a.Subscribe(rec.record)
	unsubscribe()

	c := a.Do(context.Background(), Request{Op: OpAdd, EntityType: models.EntityTag, Entity: models.Tag{Name: "x"}})

	require.NoError(t, c.Err)
	assert.Empty(t, rec.kinds())
}

func TestAsyncStorage_CanceledRequest(t *testing.T) {
	a := newTestAsyncStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := a.Do(ctx, Request{Op: OpList, EntityType: models.EntityTag})

	assert.ErrorIs(t, c.Err, context.Canceled)
}

func TestAsyncStorage_Closed(t *testing.T) {
	ls, err := NewMemoryStorage("")
	require.NoError(t, err)
	a := NewAsyncStorage(ls, logger.Nop())
	require.NoError(t, a.Close())

	c := a.Do(context.Background(), Request{Op: OpList, EntityType: models.EntityTag})

	assert.ErrorIs(t, c.Err, ErrStorageClosed)
	assert.NoError(t, a.Close(), "closing twice is fine")
}
