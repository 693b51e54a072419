package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-keeper/internal/adapter"
	"github.com/MKhiriev/go-note-keeper/internal/credentials"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/store"
	"github.com/MKhiriev/go-note-keeper/models"
)

var (
	testAuth = models.AuthData{
		UserID:     1,
		AuthToken:  "S=s1:U=1:E=ffffffffff:C=0:P=1:A=test:V=2:H=0",
		ShardID:    "s1",
		Expiration: time.Now().Add(365 * 24 * time.Hour).UnixMilli(),
	}
	testCreds = adapter.Credentials{AuthToken: testAuth.AuthToken, ShardID: testAuth.ShardID}
)

func newTestStorage(t *testing.T) *store.AsyncStorage {
	t.Helper()
	ls, err := store.NewMemoryStorage("")
	require.NoError(t, err)
	return newTestAsyncStorage(t, ls)
}

func newTestAsyncStorage(t *testing.T, ls store.LocalStorage) *store.AsyncStorage {
	t.Helper()
	as := store.NewAsyncStorage(ls, logger.Nop())
	t.Cleanup(func() { _ = as.Close() })
	return as
}

func mustAdd[T any](t *testing.T, s *store.AsyncStorage, et models.EntityType, item T) T {
	t.Helper()
	c := s.Do(context.Background(), store.Request{Op: store.OpAdd, EntityType: et, Entity: item})
	require.NoError(t, c.Err)
	stored, ok := c.Result.(T)
	require.True(t, ok, "add %s returned %T", et, c.Result)
	return stored
}

func mustUpdate[T any](t *testing.T, s *store.AsyncStorage, et models.EntityType, item T) T {
	t.Helper()
	c := s.Do(context.Background(), store.Request{Op: store.OpUpdate, EntityType: et, Entity: item})
	require.NoError(t, c.Err)
	return c.Result.(T)
}

func findGuid[T any](t *testing.T, s *store.AsyncStorage, et models.EntityType, guid string) (T, bool) {
	t.Helper()
	var zero T
	c := s.Do(context.Background(), store.Request{Op: store.OpFindByGuid, EntityType: et, Guid: guid})
	if c.Err != nil {
		require.ErrorIs(t, c.Err, store.ErrNotFound)
		return zero, false
	}
	return c.Result.(T), true
}

func listItems[T any](t *testing.T, s *store.AsyncStorage, et models.EntityType) []T {
	t.Helper()
	c := s.Do(context.Background(), store.Request{Op: store.OpList, EntityType: et})
	require.NoError(t, c.Err)
	items, _ := c.Result.([]T)
	return items
}

// eventRecorder collects events from any emitter.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func eventsOf[E Event](r *eventRecorder) []E {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []E
	for _, ev := range r.events {
		if e, ok := ev.(E); ok {
			out = append(out, e)
		}
	}
	return out
}

// instantAfter replaces time.After and remembers every requested wait.
type instantAfter struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (a *instantAfter) after(d time.Duration) <-chan time.Time {
	a.mu.Lock()
	a.waits = append(a.waits, d)
	a.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

// memSecrets is an in-memory credentials.SecretStore.
type memSecrets struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemSecrets() *memSecrets {
	return &memSecrets{entries: make(map[string]string)}
}

func (s *memSecrets) ReadPassword(_ context.Context, service, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[service+"/"+key]
	if !ok {
		return "", credentials.ErrSecretNotFound
	}
	return v, nil
}

func (s *memSecrets) WritePassword(_ context.Context, service, key, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[service+"/"+key] = password
	return nil
}

func (s *memSecrets) DeletePassword(_ context.Context, service, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[service+"/"+key]; !ok {
		return credentials.ErrSecretNotFound
	}
	delete(s.entries, service+"/"+key)
	return nil
}

func (s *memSecrets) get(service, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[service+"/"+key]
	return v, ok
}

// staticLinkedAuth hands out one token for every linked notebook.
type staticLinkedAuth struct {
	mu    sync.Mutex
	calls []string
	auth  models.LinkedNotebookAuth
	err   error
}

func (a *staticLinkedAuth) LinkedNotebookAuth(_ context.Context, ln models.LinkedNotebook) (models.LinkedNotebookAuth, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, ln.Guid)
	auth := a.auth
	auth.Guid = ln.Guid
	return auth, a.err
}
