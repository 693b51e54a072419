package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/MKhiriev/go-note-keeper/internal/store"
	"github.com/MKhiriev/go-note-keeper/internal/utils"
	"github.com/MKhiriev/go-note-keeper/models"
)

// DefaultCachePageSize is the number of entities a cache lists per request.
const DefaultCachePageSize = 50

type cacheEntry[T any] struct {
	name  string
	guid  string
	lng   string
	dirty bool
	item  T
}

// SyncCache indexes the local entities of one kind by name, guid and local
// id, and keeps the dirty ones at hand. It is filled by paging through local
// storage and then maintained from storage notifications. The cache never
// talks to the remote service.
type SyncCache[T any] struct {
	storage    *store.AsyncStorage
	entityType models.EntityType
	pageSize   int
	meta       func(*T) *models.SyncMeta
	name       func(*T) string

	mu          sync.RWMutex
	connected   bool
	filled      bool
	pendingList uuid.UUID
	unsubscribe func()

	entries       map[string]cacheEntry[T]
	nameToGuid    map[string]string
	nameToLocalID map[string]string
	guidToName    map[string]string
	localIDToName map[string]string
	dirtyByGuid   map[string]T
}

// NewSyncCache builds an empty cache for entity type et.
func NewSyncCache[T any, P models.Syncable[T]](storage *store.AsyncStorage, et models.EntityType, pageSize int) *SyncCache[T] {
	if pageSize <= 0 {
		pageSize = DefaultCachePageSize
	}
	c := &SyncCache[T]{
		storage:    storage,
		entityType: et,
		pageSize:   pageSize,
		meta:       func(t *T) *models.SyncMeta { return P(t).Meta() },
		name:       func(t *T) string { return P(t).EntityName() },
	}
	c.reset()
	return c
}

// Fill lists every local entity of the cache's kind, one page at a time,
// until a page comes back short. Filling an already filled cache is a no-op.
// On failure the cache is cleared and disconnected.
func (c *SyncCache[T]) Fill(ctx context.Context) error {
	c.mu.Lock()
	if c.filled {
		c.mu.Unlock()
		return nil
	}
	if !c.connected {
		c.unsubscribe = c.storage.Subscribe(c.onNotification)
		c.connected = true
	}
	c.mu.Unlock()

	offset := 0
	for {
		n, err := c.listPage(ctx, offset)
		if err != nil {
			c.Clear()
			return fmt.Errorf("fill %s cache: %w", c.entityType, err)
		}
		if n < c.pageSize {
			break
		}
		offset += n
	}

	c.mu.Lock()
	c.filled = c.connected
	c.mu.Unlock()
	return nil
}

// IsFilled reports whether the cache is connected and no list request is
// outstanding.
func (c *SyncCache[T]) IsFilled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.filled && c.pendingList == uuid.Nil
}

// Clear drops every entry and disconnects from storage notifications.
func (c *SyncCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.connected = false
	c.filled = false
	c.pendingList = uuid.Nil
	c.reset()
}

func (c *SyncCache[T]) GuidByName(name, linkedNotebookGuid string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	guid, ok := c.nameToGuid[nameKey(linkedNotebookGuid, name)]
	return guid, ok
}

// LocalIDByName also finds entities that were never synced.
func (c *SyncCache[T]) LocalIDByName(name, linkedNotebookGuid string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	localID, ok := c.nameToLocalID[nameKey(linkedNotebookGuid, name)]
	return localID, ok
}

func (c *SyncCache[T]) NameByGuid(guid string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.guidToName[guid]
	return name, ok
}

func (c *SyncCache[T]) NameByLocalID(localID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.localIDToName[localID]
	return name, ok
}

func (c *SyncCache[T]) DirtyByGuid(guid string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.dirtyByGuid[guid]
	return item, ok
}

func (c *SyncCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *SyncCache[T]) DirtyLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.dirtyByGuid)
}

// listPage requests one page and returns its size. The page is applied on
// the storage worker, in order with notifications.
func (c *SyncCache[T]) listPage(ctx context.Context, offset int) (int, error) {
	id := utils.NewRequestID()

	c.mu.Lock()
	c.pendingList = id
	c.mu.Unlock()

	type pageResult struct {
		n   int
		err error
	}
	result := make(chan pageResult, 1)

	req := store.Request{
		ID:         id,
		Op:         store.OpList,
		EntityType: c.entityType,
		List: store.ListOptions{
			Limit:  c.pageSize,
			Offset: offset,
			Order:  store.OrderByLocalID,
		},
	}
	_, err := c.storage.Submit(ctx, req, func(comp store.Completion) {
		if comp.Err != nil {
			result <- pageResult{err: comp.Err}
			return
		}
		n, applyErr := c.applyPage(comp.Request.ID, comp.Result)
		result <- pageResult{n: n, err: applyErr}
	})
	if err != nil {
		return 0, err
	}

	select {
	case r := <-result:
		return r.n, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *SyncCache[T]) applyPage(id uuid.UUID, result any) (int, error) {
	items, ok := result.([]T)
	if !ok && result != nil {
		return 0, fmt.Errorf("list returned %T: %w", result, store.ErrInvalidEntity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if id != c.pendingList {
		return 0, fmt.Errorf("unexpected list completion %s", id)
	}
	c.pendingList = uuid.Nil
	for i := range items {
		c.put(items[i])
	}
	return len(items), nil
}

func (c *SyncCache[T]) onNotification(n store.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}

	if n.EntityType == models.EntityLinkedNotebook && n.Kind == store.Expunged {
		// Expunging a linked notebook cascades to everything it owns.
		for localID, e := range c.entries {
			if e.lng != "" && e.lng == n.Meta.Guid {
				c.remove(localID)
			}
		}
		return
	}
	if n.EntityType != c.entityType {
		return
	}

	switch n.Kind {
	case store.Added, store.Updated:
		if item, ok := n.Entity.(T); ok {
			c.put(item)
		}
	case store.Expunged:
		c.remove(n.Meta.LocalID)
	}
}

func (c *SyncCache[T]) put(item T) {
	meta := c.meta(&item)
	c.remove(meta.LocalID)

	e := cacheEntry[T]{
		name:  c.name(&item),
		guid:  meta.Guid,
		lng:   meta.LinkedNotebookGuid,
		dirty: meta.Dirty,
	}
	if e.dirty {
		e.item = item
	}
	c.entries[meta.LocalID] = e

	key := nameKey(e.lng, e.name)
	c.nameToLocalID[key] = meta.LocalID
	c.localIDToName[meta.LocalID] = e.name
	if e.guid != "" {
		c.nameToGuid[key] = e.guid
		c.guidToName[e.guid] = e.name
		if e.dirty {
			c.dirtyByGuid[e.guid] = item
		}
	}
}

func (c *SyncCache[T]) remove(localID string) {
	e, ok := c.entries[localID]
	if !ok {
		return
	}
	delete(c.entries, localID)

	key := nameKey(e.lng, e.name)
	if c.nameToLocalID[key] == localID {
		delete(c.nameToLocalID, key)
	}
	delete(c.localIDToName, localID)
	if e.guid != "" {
		if c.nameToGuid[key] == e.guid {
			delete(c.nameToGuid, key)
		}
		delete(c.guidToName, e.guid)
		delete(c.dirtyByGuid, e.guid)
	}
}

func (c *SyncCache[T]) reset() {
	c.entries = make(map[string]cacheEntry[T])
	c.nameToGuid = make(map[string]string)
	c.nameToLocalID = make(map[string]string)
	c.guidToName = make(map[string]string)
	c.localIDToName = make(map[string]string)
	c.dirtyByGuid = make(map[string]T)
}

// nameKey scopes a case-insensitive name to its linked notebook.
func nameKey(linkedNotebookGuid, name string) string {
	return linkedNotebookGuid + "\x00" + models.NameKey(name)
}
