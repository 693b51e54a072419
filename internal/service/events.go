package service

import (
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-note-keeper/models"
)

// Component names the part of the engine an event comes from.
type Component string

const (
	ComponentRemoteToLocal    Component = "remote_to_local"
	ComponentSendLocalChanges Component = "send_local_changes"
	ComponentSyncManager      Component = "sync_manager"
	ComponentConflictResolver Component = "conflict_resolver"
)

// Event is anything the sync engine reports to its observers.
type Event interface {
	event()
}

// RateLimitExceeded is emitted when a remote call is postponed until Wait
// passes.
type RateLimitExceeded struct {
	Component Component
	Wait      time.Duration
}

type Paused struct {
	Component Component
}

type Resumed struct {
	Component Component
}

type Stopped struct {
	Component Component
}

// Failure ends a pass. Err may be an [*EntityError].
type Failure struct {
	Component Component
	Err       error
}

// EntityFailure reports a conflict resolution that failed for one entity.
type EntityFailure struct {
	EntityType models.EntityType
	Guid       string
	Err        error
}

type SyncChunksDownloaded struct {
	LinkedNotebookGuid string
}

type NotesDownloadProgress struct {
	LinkedNotebookGuid string
	Downloaded         int
	Total              int
}

type ExpungedFromServerToClient struct {
	LinkedNotebookGuid string
}

// RemoteToLocalFinished carries the checkpoint reached by a download pass.
type RemoteToLocalFinished struct {
	Checkpoint models.SyncCheckpoint
}

// ChangesSent carries the checkpoint reached by an upload pass.
type ChangesSent struct {
	Checkpoint models.SyncCheckpoint
	Sent       int
}

// ShouldRepeatIncrementalSync means the service saw changes from another
// client while local changes were being sent.
type ShouldRepeatIncrementalSync struct{}

// ConflictDetected means an upload was rejected because the remote entity
// changed since the last download.
type ConflictDetected struct {
	EntityType models.EntityType
	Guid       string
}

type AuthenticationFinished struct {
	UserID int32
}

type AuthenticationRevoked struct {
	UserID int32
}

type SyncFinished struct {
	Checkpoint models.SyncCheckpoint
}

func (RateLimitExceeded) event()           {}
func (Paused) event()                      {}
func (Resumed) event()                     {}
func (Stopped) event()                     {}
func (Failure) event()                     {}
func (EntityFailure) event()               {}
func (SyncChunksDownloaded) event()        {}
func (NotesDownloadProgress) event()       {}
func (ExpungedFromServerToClient) event()  {}
func (RemoteToLocalFinished) event()       {}
func (ChangesSent) event()                 {}
func (ShouldRepeatIncrementalSync) event() {}
func (ConflictDetected) event()            {}
func (AuthenticationFinished) event()      {}
func (AuthenticationRevoked) event()       {}
func (SyncFinished) event()                {}

// broadcaster fans events out to subscribed observers. Observers run on the
// emitting goroutine.
type broadcaster struct {
	mu        sync.RWMutex
	next      int
	observers map[int]func(Event)
}

func (b *broadcaster) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.observers == nil {
		b.observers = make(map[int]func(Event))
	}
	id := b.next
	b.next++
	b.observers[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.observers, id)
	}
}

func (b *broadcaster) emit(e Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.observers))
	for id := range b.observers {
		ids = append(ids, id)
	}
	observers := make([]func(Event), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		observers = append(observers, b.observers[id])
	}
	b.mu.RUnlock()

	for _, fn := range observers {
		fn(e)
	}
}
