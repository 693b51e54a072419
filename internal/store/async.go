package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/utils"
	"github.com/MKhiriev/go-note-keeper/models"
)

// Op is the operation an asynchronous storage [Request] performs.
type Op int

const (
	OpAdd Op = iota + 1
	OpUpdate
	OpFindByLocalID
	OpFindByGuid
	OpFindByName
	OpExpungeByGuid
	OpExpungeByLocalID
	OpList
	OpPutUser
	OpFindUser
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpFindByLocalID:
		return "find_by_local_id"
	case OpFindByGuid:
		return "find_by_guid"
	case OpFindByName:
		return "find_by_name"
	case OpExpungeByGuid:
		return "expunge_by_guid"
	case OpExpungeByLocalID:
		return "expunge_by_local_id"
	case OpList:
		return "list"
	case OpPutUser:
		return "put_user"
	case OpFindUser:
		return "find_user"
	default:
		return "unknown"
	}
}

// Request is one asynchronous storage call. Entity carries the value for
// add/update (a models value such as models.Notebook, or models.User for
// OpPutUser).
type Request struct {
	ID         uuid.UUID
	Op         Op
	EntityType models.EntityType

	Entity             any
	LocalID            string
	Guid               string
	Name               string
	LinkedNotebookGuid string
	UserID             int32
	List               ListOptions
}

// Completion is the answer to a [Request]. Result holds the stored entity,
// a slice of entities for OpList, or nil for expunges.
type Completion struct {
	Request Request
	Result  any
	Err     error
}

// NotificationKind tells what happened to an entity.
type NotificationKind int

const (
	Added NotificationKind = iota + 1
	Updated
	Expunged
)

// Notification is broadcast to observers after every successful mutation.
type Notification struct {
	Kind       NotificationKind
	EntityType models.EntityType
	// Entity is the stored value after add/update and the removed value
	// after an expunge.
	Entity any
	Meta   models.SyncMeta
}

type asyncJob struct {
	ctx   context.Context
	req   Request
	reply func(Completion)
}

// AsyncStorage runs storage requests one at a time on a dedicated worker
// goroutine. Each request completes with a [Completion] carrying the id of
// the request.
type AsyncStorage struct {
	storage LocalStorage
	logger  *logger.Logger

	jobs chan asyncJob
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	mu        sync.RWMutex
	nextObs   int
	observers map[int]func(Notification)
}

// NewAsyncStorage starts the worker goroutine serving storage.
func NewAsyncStorage(storage LocalStorage, log *logger.Logger) *AsyncStorage {
	a := &AsyncStorage{
		storage:   storage,
		logger:    log,
		jobs:      make(chan asyncJob, 64),
		done:      make(chan struct{}),
		observers: make(map[int]func(Notification)),
	}

	a.wg.Add(1)
	go a.run()

	return a
}

// Storage returns the wrapped storage.
func (a *AsyncStorage) Storage() LocalStorage {
	return a.storage
}

// Subscribe registers fn to receive every notification. fn runs on the
// worker goroutine and must not submit requests synchronously.
func (a *AsyncStorage) Subscribe(fn func(Notification)) (unsubscribe func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextObs
	a.nextObs++
	a.observers[id] = fn

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.observers, id)
	}
}

// Submit queues req and returns its id. reply is called on the worker
// goroutine once the request completes. A zero req.ID is replaced by a
// fresh one.
func (a *AsyncStorage) Submit(ctx context.Context, req Request, reply func(Completion)) (uuid.UUID, error) {
	if req.ID == uuid.Nil {
		req.ID = utils.NewRequestID()
	}

	select {
	case <-a.done:
		return uuid.Nil, ErrStorageClosed
	default:
	}

	select {
	case a.jobs <- asyncJob{ctx: ctx, req: req, reply: reply}:
		return req.ID, nil
	case <-a.done:
		return uuid.Nil, ErrStorageClosed
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// Do submits req and waits for its completion.
func (a *AsyncStorage) Do(ctx context.Context, req Request) Completion {
	result := make(chan Completion, 1)
	if _, err := a.Submit(ctx, req, func(c Completion) { result <- c }); err != nil {
		return Completion{Request: req, Err: err}
	}

	select {
	case c := <-result:
		return c
	case <-ctx.Done():
		return Completion{Request: req, Err: ctx.Err()}
	}
}

// Close stops the worker. Queued requests that were not started yet are
// completed with [ErrStorageClosed].
func (a *AsyncStorage) Close() error {
	a.once.Do(func() {
		close(a.done)
	})
	a.wg.Wait()
	return a.storage.Close()
}

func (a *AsyncStorage) run() {
	defer a.wg.Done()

	for {
		select {
		case <-a.done:
			a.drain()
			return
		case job := <-a.jobs:
			a.serve(job)
		}
	}
}

func (a *AsyncStorage) drain() {
	for {
		select {
		case job := <-a.jobs:
			if job.reply != nil {
				job.reply(Completion{Request: job.req, Err: ErrStorageClosed})
			}
		default:
			return
		}
	}
}

func (a *AsyncStorage) serve(job asyncJob) {
	ctx := a.logger.WithContext(job.ctx)
	if err := ctx.Err(); err != nil {
		if job.reply != nil {
			job.reply(Completion{Request: job.req, Err: err})
		}
		return
	}

	result, note, err := a.execute(ctx, job.req)
	if err != nil {
		a.logger.Debug().
			Err(err).
			Str("func", "AsyncStorage.serve").
			Str("request_id", job.req.ID.String()).
			Str("op", job.req.Op.String()).
			Str("entity_type", job.req.EntityType.String()).
			Msg("storage request failed")
	}

	if err == nil && note != nil {
		a.notify(*note)
	}
	if job.reply != nil {
		job.reply(Completion{Request: job.req, Result: result, Err: err})
	}
}

func (a *AsyncStorage) notify(n Notification) {
	a.mu.RLock()
	observers := make([]func(Notification), 0, len(a.observers))
	for _, fn := range a.observers {
		observers = append(observers, fn)
	}
	a.mu.RUnlock()

	for _, fn := range observers {
		fn(n)
	}
}

func (a *AsyncStorage) execute(ctx context.Context, req Request) (any, *Notification, error) {
	switch req.Op {
	case OpPutUser:
		user, ok := req.Entity.(models.User)
		if !ok {
			return nil, nil, fmt.Errorf("put user with %T: %w", req.Entity, ErrInvalidEntity)
		}
		return user, nil, a.storage.Users().PutUser(ctx, user)
	case OpFindUser:
		user, err := a.storage.Users().FindUser(ctx, req.UserID)
		return user, nil, err
	}

	switch req.EntityType {
	case models.EntityNotebook:
		return execute(ctx, a.storage.Notebooks(), req)
	case models.EntityTag:
		return execute(ctx, a.storage.Tags(), req)
	case models.EntitySavedSearch:
		return execute(ctx, a.storage.SavedSearches(), req)
	case models.EntityNote:
		return execute(ctx, a.storage.Notes(), req)
	case models.EntityResource:
		return execute(ctx, a.storage.Resources(), req)
	case models.EntityLinkedNotebook:
		return execute(ctx, a.storage.LinkedNotebooks(), req)
	default:
		return nil, nil, fmt.Errorf("%s on %s: %w", req.Op, req.EntityType, ErrUnsupportedOperation)
	}
}

func execute[T any, P models.Syncable[T]](ctx context.Context, repo Repository[T], req Request) (any, *Notification, error) {
	switch req.Op {
	case OpAdd, OpUpdate:
		item, ok := req.Entity.(T)
		if !ok {
			return nil, nil, fmt.Errorf("%s %s with %T: %w", req.Op, req.EntityType, req.Entity, ErrInvalidEntity)
		}
		kind := Added
		var err error
		if req.Op == OpAdd {
			item, err = repo.Add(ctx, item)
		} else {
			kind = Updated
			item, err = repo.Update(ctx, item)
		}
		if err != nil {
			return nil, nil, err
		}
		return item, &Notification{Kind: kind, EntityType: req.EntityType, Entity: item, Meta: *P(&item).Meta()}, nil

	case OpFindByLocalID:
		item, err := repo.FindByLocalID(ctx, req.LocalID)
		return orNil(item, err)
	case OpFindByGuid:
		item, err := repo.FindByGuid(ctx, req.Guid)
		return orNil(item, err)
	case OpFindByName:
		item, err := repo.FindByName(ctx, req.Name, req.LinkedNotebookGuid)
		return orNil(item, err)

	case OpExpungeByGuid, OpExpungeByLocalID:
		var (
			item T
			err  error
		)
		if req.Op == OpExpungeByGuid {
			item, err = repo.FindByGuid(ctx, req.Guid)
		} else {
			item, err = repo.FindByLocalID(ctx, req.LocalID)
		}
		if err != nil {
			return nil, nil, err
		}
		if err = repo.ExpungeByLocalID(ctx, P(&item).Meta().LocalID); err != nil {
			return nil, nil, err
		}
		return nil, &Notification{Kind: Expunged, EntityType: req.EntityType, Entity: item, Meta: *P(&item).Meta()}, nil

	case OpList:
		items, err := repo.List(ctx, req.List)
		if err != nil {
			return nil, nil, err
		}
		return items, nil, nil
	}

	return nil, nil, fmt.Errorf("%s on %s: %w", req.Op, req.EntityType, ErrUnsupportedOperation)
}

func orNil[T any](item T, err error) (any, *Notification, error) {
	if err != nil {
		return nil, nil, err
	}
	return item, nil, nil
}
