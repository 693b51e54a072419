package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/go-note-keeper/internal/adapter"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/store"
	"github.com/MKhiriev/go-note-keeper/models"
)

// engine is the request plumbing shared by one manager and the resolvers it
// starts: remote calls and storage requests are both tracked in the same
// dispatcher and awaited by request id.
type engine struct {
	component Component
	remote    adapter.NoteService
	storage   *store.AsyncStorage
	disp      *dispatcher
	events    *broadcaster
	// after is time.After; tests replace it to observe rate limit waits.
	after  func(time.Duration) <-chan time.Time
	logger *logger.Logger
}

func newEngine(component Component, remote adapter.NoteService, storage *store.AsyncStorage, log *logger.Logger) *engine {
	return &engine{
		component: component,
		remote:    remote,
		storage:   storage,
		disp:      newDispatcher(),
		events:    &broadcaster{},
		after:     time.After,
		logger:    log,
	}
}

func (e *engine) emit(ev Event) {
	e.events.emit(ev)
}

// callRemote runs fn as a tracked request. A rate limit response postpones
// the call by the wait the service asked for and then reissues it; this is
// not counted as a failure.
func callRemote[R any](ctx context.Context, e *engine, name string, fn func(context.Context) (R, error)) (R, error) {
	var zero R
	for {
		id := e.disp.track(pendingOp{kind: pendingRemote, name: name})
		go func() {
			res, err := fn(ctx)
			e.disp.post(id, res, err)
		}()

		done, err := e.disp.await(ctx, id)
		if err != nil {
			e.disp.forget(id)
			return zero, err
		}

		c := done[id]
		if c.err == nil {
			res, _ := c.result.(R)
			return res, nil
		}

		wait, limited := adapter.AsRateLimit(c.err)
		if !limited {
			return zero, fmt.Errorf("%s: %w", name, c.err)
		}
		if wait <= 0 {
			return zero, fmt.Errorf("%s: %w", name, ErrInvalidRateLimit)
		}

		e.logger.Info().
			Str("component", string(e.component)).
			Str("call", name).
			Dur("wait", wait).
			Msg("rate limit reached, postponing call")
		e.emit(RateLimitExceeded{Component: e.component, Wait: wait})

		select {
		case <-e.after(wait):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (e *engine) submit(ctx context.Context, req store.Request, key string) (uuid.UUID, error) {
	id := e.disp.track(pendingOp{kind: pendingStorage, entityType: req.EntityType, name: req.Op.String(), key: key})
	req.ID = id

	_, err := e.storage.Submit(ctx, req, func(c store.Completion) {
		e.disp.post(c.Request.ID, c.Result, c.Err)
	})
	if err != nil {
		e.disp.forget(id)
		return uuid.Nil, err
	}
	return id, nil
}

func (e *engine) do(ctx context.Context, req store.Request) (any, error) {
	id, err := e.submit(ctx, req, "")
	if err != nil {
		return nil, err
	}

	done, err := e.disp.await(ctx, id)
	if err != nil {
		e.disp.forget(id)
		return nil, err
	}
	return done[id].result, done[id].err
}

func storageFind[T any](ctx context.Context, e *engine, req store.Request) (T, bool, error) {
	var zero T
	res, err := e.do(ctx, req)
	if errors.Is(err, store.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	item, ok := res.(T)
	if !ok {
		return zero, false, fmt.Errorf("%s %s returned %T: %w", req.Op, req.EntityType, res, store.ErrInvalidEntity)
	}
	return item, true, nil
}

func findByGuid[T any](ctx context.Context, e *engine, et models.EntityType, guid string) (T, bool, error) {
	return storageFind[T](ctx, e, store.Request{Op: store.OpFindByGuid, EntityType: et, Guid: guid})
}

func findByLocalID[T any](ctx context.Context, e *engine, et models.EntityType, localID string) (T, bool, error) {
	return storageFind[T](ctx, e, store.Request{Op: store.OpFindByLocalID, EntityType: et, LocalID: localID})
}

func findByName[T any](ctx context.Context, e *engine, et models.EntityType, name, linkedNotebookGuid string) (T, bool, error) {
	return storageFind[T](ctx, e, store.Request{
		Op:                 store.OpFindByName,
		EntityType:         et,
		Name:               name,
		LinkedNotebookGuid: linkedNotebookGuid,
	})
}

// findAllByGuid issues one lookup per guid at once and matches the
// completions back by request id. Guids missing locally are absent from the
// result.
func findAllByGuid[T any](ctx context.Context, e *engine, et models.EntityType, guids []string) (map[string]T, error) {
	ids := make([]uuid.UUID, 0, len(guids))
	for _, guid := range guids {
		id, err := e.submit(ctx, store.Request{Op: store.OpFindByGuid, EntityType: et, Guid: guid}, guid)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	done, err := e.disp.await(ctx, ids...)
	if err != nil {
		return nil, err
	}

	found := make(map[string]T, len(done))
	for _, c := range done {
		if errors.Is(c.err, store.ErrNotFound) {
			continue
		}
		if c.err != nil {
			return nil, fmt.Errorf("find %s %q: %w", et, c.op.key, c.err)
		}
		item, ok := c.result.(T)
		if !ok {
			return nil, fmt.Errorf("find %s returned %T: %w", et, c.result, store.ErrInvalidEntity)
		}
		found[c.op.key] = item
	}
	return found, nil
}

func storageAdd[T any](ctx context.Context, e *engine, et models.EntityType, item T) (T, error) {
	return storageWrite(ctx, e, store.OpAdd, et, item)
}

func storageUpdate[T any](ctx context.Context, e *engine, et models.EntityType, item T) (T, error) {
	return storageWrite(ctx, e, store.OpUpdate, et, item)
}

func storageWrite[T any](ctx context.Context, e *engine, op store.Op, et models.EntityType, item T) (T, error) {
	var zero T
	res, err := e.do(ctx, store.Request{Op: op, EntityType: et, Entity: item})
	if err != nil {
		return zero, err
	}
	stored, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%s %s returned %T: %w", op, et, res, store.ErrInvalidEntity)
	}
	return stored, nil
}

// expungeByGuid removes the entity with guid. A missing entity is not an
// error, which keeps repeated expunges idempotent.
func expungeByGuid(ctx context.Context, e *engine, et models.EntityType, guid string) (bool, error) {
	_, err := e.do(ctx, store.Request{Op: store.OpExpungeByGuid, EntityType: et, Guid: guid})
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func storageList[T any](ctx context.Context, e *engine, et models.EntityType, opts store.ListOptions) ([]T, error) {
	res, err := e.do(ctx, store.Request{Op: store.OpList, EntityType: et, List: opts})
	if err != nil {
		return nil, err
	}
	items, ok := res.([]T)
	if !ok && res != nil {
		return nil, fmt.Errorf("list %s returned %T: %w", et, res, store.ErrInvalidEntity)
	}
	return items, nil
}

// listAll pages through every entity matching opts.
func listAll[T any](ctx context.Context, e *engine, et models.EntityType, opts store.ListOptions, pageSize int) ([]T, error) {
	var all []T
	opts.Limit = pageSize
	opts.Offset = 0
	for {
		page, err := storageList[T](ctx, e, et, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		opts.Offset += len(page)
	}
}
