package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/MKhiriev/go-note-keeper/internal/utils"
	"github.com/MKhiriev/go-note-keeper/models"
)

type pendingKind int

const (
	pendingStorage pendingKind = iota + 1
	pendingRemote
)

// pendingOp is what an outstanding request was issued for.
type pendingOp struct {
	kind       pendingKind
	entityType models.EntityType
	name       string
	// key is the guid, name or local id the request refers to.
	key string
}

type completion struct {
	id     uuid.UUID
	op     pendingOp
	result any
	err    error
}

// dispatcher is the table of outstanding requests of one manager. Every
// asynchronous completion is matched back to its request by id; completions
// of requests that are no longer in the table are dropped.
type dispatcher struct {
	mu      sync.Mutex
	pending map[uuid.UUID]pendingOp
	ready   map[uuid.UUID]completion
	signal  chan struct{}
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		pending: make(map[uuid.UUID]pendingOp),
		ready:   make(map[uuid.UUID]completion),
		signal:  make(chan struct{}, 1),
	}
}

// track registers op and returns the id its completion has to carry.
func (d *dispatcher) track(op pendingOp) uuid.UUID {
	id := utils.NewRequestID()

	d.mu.Lock()
	d.pending[id] = op
	d.mu.Unlock()

	return id
}

// post delivers the completion of request id. It never blocks.
func (d *dispatcher) post(id uuid.UUID, result any, err error) {
	d.mu.Lock()
	op, ok := d.pending[id]
	if ok {
		d.ready[id] = completion{id: id, op: op, result: result, err: err}
	}
	d.mu.Unlock()

	if !ok {
		return
	}
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// await blocks until every request in ids completed or ctx is done.
// Completions are returned in any order, keyed by request id.
func (d *dispatcher) await(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]completion, error) {
	out := make(map[uuid.UUID]completion, len(ids))
	for {
		d.mu.Lock()
		for _, id := range ids {
			if _, done := out[id]; done {
				continue
			}
			if c, ok := d.ready[id]; ok {
				out[id] = c
				delete(d.ready, id)
				delete(d.pending, id)
			}
		}
		d.mu.Unlock()

		if len(out) == len(ids) {
			return out, nil
		}

		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-d.signal:
		}
	}
}

// forget drops one request, e.g. when it could not be submitted.
func (d *dispatcher) forget(id uuid.UUID) {
	d.mu.Lock()
	delete(d.pending, id)
	delete(d.ready, id)
	d.mu.Unlock()
}

// reset drops every outstanding request so late completions become no-ops.
func (d *dispatcher) reset() {
	d.mu.Lock()
	clear(d.pending)
	clear(d.ready)
	d.mu.Unlock()
}

func (d *dispatcher) outstanding() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
