package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/MKhiriev/go-note-keeper/internal/utils"
	"github.com/MKhiriev/go-note-keeper/models"
)

// memRecord is the stored form of one entity. Items are kept encoded so that
// callers never share slices with the storage.
type memRecord struct {
	Meta    memMeta         `json:"meta"`
	Name    string          `json:"name"`
	Parent  string          `json:"parent,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type memMeta struct {
	LocalID            string `json:"local_id"`
	Guid               string `json:"guid,omitempty"`
	USN                int32  `json:"usn,omitempty"`
	Dirty              bool   `json:"dirty,omitempty"`
	Local              bool   `json:"local,omitempty"`
	LinkedNotebookGuid string `json:"linked_notebook_guid,omitempty"`
}

// memSpec mirrors tableSpec for the in-memory storage. Hooks run with the
// storage lock held.
type memSpec[T any, P models.Syncable[T]] struct {
	table string

	parentOf  func(P) string
	setParent func(P, string)
	strip     func(P)

	beforeWrite   func(P)
	afterWrite    func(P) error
	afterRead     func(P)
	beforeExpunge func(P)
}

type memRepository[T any, P models.Syncable[T]] struct {
	s     *memoryStorage
	spec  memSpec[T, P]
	newID func() string

	items     map[string]memRecord
	guidIndex map[string]string
}

func newMemRepository[T any, P models.Syncable[T]](s *memoryStorage, spec memSpec[T, P]) *memRepository[T, P] {
	return &memRepository[T, P]{
		s:         s,
		spec:      spec,
		newID:     utils.NewLocalID,
		items:     make(map[string]memRecord),
		guidIndex: make(map[string]string),
	}
}

func (r *memRepository[T, P]) Add(_ context.Context, item T) (T, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var zero T
	if err := r.insert(P(&item)); err != nil {
		return zero, fmt.Errorf("failed to add %s: %w", r.spec.table, err)
	}
	if err := r.s.persist(); err != nil {
		return zero, err
	}
	return r.read(r.items[P(&item).Meta().LocalID])
}

func (r *memRepository[T, P]) insert(p P) error {
	meta := p.Meta()
	if meta.LocalID == "" {
		meta.LocalID = r.newID()
	}
	if _, ok := r.items[meta.LocalID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := r.guidIndex[meta.Guid]; ok && meta.Guid != "" {
		return ErrAlreadyExists
	}
	return r.write(p)
}

func (r *memRepository[T, P]) write(p P) error {
	if r.spec.beforeWrite != nil {
		r.spec.beforeWrite(p)
	}
	rec, err := r.encode(p)
	if err != nil {
		return err
	}

	meta := p.Meta()
	if prev, ok := r.items[meta.LocalID]; ok && prev.Meta.Guid != "" {
		delete(r.guidIndex, prev.Meta.Guid)
	}
	r.items[meta.LocalID] = rec
	if meta.Guid != "" {
		r.guidIndex[meta.Guid] = meta.LocalID
	}

	if r.spec.afterWrite != nil {
		return r.spec.afterWrite(p)
	}
	return nil
}

func (r *memRepository[T, P]) Update(_ context.Context, item T) (T, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var zero T
	p := P(&item)
	meta := p.Meta()
	switch {
	case meta.LocalID != "":
		if _, ok := r.items[meta.LocalID]; !ok {
			return zero, fmt.Errorf("failed to update %s (local_id=%s): %w", r.spec.table, meta.LocalID, ErrNotFound)
		}
	case meta.Guid != "":
		localID, ok := r.guidIndex[meta.Guid]
		if !ok {
			return zero, fmt.Errorf("failed to update %s (guid=%s): %w", r.spec.table, meta.Guid, ErrNotFound)
		}
		meta.LocalID = localID
	default:
		return zero, fmt.Errorf("update %s without local id and guid: %w", r.spec.table, ErrInvalidEntity)
	}

	if owner, ok := r.guidIndex[meta.Guid]; ok && meta.Guid != "" && owner != meta.LocalID {
		return zero, fmt.Errorf("failed to update %s (guid=%s): %w", r.spec.table, meta.Guid, ErrAlreadyExists)
	}

	if err := r.write(p); err != nil {
		return zero, fmt.Errorf("failed to update %s: %w", r.spec.table, err)
	}
	if err := r.s.persist(); err != nil {
		return zero, err
	}
	return r.read(r.items[meta.LocalID])
}

func (r *memRepository[T, P]) FindByLocalID(_ context.Context, localID string) (T, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.items[localID]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return r.read(rec)
}

func (r *memRepository[T, P]) FindByGuid(_ context.Context, guid string) (T, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	localID, ok := r.guidIndex[guid]
	if !ok || guid == "" {
		var zero T
		return zero, ErrNotFound
	}
	return r.read(r.items[localID])
}

func (r *memRepository[T, P]) FindByName(_ context.Context, name, linkedNotebookGuid string) (T, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, localID := range r.sortedLocalIDs() {
		rec := r.items[localID]
		if rec.Meta.LinkedNotebookGuid == linkedNotebookGuid && models.NameKey(rec.Name) == models.NameKey(name) {
			return r.read(rec)
		}
	}
	var zero T
	return zero, ErrNotFound
}

func (r *memRepository[T, P]) ExpungeByGuid(_ context.Context, guid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	localID, ok := r.guidIndex[guid]
	if !ok || guid == "" {
		return fmt.Errorf("failed to expunge %s (guid=%s): %w", r.spec.table, guid, ErrNotFound)
	}
	return r.expunge(localID)
}

func (r *memRepository[T, P]) ExpungeByLocalID(_ context.Context, localID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.items[localID]; !ok {
		return fmt.Errorf("failed to expunge %s (local_id=%s): %w", r.spec.table, localID, ErrNotFound)
	}
	return r.expunge(localID)
}

func (r *memRepository[T, P]) expunge(localID string) error {
	if r.spec.beforeExpunge != nil {
		item, err := r.decode(r.items[localID])
		if err != nil {
			return err
		}
		r.spec.beforeExpunge(P(&item))
	}
	r.remove(localID)
	return r.s.persist()
}

func (r *memRepository[T, P]) List(_ context.Context, opts ListOptions) ([]T, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var recs []memRecord
	for _, rec := range r.items {
		if opts.OnlyDirty && !rec.Meta.Dirty {
			continue
		}
		if opts.LinkedNotebookGuid != nil && rec.Meta.LinkedNotebookGuid != *opts.LinkedNotebookGuid {
			continue
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		less := lessRecords(recs[i], recs[j], opts.Order)
		if opts.Direction == Descending {
			return lessRecords(recs[j], recs[i], opts.Order)
		}
		return less
	})

	if opts.Offset >= len(recs) {
		return nil, nil
	}
	recs = recs[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(recs) {
		recs = recs[:opts.Limit]
	}

	items := make([]T, 0, len(recs))
	for _, rec := range recs {
		item, err := r.read(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func lessRecords(a, b memRecord, order Order) bool {
	switch order {
	case OrderByName:
		if ka, kb := models.NameKey(a.Name), models.NameKey(b.Name); ka != kb {
			return ka < kb
		}
	case OrderByUSN:
		if a.Meta.USN != b.Meta.USN {
			return a.Meta.USN < b.Meta.USN
		}
	}
	return a.Meta.LocalID < b.Meta.LocalID
}

func (r *memRepository[T, P]) remove(localID string) {
	rec, ok := r.items[localID]
	if !ok {
		return
	}
	if rec.Meta.Guid != "" {
		delete(r.guidIndex, rec.Meta.Guid)
	}
	delete(r.items, localID)
}

func (r *memRepository[T, P]) removeWhere(match func(memRecord) bool) {
	for _, localID := range r.localIDsWhere(match) {
		r.remove(localID)
	}
}

func (r *memRepository[T, P]) localIDsWhere(match func(memRecord) bool) []string {
	var ids []string
	for localID, rec := range r.items {
		if match(rec) {
			ids = append(ids, localID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *memRepository[T, P]) collect(match func(memRecord) bool) []T {
	var out []T
	for _, localID := range r.localIDsWhere(match) {
		item, err := r.decode(r.items[localID])
		if err != nil {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (r *memRepository[T, P]) sortedLocalIDs() []string {
	return r.localIDsWhere(func(memRecord) bool { return true })
}

func (r *memRepository[T, P]) restore(items map[string]memRecord) {
	for localID, rec := range items {
		r.items[localID] = rec
		if rec.Meta.Guid != "" {
			r.guidIndex[rec.Meta.Guid] = localID
		}
	}
}

func (r *memRepository[T, P]) read(rec memRecord) (T, error) {
	item, err := r.decode(rec)
	if err != nil {
		return item, err
	}
	if r.spec.afterRead != nil {
		r.spec.afterRead(P(&item))
	}
	return item, nil
}

func (r *memRepository[T, P]) encode(p P) (memRecord, error) {
	stored := *p
	if r.spec.strip != nil {
		r.spec.strip(P(&stored))
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return memRecord{}, fmt.Errorf("%w: %w", ErrEncodingPayload, err)
	}

	meta := p.Meta()
	rec := memRecord{
		Meta: memMeta{
			LocalID:            meta.LocalID,
			Guid:               meta.Guid,
			USN:                meta.USN,
			Dirty:              meta.Dirty,
			Local:              meta.Local,
			LinkedNotebookGuid: meta.LinkedNotebookGuid,
		},
		Name:    p.EntityName(),
		Payload: payload,
	}
	if r.spec.parentOf != nil {
		rec.Parent = r.spec.parentOf(p)
	}
	return rec, nil
}

func (r *memRepository[T, P]) decode(rec memRecord) (T, error) {
	var item T
	if err := json.Unmarshal(rec.Payload, &item); err != nil {
		return item, fmt.Errorf("%w: %w", ErrEncodingPayload, err)
	}
	p := P(&item)
	*p.Meta() = models.SyncMeta{
		LocalID:            rec.Meta.LocalID,
		Guid:               rec.Meta.Guid,
		USN:                rec.Meta.USN,
		Dirty:              rec.Meta.Dirty,
		Local:              rec.Meta.Local,
		LinkedNotebookGuid: rec.Meta.LinkedNotebookGuid,
	}
	if r.spec.setParent != nil {
		r.spec.setParent(p, rec.Parent)
	}
	return item, nil
}

type memUserRepository struct {
	s     *memoryStorage
	users map[int32]models.User
}

func (r *memUserRepository) PutUser(_ context.Context, user models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.users[user.ID] = user
	return r.s.persist()
}

func (r *memUserRepository) FindUser(_ context.Context, id int32) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}
