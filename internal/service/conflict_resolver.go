package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-note-keeper/internal/adapter"
	"github.com/MKhiriev/go-note-keeper/models"
)

// ResolverState is the state of one conflict resolution.
type ResolverState int

const (
	ResolverCreated ResolverState = iota
	ResolverComparing
	ResolverUpdatingLocal
	ResolverDownloadingRemote
	ResolverOverriding
	ResolverPersisting
	ResolverFinished
	ResolverFailed
)

func (s ResolverState) String() string {
	switch s {
	case ResolverCreated:
		return "created"
	case ResolverComparing:
		return "comparing"
	case ResolverUpdatingLocal:
		return "updating_local"
	case ResolverDownloadingRemote:
		return "downloading_remote"
	case ResolverOverriding:
		return "overriding"
	case ResolverPersisting:
		return "persisting"
	case ResolverFinished:
		return "finished"
	case ResolverFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// conflictingSuffix is appended to the name of a local entity moved out of
// the way of a remote one.
const conflictingSuffix = " - conflicting"

// conflictResolver resolves one pair of remote and local entities sharing a
// guid. It runs once; a second Resolve fails with [ErrResolverStarted].
//
// A local entity at or ahead of the remote USN wins without touching
// storage. A clean local entity is overridden by the remote one. A dirty
// local entity is detached from its guid and kept as a new item to upload,
// and the remote entity is added next to it.
type conflictResolver[T any, P models.Syncable[T]] struct {
	e      *engine
	kind   syncKind[T]
	remote T
	local  T

	// download fetches the complete remote entity before it is stored.
	download func(ctx context.Context, remote T) (T, error)
	// merge produces the local record overridden by remote.
	merge func(local, remote T) T
	// detach moves a dirty local record off its guid.
	detach func(local T) T

	mu    sync.Mutex
	state ResolverState
}

func newConflictResolver[T any, P models.Syncable[T]](e *engine, k syncKind[T], remote, local T) *conflictResolver[T, P] {
	return &conflictResolver[T, P]{
		e:      e,
		kind:   k,
		remote: remote,
		local:  local,
		merge:  overrideLocal[T, P],
		detach: detachLocal[T, P],
	}
}

// newNoteConflictResolver downloads the full remote note before resolving
// and carries resources along with the note.
func newNoteConflictResolver(e *engine, src contentSource, remote, local models.Note) *conflictResolver[models.Note, *models.Note] {
	r := newConflictResolver[models.Note, *models.Note](e, noteKind(), remote, local)
	r.download = func(ctx context.Context, n models.Note) (models.Note, error) {
		return downloadNote(ctx, e, src, n)
	}
	r.merge = mergeNote
	r.detach = detachNote
	return r
}

func (r *conflictResolver[T, P]) State() ResolverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *conflictResolver[T, P]) setState(s ResolverState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Resolve runs the resolution and returns the entity that now represents
// the remote one locally.
func (r *conflictResolver[T, P]) Resolve(ctx context.Context) (T, error) {
	var zero T

	r.mu.Lock()
	if r.state != ResolverCreated {
		r.mu.Unlock()
		return zero, ErrResolverStarted
	}
	r.state = ResolverComparing
	r.mu.Unlock()

	if err := r.validate(); err != nil {
		return zero, r.fail(err)
	}

	remoteMeta := P(&r.remote).Meta()
	if P(&r.local).Meta().USN >= remoteMeta.USN {
		r.setState(ResolverFinished)
		return r.remote, nil
	}

	// Storage may have changed since the pair was found.
	fresh, found, err := findByGuid[T](ctx, r.e, r.kind.Type(), remoteMeta.Guid)
	if err != nil {
		return zero, r.fail(err)
	}
	if found {
		r.local = fresh
		if P(&fresh).Meta().USN >= remoteMeta.USN {
			r.setState(ResolverFinished)
			return r.remote, nil
		}
	}

	remote := r.remote
	if r.download != nil {
		r.setState(ResolverDownloadingRemote)
		remote, err = r.download(ctx, remote)
		if err != nil {
			return zero, r.fail(err)
		}
		if P(&remote).Meta().Guid != remoteMeta.Guid {
			return zero, r.fail(ErrGuidMismatch)
		}
	}

	var stored T
	switch {
	case !found:
		r.setState(ResolverPersisting)
		stored, err = addRemote[T, P](ctx, r.e, r.kind, remote)
	case !P(&r.local).Meta().Dirty:
		r.setState(ResolverOverriding)
		merged := r.merge(r.local, remote)
		r.setState(ResolverPersisting)
		stored, err = r.override(ctx, merged)
	default:
		r.setState(ResolverUpdatingLocal)
		stored, err = r.detachAndAdd(ctx, remote)
	}
	if err != nil {
		return zero, r.fail(err)
	}

	r.setState(ResolverFinished)
	return stored, nil
}

func (r *conflictResolver[T, P]) validate() error {
	remote, local := P(&r.remote).Meta(), P(&r.local).Meta()
	switch {
	case remote.Guid == "" || local.Guid == "":
		return ErrMissingGuid
	case !remote.HasUSN():
		return ErrMissingUSN
	case remote.Guid != local.Guid:
		return ErrGuidMismatch
	}
	return nil
}

func (r *conflictResolver[T, P]) override(ctx context.Context, merged T) (T, error) {
	meta := P(&merged).Meta()
	if err := moveAsideByName[T, P](ctx, r.e, r.kind, P(&merged).EntityName(), meta.LinkedNotebookGuid, meta.LocalID); err != nil {
		return merged, err
	}
	return storageUpdate(ctx, r.e, r.kind.Type(), merged)
}

func (r *conflictResolver[T, P]) detachAndAdd(ctx context.Context, remote T) (T, error) {
	detached := r.detach(r.local)
	if r.kind.Cache() != nil && models.NameKey(P(&detached).EntityName()) == models.NameKey(P(&remote).EntityName()) {
		name, err := conflictingName[T, P](ctx, r.e, r.kind, P(&detached).EntityName(), P(&detached).Meta().LinkedNotebookGuid)
		if err != nil {
			return remote, err
		}
		r.kind.Rename(&detached, name)
	}
	if _, err := storageUpdate(ctx, r.e, r.kind.Type(), detached); err != nil {
		return remote, err
	}

	r.setState(ResolverPersisting)
	return addRemote[T, P](ctx, r.e, r.kind, remote)
}

func (r *conflictResolver[T, P]) fail(err error) error {
	r.setState(ResolverFailed)
	remote := P(&r.remote)
	return &EntityError{
		EntityType: r.kind.Type(),
		Guid:       remote.Meta().Guid,
		Name:       remote.EntityName(),
		Err:        err,
	}
}

// addRemote stores remote as a new clean local record, moving a same-named
// local entity out of the way first.
func addRemote[T any, P models.Syncable[T]](ctx context.Context, e *engine, k syncKind[T], remote T) (T, error) {
	meta := P(&remote).Meta()
	meta.LocalID = ""
	meta.Dirty = false
	meta.Local = false
	if err := moveAsideByName[T, P](ctx, e, k, P(&remote).EntityName(), meta.LinkedNotebookGuid, ""); err != nil {
		return remote, err
	}
	return storageAdd(ctx, e, k.Type(), remote)
}

// moveAsideByName renames the local entity called name, unless it is the
// one with exceptLocalID. Kinds without a name index are left alone.
//
// A clean synced entity holding the name must have been renamed remotely,
// and its own update will restore it, so it is renamed without being marked
// dirty. Anything else keeps the new name and will be uploaded.
func moveAsideByName[T any, P models.Syncable[T]](ctx context.Context, e *engine, k syncKind[T], name, linkedNotebookGuid, exceptLocalID string) error {
	cache := k.Cache()
	if cache == nil || name == "" {
		return nil
	}
	if cache.IsFilled() {
		if localID, ok := cache.LocalIDByName(name, linkedNotebookGuid); !ok || localID == exceptLocalID {
			return nil
		}
	}

	other, found, err := findByName[T](ctx, e, k.Type(), name, linkedNotebookGuid)
	if err != nil || !found {
		return err
	}
	otherMeta := P(&other).Meta()
	if otherMeta.LocalID == exceptLocalID {
		return nil
	}

	renamed, err := conflictingName[T, P](ctx, e, k, P(&other).EntityName(), linkedNotebookGuid)
	if err != nil {
		return err
	}
	e.logger.Info().
		Str("component", string(e.component)).
		Str("entity", k.Type().String()).
		Str("local_id", otherMeta.LocalID).
		Str("name", P(&other).EntityName()).
		Str("renamed_to", renamed).
		Msg("local entity name conflicts with remote entity")

	k.Rename(&other, renamed)
	if !otherMeta.HasGuid() || otherMeta.Dirty {
		otherMeta.Dirty = true
	}
	_, err = storageUpdate(ctx, e, k.Type(), other)
	return err
}

// conflictingName returns the first free name of the form
// "<name> - conflicting", "<name> - conflicting (2)", ...
func conflictingName[T any, P models.Syncable[T]](ctx context.Context, e *engine, k syncKind[T], name, linkedNotebookGuid string) (string, error) {
	base := name + conflictingSuffix
	candidate := base
	for i := 2; ; i++ {
		_, taken, err := findByName[T](ctx, e, k.Type(), candidate, linkedNotebookGuid)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)", base, i)
	}
}

func overrideLocal[T any, P models.Syncable[T]](local, remote T) T {
	merged := remote
	meta := P(&merged).Meta()
	meta.LocalID = P(&local).Meta().LocalID
	meta.Dirty = false
	meta.Local = false
	return merged
}

func detachLocal[T any, P models.Syncable[T]](local T) T {
	P(&local).Meta().Detach()
	return local
}

// mergeNote overrides a note and keeps the local ids of resources the
// remote note still has.
func mergeNote(local, remote models.Note) models.Note {
	merged := overrideLocal[models.Note, *models.Note](local, remote)
	merged.NotebookLocalID = ""

	localIDs := make(map[string]string, len(local.Resources))
	for _, res := range local.Resources {
		if res.Guid != "" {
			localIDs[res.Guid] = res.LocalID
		}
	}
	merged.Resources = make([]models.Resource, len(remote.Resources))
	for i, res := range remote.Resources {
		res.LocalID = localIDs[res.Guid]
		res.NoteLocalID = merged.LocalID
		res.Dirty = false
		res.Local = false
		merged.Resources[i] = res
	}
	return merged
}

// detachNote detaches a note together with its resources.
func detachNote(local models.Note) models.Note {
	local.Detach()
	resources := make([]models.Resource, len(local.Resources))
	for i, res := range local.Resources {
		res.Detach()
		res.NoteGuid = ""
		resources[i] = res
	}
	local.Resources = resources
	return local
}

// downloadNote fetches the complete note and tags it with the source.
func downloadNote(ctx context.Context, e *engine, src contentSource, n models.Note) (models.Note, error) {
	full, err := callRemote(ctx, e, "get_note", func(ctx context.Context) (models.Note, error) {
		return e.remote.GetNote(ctx, src.creds, n.Guid, adapter.FullNote)
	})
	if err != nil {
		return n, err
	}
	full.LinkedNotebookGuid = src.linkedNotebookGuid
	for i := range full.Resources {
		full.Resources[i].LinkedNotebookGuid = src.linkedNotebookGuid
	}
	return full, nil
}
