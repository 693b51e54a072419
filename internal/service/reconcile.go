package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-note-keeper/internal/adapter"
	"github.com/MKhiriev/go-note-keeper/models"
)

// contentSource is the part of the account a pass works on: the user's own
// content, or one linked notebook with its own credentials.
type contentSource struct {
	linkedNotebookGuid string
	linkedNotebook     models.LinkedNotebook
	creds              adapter.Credentials
}

func (s contentSource) isLinked() bool {
	return s.linkedNotebookGuid != ""
}

// collect gathers the entities of one kind from chunks, keeping the highest
// USN of an entity that appears more than once, and normalizes them as
// clean remote entities of src.
func collect[T any, P models.Syncable[T]](k syncKind[T], chunks []models.SyncChunk, src contentSource) []T {
	var items []T
	index := make(map[string]int)
	for _, chunk := range chunks {
		for _, item := range k.Extract(chunk) {
			meta := P(&item).Meta()
			meta.LocalID = ""
			meta.Dirty = false
			meta.Local = false
			meta.LinkedNotebookGuid = src.linkedNotebookGuid

			if meta.Guid == "" {
				items = append(items, item)
				continue
			}
			if i, ok := index[meta.Guid]; ok {
				if P(&items[i]).Meta().USN < meta.USN {
					items[i] = item
				}
				continue
			}
			index[meta.Guid] = len(items)
			items = append(items, item)
		}
	}
	return items
}

func collectExpunged[T any](k syncKind[T], chunks []models.SyncChunk) []string {
	var guids []string
	seen := make(map[string]struct{})
	for _, chunk := range chunks {
		for _, guid := range k.Expunged(chunk) {
			if _, ok := seen[guid]; ok || guid == "" {
				continue
			}
			seen[guid] = struct{}{}
			guids = append(guids, guid)
		}
	}
	return guids
}

// reconcile applies remote items of one kind to local storage. Every item
// is looked up by guid, all lookups in flight at once. Unknown items go to
// onNew, items the local side already has at the same or a later USN are
// skipped, and the rest go to resolve.
func reconcile[T any, P models.Syncable[T]](
	ctx context.Context,
	m *RemoteToLocalManager,
	k syncKind[T],
	items []T,
	onNew func(context.Context, T) error,
	resolve func(ctx context.Context, remote, local T) error,
) error {
	if len(items) == 0 {
		return nil
	}

	guids := make([]string, 0, len(items))
	for i := range items {
		if guid := P(&items[i]).Meta().Guid; guid != "" {
			guids = append(guids, guid)
			continue
		}
		err := &EntityError{EntityType: k.Type(), Name: P(&items[i]).EntityName(), Err: ErrMissingGuid}
		m.entityFailed(err)
		return err
	}

	local, err := findAllByGuid[T](ctx, m.e, k.Type(), guids)
	if err != nil {
		return fmt.Errorf("find local %s: %w", k.Type(), err)
	}

	for _, item := range items {
		if err = m.safePoint(ctx); err != nil {
			return err
		}

		remote := P(&item)
		existing, found := local[remote.Meta().Guid]
		switch {
		case !found:
			err = onNew(ctx, item)
		case P(&existing).Meta().USN >= remote.Meta().USN:
			m.e.logger.Debug().
				Str("entity", k.Type().String()).
				Str("guid", remote.Meta().Guid).
				Int32("usn", remote.Meta().USN).
				Msg("local entity is up to date")
			continue
		default:
			err = resolve(ctx, item, existing)
		}
		if err != nil {
			return m.entityError(k.Type(), remote.Meta().Guid, remote.EntityName(), err)
		}
	}
	return nil
}

// expungeAll removes the local entities with the given guids. Guids that are
// not stored locally are skipped.
func expungeAll(ctx context.Context, m *RemoteToLocalManager, et models.EntityType, guids []string) (int, error) {
	expunged := 0
	for _, guid := range guids {
		if err := m.safePoint(ctx); err != nil {
			return expunged, err
		}
		ok, err := expungeByGuid(ctx, m.e, et, guid)
		if err != nil {
			return expunged, m.entityError(et, guid, "", err)
		}
		if ok {
			expunged++
		}
	}
	return expunged, nil
}

// sortTagsByParent orders tags so that a parent precedes its children when
// both are in the batch.
func sortTagsByParent(tags []models.Tag) []models.Tag {
	byGuid := make(map[string]int, len(tags))
	for i, t := range tags {
		if t.Guid != "" {
			byGuid[t.Guid] = i
		}
	}

	sorted := make([]models.Tag, 0, len(tags))
	visited := make([]bool, len(tags))
	var visit func(i, depth int)
	visit = func(i, depth int) {
		if visited[i] {
			return
		}
		visited[i] = true
		// A cycle cannot come from the service, but must not recurse forever.
		if parent, ok := byGuid[tags[i].ParentGuid]; ok && depth < len(tags) {
			visit(parent, depth+1)
		}
		sorted = append(sorted, tags[i])
	}
	for i := range tags {
		visit(i, 0)
	}
	return sorted
}

// isAbort reports errors that end the pass without being about one entity.
func isAbort(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, adapter.ErrAuthExpired) ||
		errors.Is(err, ErrInvalidRateLimit)
}
