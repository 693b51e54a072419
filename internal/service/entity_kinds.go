package service

import (
	"github.com/MKhiriev/go-note-keeper/models"
)

// syncKind is what the generic reconciliation needs to know about one
// entity type. Storage access goes through the engine helpers keyed by
// Type, so the kind only describes the chunk side and naming rules.
type syncKind[T any] interface {
	Type() models.EntityType
	// Extract returns the created or updated entities of this type in chunk.
	Extract(chunk models.SyncChunk) []T
	// Expunged returns the guids of this type expunged in chunk.
	Expunged(chunk models.SyncChunk) []string
	// Cache returns the name index of this type, or nil when names need
	// not be unique.
	Cache() *SyncCache[T]
	Rename(item *T, name string)
}

type kind[T any] struct {
	entityType models.EntityType
	extract    func(models.SyncChunk) []T
	expunged   func(models.SyncChunk) []string
	cache      *SyncCache[T]
	rename     func(*T, string)
}

func (k *kind[T]) Type() models.EntityType { return k.entityType }

func (k *kind[T]) Extract(chunk models.SyncChunk) []T { return k.extract(chunk) }

func (k *kind[T]) Expunged(chunk models.SyncChunk) []string {
	if k.expunged == nil {
		return nil
	}
	return k.expunged(chunk)
}

func (k *kind[T]) Cache() *SyncCache[T] { return k.cache }

func (k *kind[T]) Rename(item *T, name string) {
	if k.rename != nil {
		k.rename(item, name)
	}
}

func tagKind(cache *SyncCache[models.Tag]) syncKind[models.Tag] {
	return &kind[models.Tag]{
		entityType: models.EntityTag,
		extract:    func(c models.SyncChunk) []models.Tag { return c.Tags },
		expunged:   func(c models.SyncChunk) []string { return c.ExpungedTags },
		cache:      cache,
		rename:     func(t *models.Tag, name string) { t.Name = name },
	}
}

func savedSearchKind(cache *SyncCache[models.SavedSearch]) syncKind[models.SavedSearch] {
	return &kind[models.SavedSearch]{
		entityType: models.EntitySavedSearch,
		extract:    func(c models.SyncChunk) []models.SavedSearch { return c.Searches },
		expunged:   func(c models.SyncChunk) []string { return c.ExpungedSearches },
		cache:      cache,
		rename:     func(s *models.SavedSearch, name string) { s.Name = name },
	}
}

func notebookKind(cache *SyncCache[models.Notebook]) syncKind[models.Notebook] {
	return &kind[models.Notebook]{
		entityType: models.EntityNotebook,
		extract:    func(c models.SyncChunk) []models.Notebook { return c.Notebooks },
		expunged:   func(c models.SyncChunk) []string { return c.ExpungedNotebooks },
		cache:      cache,
		rename:     func(n *models.Notebook, name string) { n.Name = name },
	}
}

func linkedNotebookKind() syncKind[models.LinkedNotebook] {
	return &kind[models.LinkedNotebook]{
		entityType: models.EntityLinkedNotebook,
		extract:    func(c models.SyncChunk) []models.LinkedNotebook { return c.LinkedNotebooks },
		expunged:   func(c models.SyncChunk) []string { return c.ExpungedLinkedNotebooks },
	}
}

func noteKind() syncKind[models.Note] {
	return &kind[models.Note]{
		entityType: models.EntityNote,
		extract:    func(c models.SyncChunk) []models.Note { return c.Notes },
		expunged:   func(c models.SyncChunk) []string { return c.ExpungedNotes },
	}
}

// Resources are never expunged on their own; they go with their note.
func resourceKind() syncKind[models.Resource] {
	return &kind[models.Resource]{
		entityType: models.EntityResource,
		extract:    func(c models.SyncChunk) []models.Resource { return c.Resources },
	}
}
