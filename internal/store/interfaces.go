// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package store implements the local note storage used by the sync engine.
//
// Every syncable entity kind is reached through a generic [Repository]. Two
// [LocalStorage] implementations are provided: a SQLite database managed by
// goose migrations ([NewSQLiteStorage]) and an in-memory storage that can
// optionally persist itself to a JSON file ([NewMemoryStorage]).
//
// The sync engine never calls repositories directly. It goes through
// [AsyncStorage], which serializes requests on a single worker goroutine,
// correlates each completion with the id of its request and broadcasts
// change notifications to observers.
package store

import (
	"context"

	"github.com/MKhiriev/go-note-keeper/models"
)

// Order selects the column a List call sorts by.
type Order int

const (
	OrderByLocalID Order = iota
	OrderByName
	OrderByUSN
)

// Direction selects ascending or descending List ordering.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// ListOptions describes one page of a List call.
type ListOptions struct {
	// Limit caps the number of returned items. Zero means no limit.
	Limit int
	// Offset skips the given number of items.
	Offset int

	Order     Order
	Direction Direction

	// OnlyDirty restricts the result to locally modified entities.
	OnlyDirty bool

	// LinkedNotebookGuid scopes the result. nil lists every entity, a
	// pointer to "" lists only the user's own entities, anything else lists
	// the entities of that linked notebook.
	LinkedNotebookGuid *string
}

// OwnContent is a convenience scope for [ListOptions.LinkedNotebookGuid].
func OwnContent() *string {
	s := ""
	return &s
}

// InLinkedNotebook is a convenience scope for [ListOptions.LinkedNotebookGuid].
func InLinkedNotebook(guid string) *string {
	return &guid
}

// Repository is the CRUD surface of one syncable entity kind.
type Repository[T any] interface {
	// Add stores a new entity. A local id is generated when the entity has
	// none. Returns [ErrAlreadyExists] if the local id or guid is taken.
	Add(ctx context.Context, item T) (T, error)

	// Update replaces a stored entity. The entity is located by local id,
	// or by guid when the local id is empty. Returns [ErrNotFound] if
	// neither matches.
	Update(ctx context.Context, item T) (T, error)

	FindByLocalID(ctx context.Context, localID string) (T, error)
	FindByGuid(ctx context.Context, guid string) (T, error)

	// FindByName does a case-insensitive lookup within the scope of the
	// given linked notebook ("" for the user's own content).
	FindByName(ctx context.Context, name, linkedNotebookGuid string) (T, error)

	ExpungeByGuid(ctx context.Context, guid string) error
	ExpungeByLocalID(ctx context.Context, localID string) error

	List(ctx context.Context, opts ListOptions) ([]T, error)
}

// UserRepository stores the account the local database belongs to.
type UserRepository interface {
	PutUser(ctx context.Context, user models.User) error
	FindUser(ctx context.Context, id int32) (models.User, error)
}

// LocalStorage groups the repositories of every entity kind.
type LocalStorage interface {
	Notebooks() Repository[models.Notebook]
	Tags() Repository[models.Tag]
	SavedSearches() Repository[models.SavedSearch]
	Notes() Repository[models.Note]
	Resources() Repository[models.Resource]
	LinkedNotebooks() Repository[models.LinkedNotebook]
	Users() UserRepository

	Close() error
}
