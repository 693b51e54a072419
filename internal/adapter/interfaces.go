// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport-layer client of the remote note
// service.
//
// The primary abstraction is [NoteService], which decouples the sync engine
// from the underlying protocol. The package ships a JSON-over-HTTP
// implementation ([NewHTTPNoteService]) throttled on the client side by a
// token bucket.
//
// Error values defined in errors.go are mapped from HTTP status codes and
// service error codes by mapHTTPError so that callers can use [errors.Is]
// and [errors.As] for transport-agnostic error handling (e.g.
// [ErrAuthExpired], [ErrDataConflict] or [*RateLimitError]).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-note-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/note_service_mock.go -package=mock

// Credentials select the account and shard a call is made against. The
// user's own content and every linked notebook use different credentials.
type Credentials struct {
	AuthToken string
	ShardID   string
}

// NoteFetchOptions selects the parts of a note returned by GetNote.
type NoteFetchOptions struct {
	WithContent                bool `json:"withContent"`
	WithResourcesData          bool `json:"withResourcesData"`
	WithResourcesRecognition   bool `json:"withResourcesRecognition"`
	WithResourcesAlternateData bool `json:"withResourcesAlternateData"`
	WithSharedNotes            bool `json:"withSharedNotes"`
	WithApplicationData        bool `json:"withNoteAppDataValues"`
}

// FullNote requests everything needed to materialize a note locally.
var FullNote = NoteFetchOptions{
	WithContent:                true,
	WithResourcesData:          true,
	WithResourcesRecognition:   true,
	WithResourcesAlternateData: true,
	WithSharedNotes:            true,
	WithApplicationData:        true,
}

// ResourceFetchOptions selects the parts of a resource returned by GetResource.
type ResourceFetchOptions struct {
	WithData          bool `json:"withData"`
	WithRecognition   bool `json:"withRecognition"`
	WithAttributes    bool `json:"withAttributes"`
	WithAlternateData bool `json:"withAlternateData"`
}

// NoteService is the remote note service. Every method may fail with a
// [*RateLimitError], [ErrAuthExpired], [ErrNotFound], [ErrDataConflict] or an
// [*EDAMError].
type NoteService interface {
	// CheckVersion reports whether the service accepts this client's
	// protocol version.
	CheckVersion(ctx context.Context, clientName string, major, minor int16) (bool, error)

	GetUser(ctx context.Context, creds Credentials) (models.User, error)
	GetAccountLimits(ctx context.Context, creds Credentials, serviceLevel int32) (models.AccountLimits, error)

	GetSyncState(ctx context.Context, creds Credentials) (models.SyncState, error)
	GetFilteredSyncChunk(ctx context.Context, creds Credentials, afterUSN, maxEntries int32, filter models.SyncChunkFilter) (models.SyncChunk, error)

	GetLinkedNotebookSyncState(ctx context.Context, creds Credentials, linkedNotebook models.LinkedNotebook) (models.SyncState, error)
	GetLinkedNotebookSyncChunk(ctx context.Context, creds Credentials, linkedNotebook models.LinkedNotebook, afterUSN, maxEntries int32, fullSyncOnly bool) (models.SyncChunk, error)

	GetNote(ctx context.Context, creds Credentials, guid string, opts NoteFetchOptions) (models.Note, error)
	GetResource(ctx context.Context, creds Credentials, guid string, opts ResourceFetchOptions) (models.Resource, error)
	GetNoteThumbnail(ctx context.Context, creds Credentials, noteGuid string, size int) ([]byte, error)

	// AuthenticateToSharedNotebook exchanges the user's token for a token
	// scoped to the shared notebook identified by sharedNotebookGlobalID.
	AuthenticateToSharedNotebook(ctx context.Context, creds Credentials, sharedNotebookGlobalID string) (models.LinkedNotebookAuth, error)

	CreateNotebook(ctx context.Context, creds Credentials, notebook models.Notebook) (models.Notebook, error)
	UpdateNotebook(ctx context.Context, creds Credentials, notebook models.Notebook) (int32, error)
	CreateTag(ctx context.Context, creds Credentials, tag models.Tag) (models.Tag, error)
	UpdateTag(ctx context.Context, creds Credentials, tag models.Tag) (int32, error)
	CreateSearch(ctx context.Context, creds Credentials, search models.SavedSearch) (models.SavedSearch, error)
	UpdateSearch(ctx context.Context, creds Credentials, search models.SavedSearch) (int32, error)
	CreateNote(ctx context.Context, creds Credentials, note models.Note) (models.Note, error)
	UpdateNote(ctx context.Context, creds Credentials, note models.Note) (models.Note, error)
}
