// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package models holds the value records exchanged between the local note
// storage, the remote note service and the synchronization engine.
//
// All syncable entities embed [SyncMeta], which carries the identifiers and
// flags the sync engine relies on: a local-only id, the remote guid (empty
// until the entity has been synced at least once), the update sequence
// number of the last known remote state, and the dirty flag.
package models

import "strings"

// NameKey is the case-insensitive form under which notebook, tag and saved
// search names must be unique. Every storage backend and cache compares
// names through it.
func NameKey(name string) string {
	return strings.ToLower(name)
}

// EntityType enumerates the kinds of entities the sync engine handles.
type EntityType int

const (
	EntityUnknown EntityType = iota
	EntityTag
	EntitySavedSearch
	EntityNotebook
	EntityLinkedNotebook
	EntityNote
	EntityResource
	EntityUser
)

func (t EntityType) String() string {
	switch t {
	case EntityTag:
		return "tag"
	case EntitySavedSearch:
		return "saved_search"
	case EntityNotebook:
		return "notebook"
	case EntityLinkedNotebook:
		return "linked_notebook"
	case EntityNote:
		return "note"
	case EntityResource:
		return "resource"
	case EntityUser:
		return "user"
	default:
		return "unknown"
	}
}

// SyncMeta is the synchronization bookkeeping shared by every syncable entity.
type SyncMeta struct {
	// LocalID identifies the entity within the local database. It is
	// assigned once and never reused.
	LocalID string `json:"local_id,omitempty" yaml:"local_id,omitempty"`

	// Guid is the remote-service-assigned identifier. Empty for entities
	// that have never been synced.
	Guid string `json:"guid,omitempty" yaml:"guid,omitempty"`

	// USN is the update sequence number of the last known remote state.
	// Zero means "not set".
	USN int32 `json:"updateSequenceNum,omitempty" yaml:"usn,omitempty"`

	// Dirty marks the entity as modified locally since the last
	// successful upload.
	Dirty bool `json:"-" yaml:"dirty,omitempty"`

	// Local marks entities that must never be synchronized.
	Local bool `json:"-" yaml:"local,omitempty"`

	// LinkedNotebookGuid is set for entities that belong to a linked
	// (shared) notebook rather than to the user's own account.
	LinkedNotebookGuid string `json:"-" yaml:"linked_notebook_guid,omitempty"`
}

// Meta gives mutable access to the embedded metadata. Because it has a
// pointer receiver it is promoted to *Notebook, *Tag and so on, which is what
// [Syncable] relies on.
func (m *SyncMeta) Meta() *SyncMeta {
	return m
}

// HasGuid reports whether the entity has been assigned a remote guid.
func (m SyncMeta) HasGuid() bool {
	return m.Guid != ""
}

// HasUSN reports whether the entity carries an update sequence number.
func (m SyncMeta) HasUSN() bool {
	return m.USN > 0
}

// Detach clears the remote identity so that the entity becomes a new,
// to-be-uploaded item. The entity stays dirty.
func (m *SyncMeta) Detach() {
	m.Guid = ""
	m.USN = 0
	m.Dirty = true
}

// Syncable is satisfied by pointers to every entity type embedding SyncMeta.
// It lets generic code read and mutate the metadata of a value of type T.
type Syncable[T any] interface {
	*T
	Meta() *SyncMeta
	EntityName() string
}
