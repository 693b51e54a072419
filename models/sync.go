package models

// SyncChunk is an ordered batch of created/updated entities plus expunged
// guids covering a contiguous USN range ending at ChunkHighUSN.
type SyncChunk struct {
	CurrentTime  int64 `json:"currentTime"`
	ChunkHighUSN int32 `json:"chunkHighUSN,omitempty"`
	UpdateCount  int32 `json:"updateCount"`

	Notes           []Note           `json:"notes,omitempty"`
	Notebooks       []Notebook       `json:"notebooks,omitempty"`
	Tags            []Tag            `json:"tags,omitempty"`
	Searches        []SavedSearch    `json:"searches,omitempty"`
	Resources       []Resource       `json:"resources,omitempty"`
	LinkedNotebooks []LinkedNotebook `json:"linkedNotebooks,omitempty"`

	ExpungedNotes           []string `json:"expungedNotes,omitempty"`
	ExpungedNotebooks       []string `json:"expungedNotebooks,omitempty"`
	ExpungedTags            []string `json:"expungedTags,omitempty"`
	ExpungedSearches        []string `json:"expungedSearches,omitempty"`
	ExpungedLinkedNotebooks []string `json:"expungedLinkedNotebooks,omitempty"`
}

// HasHighUSN reports whether the chunk contained any entries. An empty chunk
// carries no ChunkHighUSN.
func (c SyncChunk) HasHighUSN() bool {
	return c.ChunkHighUSN > 0
}

// SyncChunkFilter selects which entity kinds a filtered sync chunk returns.
type SyncChunkFilter struct {
	IncludeNotes                      bool `json:"includeNotes"`
	IncludeNoteResources              bool `json:"includeNoteResources"`
	IncludeNoteAttributes             bool `json:"includeNoteAttributes"`
	IncludeNotebooks                  bool `json:"includeNotebooks"`
	IncludeTags                       bool `json:"includeTags"`
	IncludeSearches                   bool `json:"includeSearches"`
	IncludeResources                  bool `json:"includeResources"`
	IncludeLinkedNotebooks            bool `json:"includeLinkedNotebooks"`
	IncludeExpunged                   bool `json:"includeExpunged"`
	IncludeNoteApplicationDataFullMap bool `json:"includeNoteApplicationDataFullMap"`
}

// FullSyncChunkFilter requests every entity kind.
func FullSyncChunkFilter(includeExpunged bool) SyncChunkFilter {
	return SyncChunkFilter{
		IncludeNotes:                      true,
		IncludeNoteResources:              true,
		IncludeNoteAttributes:             true,
		IncludeNotebooks:                  true,
		IncludeTags:                       true,
		IncludeSearches:                   true,
		IncludeResources:                  true,
		IncludeLinkedNotebooks:            true,
		IncludeExpunged:                   includeExpunged,
		IncludeNoteApplicationDataFullMap: true,
	}
}

// SyncState is the server-side summary used to decide whether anything needs
// to be downloaded.
type SyncState struct {
	CurrentTime    int64 `json:"currentTime"`
	FullSyncBefore int64 `json:"fullSyncBefore"`
	UpdateCount    int32 `json:"updateCount"`
	Uploaded       int64 `json:"uploaded,omitempty"`
}

// LinkedNotebookCheckpoint is the per linked notebook part of a checkpoint.
type LinkedNotebookCheckpoint struct {
	UpdateCount int32 `yaml:"linked_notebook_last_update_count"`
	SyncTime    int64 `yaml:"linked_notebook_last_sync_time"`
}

// SyncCheckpoint is the persisted progress of synchronization for an account.
// A zero LastUpdateCount means the account was never synced.
type SyncCheckpoint struct {
	LastUpdateCount int32
	LastSyncTime    int64
	LinkedNotebooks map[string]LinkedNotebookCheckpoint
}

// IsFullSyncRequired reports whether the checkpoint forces a full sync.
func (c SyncCheckpoint) IsFullSyncRequired() bool {
	return c.LastUpdateCount <= 0
}

// Advance returns a checkpoint that never moves LastUpdateCount backwards.
func (c SyncCheckpoint) Advance(next SyncCheckpoint) SyncCheckpoint {
	out := SyncCheckpoint{
		LastUpdateCount: c.LastUpdateCount,
		LastSyncTime:    c.LastSyncTime,
		LinkedNotebooks: make(map[string]LinkedNotebookCheckpoint, len(c.LinkedNotebooks)+len(next.LinkedNotebooks)),
	}
	if next.LastUpdateCount > out.LastUpdateCount {
		out.LastUpdateCount = next.LastUpdateCount
	}
	if next.LastSyncTime > out.LastSyncTime {
		out.LastSyncTime = next.LastSyncTime
	}
	for guid, cp := range c.LinkedNotebooks {
		out.LinkedNotebooks[guid] = cp
	}
	for guid, cp := range next.LinkedNotebooks {
		prev := out.LinkedNotebooks[guid]
		if cp.UpdateCount < prev.UpdateCount {
			cp.UpdateCount = prev.UpdateCount
		}
		if cp.SyncTime < prev.SyncTime {
			cp.SyncTime = prev.SyncTime
		}
		out.LinkedNotebooks[guid] = cp
	}
	return out
}
