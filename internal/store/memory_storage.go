package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/MKhiriev/go-note-keeper/models"
)

// memoryStorage is a [LocalStorage] keeping everything in maps. When created
// with a file path it rewrites the whole state as JSON after every mutation.
type memoryStorage struct {
	path     string
	inMemory bool

	mu sync.RWMutex

	notebooks       *memRepository[models.Notebook, *models.Notebook]
	tags            *memRepository[models.Tag, *models.Tag]
	savedSearches   *memRepository[models.SavedSearch, *models.SavedSearch]
	notes           *memRepository[models.Note, *models.Note]
	resources       *memRepository[models.Resource, *models.Resource]
	linkedNotebooks *memRepository[models.LinkedNotebook, *models.LinkedNotebook]
	users           *memUserRepository
}

type memPersistedState struct {
	Notebooks       map[string]memRecord  `json:"notebooks"`
	Tags            map[string]memRecord  `json:"tags"`
	SavedSearches   map[string]memRecord  `json:"saved_searches"`
	Notes           map[string]memRecord  `json:"notes"`
	Resources       map[string]memRecord  `json:"resources"`
	LinkedNotebooks map[string]memRecord  `json:"linked_notebooks"`
	Users           map[int32]models.User `json:"users"`
}

// NewMemoryStorage returns an in-memory [LocalStorage]. An empty path,
// ":memory:" or "memory" keeps the state in memory only; any other path is
// loaded on start and rewritten after every change.
func NewMemoryStorage(path string) (LocalStorage, error) {
	if path == "" {
		path = ":memory:"
	}

	s := &memoryStorage{
		path:     path,
		inMemory: path == ":memory:" || path == "memory",
	}

	s.resources = newMemRepository(s, memSpec[models.Resource, *models.Resource]{
		table:     "resources",
		parentOf:  func(r *models.Resource) string { return r.NoteLocalID },
		setParent: func(r *models.Resource, parent string) { r.NoteLocalID = parent },
		beforeWrite: func(r *models.Resource) {
			if r.NoteLocalID == "" && r.NoteGuid != "" {
				r.NoteLocalID = s.notes.guidIndex[r.NoteGuid]
			}
		},
	})

	s.notes = newMemRepository(s, memSpec[models.Note, *models.Note]{
		table:     "notes",
		parentOf:  func(n *models.Note) string { return n.NotebookLocalID },
		setParent: func(n *models.Note, parent string) { n.NotebookLocalID = parent },
		strip:     func(n *models.Note) { n.Resources = nil },
		beforeWrite: func(n *models.Note) {
			if n.NotebookLocalID == "" && n.NotebookGuid != "" {
				n.NotebookLocalID = s.notebooks.guidIndex[n.NotebookGuid]
			}
		},
		afterWrite:    s.writeNoteResources,
		afterRead:     s.readNoteResources,
		beforeExpunge: s.expungeNoteResources,
	})

	s.notebooks = newMemRepository(s, memSpec[models.Notebook, *models.Notebook]{
		table: "notebooks",
		beforeExpunge: func(n *models.Notebook) {
			s.expungeNotesWhere(func(rec memRecord) bool { return rec.Parent == n.LocalID })
		},
	})

	s.tags = newMemRepository(s, memSpec[models.Tag, *models.Tag]{
		table:     "tags",
		parentOf:  func(t *models.Tag) string { return t.ParentLocalID },
		setParent: func(t *models.Tag, parent string) { t.ParentLocalID = parent },
		beforeExpunge: func(t *models.Tag) {
			if t.Guid != "" {
				s.detachTag(t.Guid)
			}
		},
	})

	s.savedSearches = newMemRepository(s, memSpec[models.SavedSearch, *models.SavedSearch]{
		table: "saved_searches",
	})

	s.linkedNotebooks = newMemRepository(s, memSpec[models.LinkedNotebook, *models.LinkedNotebook]{
		table: "linked_notebooks",
		beforeExpunge: func(l *models.LinkedNotebook) {
			if l.Guid == "" {
				return
			}
			owned := func(rec memRecord) bool { return rec.Meta.LinkedNotebookGuid == l.Guid }
			s.expungeNotesWhere(owned)
			s.notebooks.removeWhere(owned)
			s.tags.removeWhere(owned)
		},
	})

	s.users = &memUserRepository{s: s, users: make(map[int32]models.User)}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *memoryStorage) Notebooks() Repository[models.Notebook]        { return s.notebooks }
func (s *memoryStorage) Tags() Repository[models.Tag]                  { return s.tags }
func (s *memoryStorage) SavedSearches() Repository[models.SavedSearch] { return s.savedSearches }
func (s *memoryStorage) Notes() Repository[models.Note]                { return s.notes }
func (s *memoryStorage) Resources() Repository[models.Resource]        { return s.resources }
func (s *memoryStorage) LinkedNotebooks() Repository[models.LinkedNotebook] {
	return s.linkedNotebooks
}
func (s *memoryStorage) Users() UserRepository { return s.users }

func (s *memoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

func (s *memoryStorage) writeNoteResources(n *models.Note) error {
	if n.Resources == nil {
		return nil
	}
	s.resources.removeWhere(func(rec memRecord) bool { return rec.Parent == n.LocalID })
	for i := range n.Resources {
		res := &n.Resources[i]
		res.NoteLocalID = n.LocalID
		if n.Guid != "" {
			res.NoteGuid = n.Guid
		}
		res.LinkedNotebookGuid = n.LinkedNotebookGuid
		if err := s.resources.insert(res); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStorage) readNoteResources(n *models.Note) {
	n.Resources = s.resources.collect(func(rec memRecord) bool { return rec.Parent == n.LocalID })
}

func (s *memoryStorage) expungeNoteResources(n *models.Note) {
	s.resources.removeWhere(func(rec memRecord) bool { return rec.Parent == n.LocalID })
}

func (s *memoryStorage) expungeNotesWhere(match func(memRecord) bool) {
	for _, localID := range s.notes.localIDsWhere(match) {
		s.resources.removeWhere(func(rec memRecord) bool { return rec.Parent == localID })
		s.notes.remove(localID)
	}
}

// detachTag removes tagGuid from every note referencing it.
func (s *memoryStorage) detachTag(tagGuid string) {
	for localID, rec := range s.notes.items {
		note, err := s.notes.decode(rec)
		if err != nil {
			continue
		}
		kept := note.TagGuids[:0]
		for _, guid := range note.TagGuids {
			if guid != tagGuid {
				kept = append(kept, guid)
			}
		}
		if len(kept) == len(note.TagGuids) {
			continue
		}
		note.TagGuids = kept
		if updated, encErr := s.notes.encode(&note); encErr == nil {
			s.notes.items[localID] = updated
		}
	}
}

func (s *memoryStorage) load() error {
	if s.inMemory {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read local storage file: %w", err)
	}

	var st memPersistedState
	if err = json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode local storage file: %w", err)
	}

	s.notebooks.restore(st.Notebooks)
	s.tags.restore(st.Tags)
	s.savedSearches.restore(st.SavedSearches)
	s.notes.restore(st.Notes)
	s.resources.restore(st.Resources)
	s.linkedNotebooks.restore(st.LinkedNotebooks)
	if st.Users != nil {
		s.users.users = st.Users
	}

	return nil
}

// persist must be called with s.mu held.
func (s *memoryStorage) persist() error {
	if s.inMemory {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create local storage dir: %w", err)
		}
	}

	state := memPersistedState{
		Notebooks:       s.notebooks.items,
		Tags:            s.tags.items,
		SavedSearches:   s.savedSearches.items,
		Notes:           s.notes.items,
		Resources:       s.resources.items,
		LinkedNotebooks: s.linkedNotebooks.items,
		Users:           s.users.users,
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local storage: %w", err)
	}

	if err = os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write local storage file: %w", err)
	}

	return nil
}
