package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-note-keeper/internal/config"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/models"
)

// sqliteStorage is the SQLite-backed [LocalStorage].
type sqliteStorage struct {
	db *DB

	notebooks       *sqlRepository[models.Notebook, *models.Notebook]
	tags            *sqlRepository[models.Tag, *models.Tag]
	savedSearches   *sqlRepository[models.SavedSearch, *models.SavedSearch]
	notes           *sqlRepository[models.Note, *models.Note]
	resources       *sqlRepository[models.Resource, *models.Resource]
	linkedNotebooks *sqlRepository[models.LinkedNotebook, *models.LinkedNotebook]
	users           UserRepository
}

// NewSQLiteStorage opens the SQLite database at cfg.DSN, applies migrations
// and returns the storage wired to it.
func NewSQLiteStorage(ctx context.Context, cfg config.ClientDB, log *logger.Logger) (LocalStorage, error) {
	log.Info().Msg("creating new local storage...")

	db, err := NewConnectSQLite(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return newSQLiteStorage(db), nil
}

func newSQLiteStorage(db *DB) *sqliteStorage {
	s := &sqliteStorage{db: db}

	s.resources = newSQLRepository(db, tableSpec[models.Resource, *models.Resource]{
		table:       "resources",
		parentOf:    func(r *models.Resource) string { return r.NoteLocalID },
		setParent:   func(r *models.Resource, parent string) { r.NoteLocalID = parent },
		beforeWrite: resolveResourceNote,
	})

	s.notes = newSQLRepository(db, tableSpec[models.Note, *models.Note]{
		table:     "notes",
		parentOf:  func(n *models.Note) string { return n.NotebookLocalID },
		setParent: func(n *models.Note, parent string) { n.NotebookLocalID = parent },
		strip: func(n *models.Note) {
			n.Resources = nil
			n.TagGuids = nil
		},
		beforeWrite:   resolveNoteNotebook,
		afterWrite:    s.writeNoteChildren,
		afterRead:     s.readNoteChildren,
		beforeExpunge: expungeNoteChildren,
	})

	s.notebooks = newSQLRepository(db, tableSpec[models.Notebook, *models.Notebook]{
		table: "notebooks",
		beforeExpunge: func(ctx context.Context, tx runner, n *models.Notebook) error {
			return expungeNotesWhere(ctx, tx, sq.Eq{"parent": n.LocalID})
		},
	})

	s.tags = newSQLRepository(db, tableSpec[models.Tag, *models.Tag]{
		table:     "tags",
		parentOf:  func(t *models.Tag) string { return t.ParentLocalID },
		setParent: func(t *models.Tag, parent string) { t.ParentLocalID = parent },
		beforeExpunge: func(ctx context.Context, tx runner, t *models.Tag) error {
			if t.Guid == "" {
				return nil
			}
			return execBuilt(ctx, tx, psql.Delete("note_tags").Where(sq.Eq{"tag_guid": t.Guid}))
		},
	})

	s.savedSearches = newSQLRepository(db, tableSpec[models.SavedSearch, *models.SavedSearch]{
		table: "saved_searches",
	})

	s.linkedNotebooks = newSQLRepository(db, tableSpec[models.LinkedNotebook, *models.LinkedNotebook]{
		table: "linked_notebooks",
		beforeExpunge: func(ctx context.Context, tx runner, l *models.LinkedNotebook) error {
			if l.Guid == "" {
				return nil
			}
			owned := sq.Eq{"linked_notebook_guid": l.Guid}
			if err := expungeNotesWhere(ctx, tx, owned); err != nil {
				return err
			}
			for _, table := range []string{"notebooks", "tags"} {
				if err := execBuilt(ctx, tx, psql.Delete(table).Where(owned)); err != nil {
					return err
				}
			}
			return nil
		},
	})

	s.users = NewUserRepository(db)

	return s
}

func (s *sqliteStorage) Notebooks() Repository[models.Notebook]        { return s.notebooks }
func (s *sqliteStorage) Tags() Repository[models.Tag]                  { return s.tags }
func (s *sqliteStorage) SavedSearches() Repository[models.SavedSearch] { return s.savedSearches }
func (s *sqliteStorage) Notes() Repository[models.Note]                { return s.notes }
func (s *sqliteStorage) Resources() Repository[models.Resource]        { return s.resources }
func (s *sqliteStorage) LinkedNotebooks() Repository[models.LinkedNotebook] {
	return s.linkedNotebooks
}
func (s *sqliteStorage) Users() UserRepository { return s.users }

func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// writeNoteChildren stores the tag links of a note and, when the note carries
// resources, replaces its resources with them.
func (s *sqliteStorage) writeNoteChildren(ctx context.Context, tx runner, n *models.Note) error {
	if err := execBuilt(ctx, tx, psql.Delete("note_tags").Where(sq.Eq{"note_local_id": n.LocalID})); err != nil {
		return err
	}
	for i, tagGuid := range n.TagGuids {
		insert := psql.Insert("note_tags").
			Columns("note_local_id", "tag_guid", "position").
			Values(n.LocalID, tagGuid, i)
		if err := execBuilt(ctx, tx, insert); err != nil {
			return err
		}
	}

	// nil keeps the stored resources untouched
	if n.Resources == nil {
		return nil
	}
	if err := execBuilt(ctx, tx, psql.Delete("resources").Where(sq.Eq{"parent": n.LocalID})); err != nil {
		return err
	}
	for i := range n.Resources {
		res := &n.Resources[i]
		if res.LocalID == "" {
			res.LocalID = s.resources.newID()
		}
		res.NoteLocalID = n.LocalID
		if n.Guid != "" {
			res.NoteGuid = n.Guid
		}
		res.LinkedNotebookGuid = n.LinkedNotebookGuid
		if err := s.resources.insert(ctx, tx, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStorage) readNoteChildren(ctx context.Context, q runner, n *models.Note) error {
	query, args, err := psql.Select("tag_guid").From("note_tags").
		Where(sq.Eq{"note_local_id": n.LocalID}).OrderBy("position").ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	var tagGuids []string
	for rows.Next() {
		var guid string
		if err = rows.Scan(&guid); err != nil {
			rows.Close()
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		tagGuids = append(tagGuids, guid)
	}
	rows.Close()
	n.TagGuids = tagGuids

	query, args, err = psql.Select(entityColumns...).From("resources").
		Where(sq.Eq{"parent": n.LocalID}).OrderBy("local_id").ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	rows, err = q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()
	var resources []models.Resource
	for rows.Next() {
		res, scanErr := s.resources.scan(rows)
		if scanErr != nil {
			return scanErr
		}
		resources = append(resources, res)
	}
	n.Resources = resources
	return rows.Err()
}

func resolveNoteNotebook(ctx context.Context, tx runner, n *models.Note) error {
	if n.NotebookLocalID != "" || n.NotebookGuid == "" {
		return nil
	}
	localID, err := localIDByGuid(ctx, tx, "notebooks", n.NotebookGuid)
	if err == nil {
		n.NotebookLocalID = localID
	}
	return nil
}

func resolveResourceNote(ctx context.Context, tx runner, r *models.Resource) error {
	if r.NoteLocalID != "" || r.NoteGuid == "" {
		return nil
	}
	localID, err := localIDByGuid(ctx, tx, "notes", r.NoteGuid)
	if err == nil {
		r.NoteLocalID = localID
	}
	return nil
}

func expungeNoteChildren(ctx context.Context, tx runner, n *models.Note) error {
	if err := execBuilt(ctx, tx, psql.Delete("resources").Where(sq.Eq{"parent": n.LocalID})); err != nil {
		return err
	}
	return execBuilt(ctx, tx, psql.Delete("note_tags").Where(sq.Eq{"note_local_id": n.LocalID}))
}

// expungeNotesWhere removes the notes matching where along with their
// resources and tag links.
func expungeNotesWhere(ctx context.Context, tx runner, where sq.Eq) error {
	notes := psql.Select("local_id").From("notes").Where(where)
	sub, subArgs, err := notes.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if err = execBuilt(ctx, tx, psql.Delete("resources").Where("parent IN ("+sub+")", subArgs...)); err != nil {
		return err
	}
	if err = execBuilt(ctx, tx, psql.Delete("note_tags").Where("note_local_id IN ("+sub+")", subArgs...)); err != nil {
		return err
	}
	return execBuilt(ctx, tx, psql.Delete("notes").Where(where))
}

func localIDByGuid(ctx context.Context, q runner, table, guid string) (string, error) {
	query, args, err := psql.Select("local_id").From(table).Where(sq.Eq{"guid": guid}).ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	var localID string
	if err = q.QueryRowContext(ctx, query, args...).Scan(&localID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return localID, nil
}

func execBuilt(ctx context.Context, tx runner, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}
