package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/utils"
	"github.com/MKhiriev/go-note-keeper/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var entityColumns = []string{
	"local_id", "guid", "usn", "name", "dirty", "local", "linked_notebook_guid", "parent", "payload",
}

// writeColumns adds the derived columns that are written but never scanned.
var writeColumns = append(append([]string{}, entityColumns...), "name_key")

// tableSpec describes how one entity kind maps onto its table. The hooks run
// inside the transaction of the write or on the connection of the read.
type tableSpec[T any, P models.Syncable[T]] struct {
	table string

	parentOf  func(P) string
	setParent func(P, string)

	// strip removes the parts of the entity stored outside the payload
	// column. It receives a copy.
	strip func(P)

	beforeWrite   func(ctx context.Context, tx runner, item P) error
	afterWrite    func(ctx context.Context, tx runner, item P) error
	afterRead     func(ctx context.Context, q runner, item P) error
	beforeExpunge func(ctx context.Context, tx runner, item P) error
}

// sqlRepository is the SQLite-backed [Repository] shared by every entity kind.
type sqlRepository[T any, P models.Syncable[T]] struct {
	db    *DB
	spec  tableSpec[T, P]
	newID func() string
}

func newSQLRepository[T any, P models.Syncable[T]](db *DB, spec tableSpec[T, P]) *sqlRepository[T, P] {
	return &sqlRepository[T, P]{
		db:    db,
		spec:  spec,
		newID: utils.NewLocalID,
	}
}

func (r *sqlRepository[T, P]) Add(ctx context.Context, item T) (T, error) {
	log := logger.FromContext(ctx)

	p := P(&item)
	if p.Meta().LocalID == "" {
		p.Meta().LocalID = r.newID()
	}

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, p)
	})
	if err != nil {
		log.Err(err).
			Str("func", "sqlRepository.Add").
			Str("table", r.spec.table).
			Str("local_id", p.Meta().LocalID).
			Str("guid", p.Meta().Guid).
			Msg("failed to add entity")
		var zero T
		return zero, fmt.Errorf("failed to add %s (local_id=%s): %w", r.spec.table, p.Meta().LocalID, err)
	}

	return item, nil
}

// insert writes a new row for p using the given transaction.
func (r *sqlRepository[T, P]) insert(ctx context.Context, tx runner, p P) error {
	if r.spec.beforeWrite != nil {
		if err := r.spec.beforeWrite(ctx, tx, p); err != nil {
			return err
		}
	}

	values, err := r.rowValues(p)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert(r.spec.table).Columns(writeColumns...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if r.spec.afterWrite != nil {
		return r.spec.afterWrite(ctx, tx, p)
	}
	return nil
}

func (r *sqlRepository[T, P]) Update(ctx context.Context, item T) (T, error) {
	log := logger.FromContext(ctx)

	p := P(&item)
	meta := p.Meta()
	if meta.LocalID == "" && meta.Guid == "" {
		var zero T
		return zero, fmt.Errorf("update %s without local id and guid: %w", r.spec.table, ErrInvalidEntity)
	}

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		if meta.LocalID == "" {
			localID, err := r.localIDByGuid(ctx, tx, meta.Guid)
			if err != nil {
				return err
			}
			meta.LocalID = localID
		}

		if r.spec.beforeWrite != nil {
			if err := r.spec.beforeWrite(ctx, tx, p); err != nil {
				return err
			}
		}

		values, err := r.rowValues(p)
		if err != nil {
			return err
		}
		set := make(map[string]any, len(writeColumns)-1)
		for i, column := range writeColumns[1:] {
			set[column] = values[i+1]
		}
		query, args, err := psql.Update(r.spec.table).SetMap(set).Where(sq.Eq{"local_id": meta.LocalID}).ToSql()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrNotFound
		}

		if r.spec.afterWrite != nil {
			return r.spec.afterWrite(ctx, tx, p)
		}
		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "sqlRepository.Update").
			Str("table", r.spec.table).
			Str("local_id", meta.LocalID).
			Str("guid", meta.Guid).
			Msg("failed to update entity")
		var zero T
		return zero, fmt.Errorf("failed to update %s (local_id=%s): %w", r.spec.table, meta.LocalID, err)
	}

	return item, nil
}

func (r *sqlRepository[T, P]) FindByLocalID(ctx context.Context, localID string) (T, error) {
	return r.findOne(ctx, sq.Eq{"local_id": localID})
}

func (r *sqlRepository[T, P]) FindByGuid(ctx context.Context, guid string) (T, error) {
	if guid == "" {
		var zero T
		return zero, ErrNotFound
	}
	return r.findOne(ctx, sq.Eq{"guid": guid})
}

func (r *sqlRepository[T, P]) FindByName(ctx context.Context, name, linkedNotebookGuid string) (T, error) {
	return r.findOne(ctx, sq.And{
		sq.Eq{"name_key": models.NameKey(name)},
		scope(InLinkedNotebook(linkedNotebookGuid)),
	})
}

func (r *sqlRepository[T, P]) findOne(ctx context.Context, where sq.Sqlizer) (T, error) {
	log := logger.FromContext(ctx)

	var zero T
	query, args, err := psql.Select(entityColumns...).From(r.spec.table).Where(where).Limit(1).ToSql()
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	item, err := r.scan(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "sqlRepository.findOne").
			Str("table", r.spec.table).
			Msg("failed to scan entity row")
		return zero, err
	}

	if r.spec.afterRead != nil {
		if err = r.spec.afterRead(ctx, r.db, P(&item)); err != nil {
			return zero, err
		}
	}
	return item, nil
}

func (r *sqlRepository[T, P]) ExpungeByGuid(ctx context.Context, guid string) error {
	if guid == "" {
		return ErrNotFound
	}
	return r.expunge(ctx, sq.Eq{"guid": guid})
}

func (r *sqlRepository[T, P]) ExpungeByLocalID(ctx context.Context, localID string) error {
	return r.expunge(ctx, sq.Eq{"local_id": localID})
}

func (r *sqlRepository[T, P]) expunge(ctx context.Context, where sq.Sqlizer) error {
	log := logger.FromContext(ctx)

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := psql.Select(entityColumns...).From(r.spec.table).Where(where).Limit(1).ToSql()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		item, err := r.scan(tx.QueryRowContext(ctx, query, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		p := P(&item)
		if r.spec.beforeExpunge != nil {
			if err = r.spec.beforeExpunge(ctx, tx, p); err != nil {
				return err
			}
		}

		query, args, err = psql.Delete(r.spec.table).Where(sq.Eq{"local_id": p.Meta().LocalID}).ToSql()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Err(err).
			Str("func", "sqlRepository.expunge").
			Str("table", r.spec.table).
			Msg("failed to expunge entity")
	}
	if err != nil {
		return fmt.Errorf("failed to expunge %s: %w", r.spec.table, err)
	}
	return nil
}

func (r *sqlRepository[T, P]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	log := logger.FromContext(ctx)

	builder := psql.Select(entityColumns...).From(r.spec.table)
	if opts.OnlyDirty {
		builder = builder.Where(sq.Eq{"dirty": true})
	}
	if opts.LinkedNotebookGuid != nil {
		builder = builder.Where(scope(opts.LinkedNotebookGuid))
	}
	builder = builder.OrderBy(orderClause(opts))
	if opts.Limit > 0 {
		builder = builder.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		builder = builder.Offset(uint64(opts.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "sqlRepository.List").
			Str("table", r.spec.table).
			Msg("failed to execute list query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	var items []T
	for rows.Next() {
		item, scanErr := r.scan(rows)
		if scanErr != nil {
			rows.Close()
			log.Err(scanErr).
				Str("func", "sqlRepository.List").
				Str("table", r.spec.table).
				Msg("failed to scan entity rows")
			return nil, scanErr
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	rows.Close()

	// hooks may query again, so they run after the cursor is closed
	if r.spec.afterRead != nil {
		for i := range items {
			if err = r.spec.afterRead(ctx, r.db, P(&items[i])); err != nil {
				return nil, err
			}
		}
	}

	return items, nil
}

func (r *sqlRepository[T, P]) localIDByGuid(ctx context.Context, q runner, guid string) (string, error) {
	return localIDByGuid(ctx, q, r.spec.table, guid)
}

func (r *sqlRepository[T, P]) rowValues(p P) ([]any, error) {
	meta := p.Meta()

	stored := *p
	if r.spec.strip != nil {
		r.spec.strip(P(&stored))
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingPayload, err)
	}

	var parent string
	if r.spec.parentOf != nil {
		parent = r.spec.parentOf(p)
	}

	return []any{
		meta.LocalID,
		nullString(meta.Guid),
		meta.USN,
		p.EntityName(),
		meta.Dirty,
		meta.Local,
		nullString(meta.LinkedNotebookGuid),
		nullString(parent),
		string(payload),
		models.NameKey(p.EntityName()),
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *sqlRepository[T, P]) scan(row scanner) (T, error) {
	var (
		item                     T
		localID, name            string
		guid, linkedNotebookGuid sql.NullString
		parent                   sql.NullString
		usn                      int32
		dirty, local             bool
		payload                  []byte
	)

	if err := row.Scan(&localID, &guid, &usn, &name, &dirty, &local, &linkedNotebookGuid, &parent, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	if err := json.Unmarshal(payload, &item); err != nil {
		return item, fmt.Errorf("%w: %w", ErrEncodingPayload, err)
	}

	p := P(&item)
	*p.Meta() = models.SyncMeta{
		LocalID:            localID,
		Guid:               guid.String,
		USN:                usn,
		Dirty:              dirty,
		Local:              local,
		LinkedNotebookGuid: linkedNotebookGuid.String,
	}
	if r.spec.setParent != nil {
		r.spec.setParent(p, parent.String)
	}
	return item, nil
}

func scope(linkedNotebookGuid *string) sq.Sqlizer {
	if *linkedNotebookGuid == "" {
		return sq.Eq{"linked_notebook_guid": nil}
	}
	return sq.Eq{"linked_notebook_guid": *linkedNotebookGuid}
}

func orderClause(opts ListOptions) string {
	column := "local_id"
	switch opts.Order {
	case OrderByName:
		column = "name_key"
	case OrderByUSN:
		column = "usn"
	}
	if opts.Direction == Descending {
		return column + " DESC"
	}
	return column + " ASC"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
