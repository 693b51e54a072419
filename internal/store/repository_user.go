package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/models"
)

// userRepository is the SQLite-backed implementation of [UserRepository].
type userRepository struct {
	db *DB
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection.
func NewUserRepository(db *DB) UserRepository {
	return &userRepository{db: db}
}

// PutUser inserts the user or overwrites the stored record with the same id.
func (r *userRepository) PutUser(ctx context.Context, user models.User) error {
	log := logger.FromContext(ctx)

	_, err := r.db.ExecContext(ctx, upsertUser,
		user.ID,
		user.Username,
		user.Email,
		user.Name,
		user.Timezone,
		user.ServiceLevel,
		user.Created,
		user.Updated,
		user.Active,
		user.ShardID,
	)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.PutUser").Int32("user_id", user.ID).Msg("failed to upsert user")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// FindUser returns the user with the given id or [ErrNotFound].
func (r *userRepository) FindUser(ctx context.Context, id int32) (models.User, error) {
	log := logger.FromContext(ctx)

	var user models.User
	err := r.db.QueryRowContext(ctx, findUserByID, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Timezone,
		&user.ServiceLevel,
		&user.Created,
		&user.Updated,
		&user.Active,
		&user.ShardID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		log.Err(err).Str("func", "*userRepository.FindUser").Int32("user_id", id).Msg("error: scanning error")
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return user, nil
}
