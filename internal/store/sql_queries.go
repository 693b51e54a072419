package store

const (
	upsertUser = `
		INSERT INTO users (id, username, email, name, timezone, service_level, created, updated, active, shard_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			email = excluded.email,
			name = excluded.name,
			timezone = excluded.timezone,
			service_level = excluded.service_level,
			created = excluded.created,
			updated = excluded.updated,
			active = excluded.active,
			shard_id = excluded.shard_id`

	findUserByID = `
		SELECT id, username, email, name, timezone, service_level, created, updated, active, shard_id
		FROM users
		WHERE id = ?`
)
