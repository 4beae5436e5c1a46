package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trip_id INTEGER NOT NULL REFERENCES trips(id),
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	timestamp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trips_user_created ON trips(user_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_positions_trip ON positions(trip_id, timestamp, id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	id BIGSERIAL PRIMARY KEY,
	trip_id BIGINT NOT NULL REFERENCES trips(id),
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	timestamp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trips_user_created ON trips(user_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_positions_trip ON positions(trip_id, timestamp, id);
`

// Migrate creates the schema for the given dialect. createdAt, updatedAt and
// position timestamps are stored as fixed-width text so lexical order equals
// chronological order in both dialects.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	schema := schemaSQLite
	if dialect == DialectPostgres {
		schema = schemaPostgres
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
