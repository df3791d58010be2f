package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the PostgreSQL schema for the record store. Collaborator lists are
// stored as JSON text the same way role permission sets usually are: the list
// is tiny, read whole on every check, and never queried by element server-side.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	role TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trees (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	is_public BOOLEAN NOT NULL DEFAULT FALSE,
	collaborators TEXT NOT NULL DEFAULT '[]',
	invite_token TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trees_owner ON trees(owner_id);
CREATE INDEX IF NOT EXISTS idx_trees_public ON trees(is_public);

CREATE TABLE IF NOT EXISTS wishes (
	id TEXT PRIMARY KEY,
	tree_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'other',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_wishes_tree ON wishes(tree_id);

CREATE TABLE IF NOT EXISTS invite_codes (
	code TEXT PRIMARY KEY,
	max_uses INTEGER NOT NULL DEFAULT 0,
	used_count INTEGER NOT NULL DEFAULT 0,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_used_by TEXT NOT NULL DEFAULT '',
	last_used_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	actor_id TEXT NOT NULL DEFAULT '',
	resource_type TEXT NOT NULL,
	resource_id TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_events_resource ON audit_events(resource_type, resource_id);
`

// Migrate creates the record store schema if it does not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
