package sqlite

import (
	"context"
	"fmt"
)

// schemaStatements holds the idempotent DDL applied at startup. The partial
// index on reminder_time backs the reminder sweep's due-window scan.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS people (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES people(id),
		title TEXT NOT NULL,
		description TEXT,
		location TEXT,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		reminder_time TEXT,
		reminder_sent INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE TABLE IF NOT EXISTS event_attendees (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		email TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		UNIQUE (event_id, email)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		person_id TEXT NOT NULL REFERENCES people(id),
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_owner_id ON events(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_reminder_time
		ON events(reminder_time) WHERE reminder_sent = 0`,
	`CREATE INDEX IF NOT EXISTS idx_event_attendees_event_id
		ON event_attendees(event_id)`,
}

// Migrate applies the schema. Safe to call on every startup.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
