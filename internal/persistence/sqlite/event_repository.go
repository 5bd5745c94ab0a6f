package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/eventcal/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateEvent inserts a new event with its attendee rows in one transaction
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.OwnerID == "" {
		return persistence.ErrConstraintViolation
	}
	if !event.Start.Before(event.End) {
		return persistence.ErrConstraintViolation
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (id, owner_id, title, description, location, start_time, end_time, reminder_time, reminder_sent, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err := r.helper.ExecTx(tx, query,
			event.ID,
			event.OwnerID,
			event.Title,
			nullString(event.Description),
			nullString(event.Location),
			event.Start.UTC().Format(time.RFC3339),
			event.End.UTC().Format(time.RFC3339),
			nullTime(event.ReminderAt),
			event.ReminderSent,
			event.CreatedAt.Format(time.RFC3339),
			event.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return r.mapEventError(err)
		}

		return r.insertAttendees(tx, event.ID, event.Attendees, event.CreatedAt)
	})
}

// UpdateEvent updates an event scoped by owner and replaces its attendee set.
// The replacement is a full delete-then-insert inside the same transaction.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.OwnerID == "" {
		return persistence.ErrConstraintViolation
	}
	if !event.Start.Before(event.End) {
		return persistence.ErrConstraintViolation
	}

	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now().UTC()
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE events
			SET title = ?, description = ?, location = ?, start_time = ?, end_time = ?, reminder_time = ?, updated_at = ?
			WHERE id = ? AND owner_id = ?
		`

		result, err := r.helper.ExecTx(tx, query,
			event.Title,
			nullString(event.Description),
			nullString(event.Location),
			event.Start.UTC().Format(time.RFC3339),
			event.End.UTC().Format(time.RFC3339),
			nullTime(event.ReminderAt),
			event.UpdatedAt.Format(time.RFC3339),
			event.ID,
			event.OwnerID,
		)
		if err != nil {
			return r.mapEventError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		// A non-owner update matches zero rows and is indistinguishable from
		// a missing event.
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		_, err = r.helper.ExecTx(tx, "DELETE FROM event_attendees WHERE event_id = ?", event.ID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertAttendees(tx, event.ID, event.Attendees, event.UpdatedAt)
	})
}

// DeleteEvent removes an event and its attendees scoped by owner
func (r *EventRepository) DeleteEvent(ctx context.Context, id, ownerID string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx, "DELETE FROM event_attendees WHERE event_id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, "DELETE FROM events WHERE id = ? AND owner_id = ?", id, ownerID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

// GetEvent retrieves an event with its attendees, scoped by owner
func (r *EventRepository) GetEvent(ctx context.Context, id, ownerID string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, owner_id, title, description, location, start_time, end_time, reminder_time, reminder_sent, created_at, updated_at
		FROM events
		WHERE id = ? AND owner_id = ?
	`

	event, err := r.scanEvent(r.helper.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return persistence.Event{}, err
	}

	attendees, err := r.ListAttendees(ctx, event.ID)
	if err != nil {
		return persistence.Event{}, err
	}
	event.Attendees = attendees

	return event, nil
}

// ListEvents returns all events for an owner ordered by start time ascending
func (r *EventRepository) ListEvents(ctx context.Context, ownerID string) ([]persistence.Event, error) {
	query := `
		SELECT id, owner_id, title, description, location, start_time, end_time, reminder_time, reminder_sent, created_at, updated_at
		FROM events
		WHERE owner_id = ?
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, ownerID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event

	for rows.Next() {
		event, err := r.scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range events {
		attendees, err := r.ListAttendees(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].Attendees = attendees
	}

	return events, nil
}

// UpdateAttendeeStatus transitions a single attendee row keyed by (event, email)
func (r *EventRepository) UpdateAttendeeStatus(ctx context.Context, eventID, email string, status persistence.AttendeeStatus) error {
	if eventID == "" || email == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx,
		"UPDATE event_attendees SET status = ? WHERE event_id = ? AND email = ?",
		string(status), eventID, normalizeEmail(email))
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// ListAttendees loads attendee rows for an event ordered by email
func (r *EventRepository) ListAttendees(ctx context.Context, eventID string) ([]persistence.Attendee, error) {
	query := `
		SELECT id, event_id, email, status, created_at
		FROM event_attendees
		WHERE event_id = ?
		ORDER BY email ASC
	`

	rows, err := r.helper.Query(ctx, query, eventID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var attendees []persistence.Attendee

	for rows.Next() {
		var attendee persistence.Attendee
		var status, createdAtStr string

		if err := rows.Scan(&attendee.ID, &attendee.EventID, &attendee.Email, &status, &createdAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}

		attendee.Status = persistence.AttendeeStatus(status)
		if attendee.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		attendees = append(attendees, attendee)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return attendees, nil
}

// DueReminders selects unsent reminders inside (now-window, now], joined with
// the owning person's email. The join targets the same people relation the
// events table references.
func (r *EventRepository) DueReminders(ctx context.Context, now time.Time, window time.Duration) ([]persistence.DueReminder, error) {
	query := `
		SELECT e.id, e.owner_id, e.title, e.description, e.location, e.start_time, e.end_time, e.reminder_time, e.reminder_sent, e.created_at, e.updated_at, p.email
		FROM events e
		JOIN people p ON e.owner_id = p.id
		WHERE e.reminder_time <= ?
		AND e.reminder_time > ?
		AND e.reminder_sent = 0
		ORDER BY e.reminder_time ASC, e.id ASC
	`

	upper := now.UTC().Format(time.RFC3339)
	lower := now.Add(-window).UTC().Format(time.RFC3339)

	rows, err := r.helper.Query(ctx, query, upper, lower)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var due []persistence.DueReminder

	for rows.Next() {
		var event persistence.Event
		var description, location, reminderStr sql.NullString
		var startStr, endStr, createdAtStr, updatedAtStr, ownerEmail string

		err := rows.Scan(
			&event.ID,
			&event.OwnerID,
			&event.Title,
			&description,
			&location,
			&startStr,
			&endStr,
			&reminderStr,
			&event.ReminderSent,
			&createdAtStr,
			&updatedAtStr,
			&ownerEmail,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		if description.Valid {
			event.Description = &description.String
		}
		if location.Valid {
			event.Location = &location.String
		}

		if event.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if event.End, err = time.Parse(time.RFC3339, endStr); err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		if reminderStr.Valid {
			reminder, err := time.Parse(time.RFC3339, reminderStr.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse reminder_time: %w", err)
			}
			event.ReminderAt = &reminder
		}
		if event.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		due = append(due, persistence.DueReminder{Event: event, OwnerEmail: ownerEmail})
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return due, nil
}

// MarkReminderSent flips reminder_sent exactly once. The sweep runs alongside
// user-driven writes, so transient locked errors are retried; a zero-row
// update (event deleted or already marked) surfaces as ErrNotFound.
func (r *EventRepository) MarkReminderSent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			"UPDATE events SET reminder_sent = 1, updated_at = ? WHERE id = ? AND reminder_sent = 0",
			time.Now().UTC().Format(time.RFC3339), eventID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

// insertAttendees inserts attendee rows for an event within a transaction.
// Emails are deduplicated case-insensitively before insert so the unique
// constraint never surfaces to callers.
func (r *EventRepository) insertAttendees(tx *sql.Tx, eventID string, attendees []persistence.Attendee, fallbackCreatedAt time.Time) error {
	if len(attendees) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(attendees))
	for _, attendee := range attendees {
		email := normalizeEmail(attendee.Email)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}

		status := attendee.Status
		if status == "" {
			status = persistence.AttendeeStatusPending
		}
		createdAt := attendee.CreatedAt
		if createdAt.IsZero() {
			createdAt = fallbackCreatedAt
		}

		_, err := r.helper.ExecTx(tx,
			"INSERT INTO event_attendees (id, event_id, email, status, created_at) VALUES (?, ?, ?, ?, ?)",
			attendee.ID, eventID, email, string(status), createdAt.UTC().Format(time.RFC3339))
		if err != nil {
			return r.mapEventError(err)
		}
	}

	return nil
}

func (r *EventRepository) scanEvent(row *sql.Row) (persistence.Event, error) {
	var event persistence.Event
	var description, location, reminderStr sql.NullString
	var startStr, endStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&event.ID,
		&event.OwnerID,
		&event.Title,
		&description,
		&location,
		&startStr,
		&endStr,
		&reminderStr,
		&event.ReminderSent,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, r.mapper.MapError(err)
	}

	return r.finishEventScan(event, description, location, reminderStr, startStr, endStr, createdAtStr, updatedAtStr)
}

func (r *EventRepository) scanEventRow(rows *sql.Rows) (persistence.Event, error) {
	var event persistence.Event
	var description, location, reminderStr sql.NullString
	var startStr, endStr, createdAtStr, updatedAtStr string

	err := rows.Scan(
		&event.ID,
		&event.OwnerID,
		&event.Title,
		&description,
		&location,
		&startStr,
		&endStr,
		&reminderStr,
		&event.ReminderSent,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}

	return r.finishEventScan(event, description, location, reminderStr, startStr, endStr, createdAtStr, updatedAtStr)
}

func (r *EventRepository) finishEventScan(event persistence.Event, description, location, reminderStr sql.NullString, startStr, endStr, createdAtStr, updatedAtStr string) (persistence.Event, error) {
	var err error

	if description.Valid {
		event.Description = &description.String
	}
	if location.Valid {
		event.Location = &location.String
	}

	if event.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if event.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if reminderStr.Valid {
		reminder, err := time.Parse(time.RFC3339, reminderStr.String)
		if err != nil {
			return persistence.Event{}, fmt.Errorf("failed to parse reminder_time: %w", err)
		}
		event.ReminderAt = &reminder
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return event, nil
}

// mapEventError maps SQLite errors to appropriate persistence errors for event operations
func (r *EventRepository) mapEventError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	// Handle unique constraint violations
	if containsAny(errStr, []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}

	// Handle foreign key violations
	if containsAny(errStr, []string{"FOREIGN KEY constraint failed"}) {
		return persistence.ErrForeignKeyViolation
	}

	// Handle check constraint violations
	if containsAny(errStr, []string{"CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}

	// Use the general error mapper for other cases
	return r.mapper.MapError(err)
}

// normalizeEmail lowercases and trims an address so (event, email) uniqueness
// is case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.UTC().Format(time.RFC3339), Valid: true}
}
