package persistence

import (
	"context"
	"time"
)

// PersonRepository exposes account lookup and registration operations.
type PersonRepository interface {
	CreatePerson(ctx context.Context, person Person) error
	GetPerson(ctx context.Context, id string) (Person, error)
	GetPersonByEmail(ctx context.Context, email string) (Person, error)
}

// EventRepository stores events and their attendee rows. All multi-row writes
// are atomic: an event and its attendees are never visible in a partially
// written state.
type EventRepository interface {
	// CreateEvent inserts the event row and one attendee row per entry in
	// event.Attendees within a single transaction.
	CreateEvent(ctx context.Context, event Event) error
	// UpdateEvent updates the event row scoped by owner, deletes all existing
	// attendee rows, and inserts the provided set, all in one transaction.
	// Returns ErrNotFound when no row matches (id, owner); a non-owner update
	// is indistinguishable from a missing event.
	UpdateEvent(ctx context.Context, event Event) error
	// DeleteEvent removes the event and its attendees, scoped by owner.
	DeleteEvent(ctx context.Context, id, ownerID string) error
	GetEvent(ctx context.Context, id, ownerID string) (Event, error)
	// ListEvents returns the owner's events ordered by start time ascending.
	ListEvents(ctx context.Context, ownerID string) ([]Event, error)
	// UpdateAttendeeStatus transitions a single attendee row identified by
	// (eventID, email). Unknown rows return ErrNotFound.
	UpdateAttendeeStatus(ctx context.Context, eventID, email string, status AttendeeStatus) error
	// ListAttendees returns attendee rows for an event ordered by email.
	ListAttendees(ctx context.Context, eventID string) ([]Attendee, error)
	// DueReminders selects events whose reminder time falls inside
	// (now-window, now] and whose reminder has not been sent, joined with the
	// owner's email.
	DueReminders(ctx context.Context, now time.Time, window time.Duration) ([]DueReminder, error)
	// MarkReminderSent flips reminder_sent to true for the event. Zero rows
	// affected (event deleted or already marked) is reported as ErrNotFound so
	// the sweep can treat it as a no-op.
	MarkReminderSent(ctx context.Context, eventID string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
