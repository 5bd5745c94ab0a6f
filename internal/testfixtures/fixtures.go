// Package testfixtures provides deterministic builders and fakes shared by
// tests across the module.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/eventcal/internal/persistence"
)

var (
	personCounter  uint64
	eventCounter   uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Person fixtures ----------------------------

// PersonOption configures the generated person fixture.
type PersonOption func(*persistence.Person)

// NewPersonFixture returns a deterministic person record with optional overrides.
func NewPersonFixture(opts ...PersonOption) persistence.Person {
	idx := atomic.AddUint64(&personCounter, 1)
	id := fmt.Sprintf("person-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.Person{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPersonID overrides the generated person ID.
func WithPersonID(id string) PersonOption {
	return func(f *persistence.Person) {
		f.ID = id
	}
}

// WithPersonEmail overrides the generated email address.
func WithPersonEmail(email string) PersonOption {
	return func(f *persistence.Person) {
		f.Email = email
	}
}

// WithPersonPasswordHash overrides the generated password hash.
func WithPersonPasswordHash(hash string) PersonOption {
	return func(f *persistence.Person) {
		f.PasswordHash = hash
	}
}

// ----------------------------- Event fixtures -----------------------------

// EventOption configures the generated event fixture.
type EventOption func(*persistence.Event)

// NewEventFixture returns a deterministic event record with optional overrides.
// The event starts one hour after the reference time and runs for one hour.
func NewEventFixture(opts ...EventOption) persistence.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	id := fmt.Sprintf("event-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	start := referenceTime.Add(time.Hour)
	fixture := persistence.Event{
		ID:        id,
		OwnerID:   "person-001",
		Title:     fmt.Sprintf("Event %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *persistence.Event) {
		f.ID = id
	}
}

// WithEventOwner overrides the owning person.
func WithEventOwner(ownerID string) EventOption {
	return func(f *persistence.Event) {
		f.OwnerID = ownerID
	}
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(f *persistence.Event) {
		f.Title = title
	}
}

// WithEventTimes sets the start and end instants.
func WithEventTimes(start, end time.Time) EventOption {
	return func(f *persistence.Event) {
		f.Start = start
		f.End = end
	}
}

// WithEventReminder sets the reminder time.
func WithEventReminder(at time.Time) EventOption {
	return func(f *persistence.Event) {
		f.ReminderAt = &at
	}
}

// WithEventReminderSent marks the reminder as already delivered.
func WithEventReminderSent() EventOption {
	return func(f *persistence.Event) {
		f.ReminderSent = true
	}
}

// WithEventAttendees replaces the attendee set with rows built from the
// provided emails.
func WithEventAttendees(emails ...string) EventOption {
	return func(f *persistence.Event) {
		attendees := make([]persistence.Attendee, 0, len(emails))
		for i, email := range emails {
			attendees = append(attendees, persistence.Attendee{
				ID:        fmt.Sprintf("%s-att-%d", f.ID, i+1),
				EventID:   f.ID,
				Email:     email,
				Status:    persistence.AttendeeStatusPending,
				CreatedAt: f.CreatedAt,
			})
		}
		f.Attendees = attendees
	}
}

// ---------------------------- Session fixtures ----------------------------

// SessionOption configures the generated session fixture.
type SessionOption func(*persistence.Session)

// NewSessionFixture returns a deterministic session record with optional overrides.
func NewSessionFixture(opts ...SessionOption) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	id := fmt.Sprintf("session-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.Session{
		ID:        id,
		PersonID:  "person-001",
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: created.Add(24 * time.Hour),
		CreatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionPerson overrides the session's person.
func WithSessionPerson(personID string) SessionOption {
	return func(f *persistence.Session) {
		f.PersonID = personID
	}
}

// WithSessionToken overrides the generated token.
func WithSessionToken(token string) SessionOption {
	return func(f *persistence.Session) {
		f.Token = token
	}
}

// WithSessionExpiry overrides the expiry instant.
func WithSessionExpiry(at time.Time) SessionOption {
	return func(f *persistence.Session) {
		f.ExpiresAt = at
	}
}

// WithSessionRevoked marks the session revoked at the given instant.
func WithSessionRevoked(at time.Time) SessionOption {
	return func(f *persistence.Session) {
		f.RevokedAt = &at
	}
}
