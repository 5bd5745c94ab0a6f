package persistence

import "time"

// Person represents a registered account that can own events.
type Person struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AttendeeStatus tracks the invite lifecycle of a single attendee row.
type AttendeeStatus string

const (
	// AttendeeStatusPending is the initial status assigned on insert.
	AttendeeStatusPending AttendeeStatus = "pending"
	// AttendeeStatusInvited marks attendees whose invite was delivered.
	AttendeeStatusInvited AttendeeStatus = "invited"
	// AttendeeStatusAccepted marks attendees who accepted the invite.
	AttendeeStatusAccepted AttendeeStatus = "accepted"
	// AttendeeStatusDeclined marks attendees who declined the invite.
	AttendeeStatusDeclined AttendeeStatus = "declined"
)

// Attendee represents an invited email address attached to one event.
type Attendee struct {
	ID        string
	EventID   string
	Email     string
	Status    AttendeeStatus
	CreatedAt time.Time
}

// Event represents a calendar entry stored in persistence together with its
// attendee rows.
type Event struct {
	ID           string
	OwnerID      string
	Title        string
	Description  *string
	Location     *string
	Start        time.Time
	End          time.Time
	ReminderAt   *time.Time
	ReminderSent bool
	Attendees    []Attendee
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DueReminder pairs a due event with the owning person's email address, as
// selected by the reminder sweep query.
type DueReminder struct {
	Event      Event
	OwnerEmail string
}

// Session represents an authentication session persisted for a person.
type Session struct {
	ID        string
	PersonID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
