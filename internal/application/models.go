package application

import "time"

// Principal represents the authenticated person invoking a service method.
type Principal struct {
	PersonID string
	Email    string
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title          string
	Description    *string
	Location       *string
	Start          time.Time
	End            time.Time
	ReminderAt     *time.Time
	AttendeeEmails []string
}

// Attendee represents an invitee on an event.
type Attendee struct {
	ID     string
	Email  string
	Status string
}

// Event represents a persisted calendar event.
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

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// DeliveryFailure records one attendee whose invite could not be delivered.
type DeliveryFailure struct {
	Email  string
	Reason string
}

// DispatchResult reports the per-attendee outcome of an invite dispatch.
// Delivery failures are data, not errors: one bounced address never aborts
// the rest of the batch.
type DispatchResult struct {
	EventID string
	Sent    []string
	Failed  []DeliveryFailure
}

// Person represents a registered account exposed by the application services.
type Person struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisterParams captures the data required to register an account.
type RegisterParams struct {
	Email    string
	Password string
}

// Session represents an authenticated session issued to a person.
type Session struct {
	ID        string
	PersonID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a person.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	Person  Person
	Session Session
}
