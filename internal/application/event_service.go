package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/eventcal/internal/persistence"
)

// EventRepository captures the persistence interactions needed by the service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event persistence.Event) error
	UpdateEvent(ctx context.Context, event persistence.Event) error
	DeleteEvent(ctx context.Context, id, ownerID string) error
	GetEvent(ctx context.Context, id, ownerID string) (persistence.Event, error)
	ListEvents(ctx context.Context, ownerID string) ([]persistence.Event, error)
	UpdateAttendeeStatus(ctx context.Context, eventID, email string, status persistence.AttendeeStatus) error
}

// PersonDirectory exposes account lookup operations.
type PersonDirectory interface {
	GetPerson(ctx context.Context, id string) (persistence.Person, error)
}

// EventService orchestrates validation and persistence for event operations.
// Every write is handed to the repository as one atomic unit: an event and
// its attendee rows commit together or not at all.
type EventService struct {
	events      EventRepository
	people      PersonDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventRepository, people PersonDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		people:      people,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates the request, confirms the owning account still
// exists, and persists the event with its attendee rows atomically.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	principal := params.Principal
	input := params.Input

	logger := s.loggerWith(ctx, "CreateEvent", "owner_id", principal.PersonID)

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	emails := normalizeAttendeeEmails(input.AttendeeEmails, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	// The session may outlive the account it was issued for. Surface that
	// before attempting the write rather than as a foreign key failure.
	if err := s.ensureOwnerExists(ctx, principal.PersonID); err != nil {
		logger.ErrorContext(ctx, "owner lookup failed", "error", err, "error_kind", ErrorKind(err))
		return Event{}, err
	}

	createdAt := s.now().UTC()
	record := persistence.Event{
		ID:          s.idGenerator(),
		OwnerID:     principal.PersonID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Location:    input.Location,
		Start:       input.Start.UTC(),
		End:         input.End.UTC(),
		ReminderAt:  utcTimePtr(input.ReminderAt),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	record.Attendees = s.buildAttendees(record.ID, emails, createdAt)

	if err := s.events.CreateEvent(ctx, record); err != nil {
		mapped := s.mapEventWriteError(err)
		logger.ErrorContext(ctx, "event creation failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return Event{}, mapped
	}

	logger.With("event_id", record.ID, "attendees", len(record.Attendees)).InfoContext(ctx, "event created")
	return toApplicationEvent(record), nil
}

// UpdateEvent validates the request and replaces the event's fields and
// attendee set in one transaction, scoped to the owning principal.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	principal := params.Principal
	input := params.Input

	logger := s.loggerWith(ctx, "UpdateEvent", "event_id", params.EventID, "owner_id", principal.PersonID)

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	emails := normalizeAttendeeEmails(input.AttendeeEmails, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	existing, err := s.events.GetEvent(ctx, params.EventID, principal.PersonID)
	if err != nil {
		mapped := mapEventRepoError(err)
		logger.ErrorContext(ctx, "event lookup failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return Event{}, mapped
	}

	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Description = input.Description
	updated.Location = input.Location
	updated.Start = input.Start.UTC()
	updated.End = input.End.UTC()
	updated.ReminderAt = utcTimePtr(input.ReminderAt)
	updated.UpdatedAt = s.now().UTC()
	updated.Attendees = s.buildAttendees(updated.ID, emails, updated.UpdatedAt)

	if err := s.events.UpdateEvent(ctx, updated); err != nil {
		mapped := s.mapEventWriteError(err)
		logger.ErrorContext(ctx, "event update failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return Event{}, mapped
	}

	persisted, err := s.events.GetEvent(ctx, updated.ID, principal.PersonID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	logger.With("attendees", len(persisted.Attendees)).InfoContext(ctx, "event updated")
	return toApplicationEvent(persisted), nil
}

// DeleteEvent removes an event owned by the principal.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent", "event_id", eventID, "owner_id", principal.PersonID)

	if err := s.events.DeleteEvent(ctx, eventID, principal.PersonID); err != nil {
		mapped := mapEventRepoError(err)
		logger.ErrorContext(ctx, "event deletion failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return mapped
	}

	logger.InfoContext(ctx, "event deleted")
	return nil
}

// GetEvent retrieves an event owned by the principal.
func (s *EventService) GetEvent(ctx context.Context, principal Principal, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	record, err := s.events.GetEvent(ctx, eventID, principal.PersonID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	return toApplicationEvent(record), nil
}

// ListEvents enumerates events owned by the principal ordered by start time.
func (s *EventService) ListEvents(ctx context.Context, principal Principal) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	records, err := s.events.ListEvents(ctx, principal.PersonID)
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	events := make([]Event, 0, len(records))
	for _, record := range records {
		events = append(events, toApplicationEvent(record))
	}
	return events, nil
}

func (s *EventService) ensureOwnerExists(ctx context.Context, ownerID string) error {
	if s.people == nil {
		return nil
	}
	if _, err := s.people.GetPerson(ctx, ownerID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrStaleSession
		}
		return err
	}
	return nil
}

func (s *EventService) buildAttendees(eventID string, emails []string, createdAt time.Time) []persistence.Attendee {
	attendees := make([]persistence.Attendee, 0, len(emails))
	for _, email := range emails {
		attendees = append(attendees, persistence.Attendee{
			ID:        s.idGenerator(),
			EventID:   eventID,
			Email:     email,
			Status:    persistence.AttendeeStatusPending,
			CreatedAt: createdAt,
		})
	}
	return attendees
}

// mapEventWriteError folds persistence failures during writes into the
// application error taxonomy. An owner foreign key failure means the account
// disappeared between the precheck and the write.
func (s *EventService) mapEventWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrStaleSession
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return fmt.Errorf("%w: %w", ErrEventWriteFailed, err)
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}

	if input.ReminderAt != nil && !input.Start.IsZero() && !input.ReminderAt.Before(input.Start) {
		vErr.add("reminder", "reminder must be before the event start")
	}
}

// normalizeAttendeeEmails lowercases, trims and deduplicates attendee
// addresses. Duplicates collapse silently so the unique constraint in
// storage never surfaces to callers.
func normalizeAttendeeEmails(emails []string, vErr *ValidationError) []string {
	seen := make(map[string]struct{}, len(emails))
	result := make([]string, 0, len(emails))
	for _, email := range emails {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if normalized == "" {
			continue
		}
		if _, err := mail.ParseAddress(normalized); err != nil {
			vErr.add("attendees", fmt.Sprintf("invalid email address: %s", normalized))
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}

func utcTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func toApplicationEvent(record persistence.Event) Event {
	attendees := make([]Attendee, 0, len(record.Attendees))
	for _, attendee := range record.Attendees {
		attendees = append(attendees, Attendee{
			ID:     attendee.ID,
			Email:  attendee.Email,
			Status: string(attendee.Status),
		})
	}

	return Event{
		ID:           record.ID,
		OwnerID:      record.OwnerID,
		Title:        record.Title,
		Description:  record.Description,
		Location:     record.Location,
		Start:        record.Start,
		End:          record.End,
		ReminderAt:   record.ReminderAt,
		ReminderSent: record.ReminderSent,
		Attendees:    attendees,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}
