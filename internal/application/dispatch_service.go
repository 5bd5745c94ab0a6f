package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/eventcal/internal/mail"
	"github.com/example/eventcal/internal/persistence"
)

// DispatchService sends invitation emails to the attendees of an event.
type DispatchService struct {
	events  EventRepository
	invites *InviteGenerator
	mailer  mail.Mailer
	logger  *slog.Logger
}

// NewDispatchService wires dependencies for invite dispatch.
func NewDispatchService(events EventRepository, invites *InviteGenerator, mailer mail.Mailer, logger *slog.Logger) *DispatchService {
	return &DispatchService{
		events:  events,
		invites: invites,
		mailer:  mailer,
		logger:  defaultLogger(logger),
	}
}

func (s *DispatchService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DispatchService", operation, attrs...)
}

// SendInvites generates the event's invitation document and mails it to each
// attendee independently. One failed delivery never aborts the batch; the
// per-recipient outcome comes back in the result. An event with no attendees
// fails fast before any generation work.
func (s *DispatchService) SendInvites(ctx context.Context, principal Principal, eventID string) (DispatchResult, error) {
	if s == nil {
		return DispatchResult{}, fmt.Errorf("DispatchService is nil")
	}
	if s.events == nil {
		return DispatchResult{}, fmt.Errorf("event repository not configured")
	}
	if s.invites == nil {
		return DispatchResult{}, fmt.Errorf("invite generator not configured")
	}
	if s.mailer == nil {
		return DispatchResult{}, fmt.Errorf("mailer not configured")
	}

	logger := s.loggerWith(ctx, "SendInvites", "event_id", eventID, "owner_id", principal.PersonID)

	record, err := s.events.GetEvent(ctx, eventID, principal.PersonID)
	if err != nil {
		mapped := mapEventRepoError(err)
		logger.ErrorContext(ctx, "event lookup failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return DispatchResult{}, mapped
	}

	if len(record.Attendees) == 0 {
		logger.ErrorContext(ctx, "dispatch rejected", "error", ErrNoAttendees, "error_kind", ErrorKind(ErrNoAttendees))
		return DispatchResult{}, ErrNoAttendees
	}

	event := toApplicationEvent(record)

	ics, err := s.invites.Generate(event, principal.Email)
	if err != nil {
		return DispatchResult{}, err
	}

	result := DispatchResult{EventID: event.ID}

	for _, attendee := range event.Attendees {
		msg := mail.Message{
			To:       attendee.Email,
			Subject:  fmt.Sprintf("Invitation: %s", event.Title),
			TextBody: inviteBodyText(event, principal.Email),
			Attachments: []mail.Attachment{
				{
					Filename:    "invite.ics",
					ContentType: "text/calendar; method=REQUEST; charset=UTF-8",
					Content:     ics,
				},
			},
		}

		if err := s.mailer.Send(ctx, msg); err != nil {
			logger.WarnContext(ctx, "invite delivery failed", "attendee", attendee.Email, "error", err)
			result.Failed = append(result.Failed, DeliveryFailure{Email: attendee.Email, Reason: err.Error()})
			continue
		}

		result.Sent = append(result.Sent, attendee.Email)

		if err := s.events.UpdateAttendeeStatus(ctx, event.ID, attendee.Email, persistence.AttendeeStatusInvited); err != nil {
			// The mail went out; a failed status write only loses bookkeeping.
			logger.WarnContext(ctx, "failed to record invited status", "attendee", attendee.Email, "error", err)
		}
	}

	logger.With("sent", len(result.Sent), "failed", len(result.Failed)).InfoContext(ctx, "invite dispatch finished")
	return result, nil
}

func inviteBodyText(event Event, organizerEmail string) string {
	body := fmt.Sprintf("%s has invited you to %q.\n\nStarts: %s\nEnds: %s\n",
		organizerEmail,
		event.Title,
		event.Start.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
		event.End.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
	)
	if event.Location != nil && *event.Location != "" {
		body += fmt.Sprintf("Location: %s\n", *event.Location)
	}
	if event.Description != nil && *event.Description != "" {
		body += fmt.Sprintf("\n%s\n", *event.Description)
	}
	return body
}
