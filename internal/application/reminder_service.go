package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/eventcal/internal/mail"
	"github.com/example/eventcal/internal/persistence"
)

// ReminderSource exposes the persistence operations the sweep depends on.
type ReminderSource interface {
	DueReminders(ctx context.Context, now time.Time, window time.Duration) ([]persistence.DueReminder, error)
	MarkReminderSent(ctx context.Context, eventID string) error
}

// ReminderService delivers due reminder emails to event owners.
type ReminderService struct {
	reminders ReminderSource
	mailer    mail.Mailer
	window    time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewReminderService wires dependencies for the reminder sweep.
func NewReminderService(reminders ReminderSource, mailer mail.Mailer, window time.Duration, now func() time.Time, logger *slog.Logger) *ReminderService {
	if window <= 0 {
		window = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &ReminderService{
		reminders: reminders,
		mailer:    mailer,
		window:    window,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *ReminderService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReminderService", operation, attrs...)
}

// Sweep selects events whose reminder time fell due since the last pass and
// mails each owner. The sent flag is flipped only after a successful
// delivery, so a failed send stays eligible for the next sweep while its
// reminder time remains inside the window. A zero-row mark means the event
// was deleted or marked concurrently and is skipped without error.
func (s *ReminderService) Sweep(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("ReminderService is nil")
	}
	if s.reminders == nil {
		return 0, fmt.Errorf("reminder source not configured")
	}
	if s.mailer == nil {
		return 0, fmt.Errorf("mailer not configured")
	}

	now := s.now().UTC()
	logger := s.loggerWith(ctx, "Sweep", "now", now.Format(time.RFC3339))

	due, err := s.reminders.DueReminders(ctx, now, s.window)
	if err != nil {
		logger.ErrorContext(ctx, "due reminder query failed", "error", err)
		return 0, err
	}

	sent := 0
	for _, reminder := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		event := toApplicationEvent(reminder.Event)
		msg := mail.Message{
			To:       reminder.OwnerEmail,
			Subject:  fmt.Sprintf("Reminder: %s", event.Title),
			HTMLBody: reminderBodyHTML(event),
		}

		if err := s.mailer.Send(ctx, msg); err != nil {
			logger.WarnContext(ctx, "reminder delivery failed", "event_id", event.ID, "owner", reminder.OwnerEmail, "error", err)
			continue
		}

		if err := s.reminders.MarkReminderSent(ctx, event.ID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				logger.InfoContext(ctx, "reminder already marked or event gone", "event_id", event.ID)
				continue
			}
			logger.ErrorContext(ctx, "failed to mark reminder sent", "event_id", event.ID, "error", err)
			continue
		}

		sent++
	}

	if len(due) > 0 {
		logger.With("due", len(due), "sent", sent).InfoContext(ctx, "reminder sweep finished")
	}
	return sent, nil
}

func reminderBodyHTML(event Event) string {
	description := placeholderDescription
	if event.Description != nil && *event.Description != "" {
		description = *event.Description
	}

	body := fmt.Sprintf(
		"<h2>Event Reminder</h2><p>Your event %q is starting soon!</p><p><strong>Start Time:</strong> %s</p><p><strong>Description:</strong> %s</p>",
		event.Title,
		event.Start.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
		description,
	)
	if event.Location != nil && *event.Location != "" {
		body += fmt.Sprintf("<p><strong>Location:</strong> %s</p>", *event.Location)
	}
	return body
}
