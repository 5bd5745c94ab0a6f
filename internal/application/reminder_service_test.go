package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/eventcal/internal/persistence"
	"github.com/example/eventcal/internal/testfixtures"
)

type stubReminderSource struct {
	due     []persistence.DueReminder
	dueErr  error
	marked  []string
	markErr error
}

func (s *stubReminderSource) DueReminders(ctx context.Context, now time.Time, window time.Duration) ([]persistence.DueReminder, error) {
	if s.dueErr != nil {
		return nil, s.dueErr
	}
	return s.due, nil
}

func (s *stubReminderSource) MarkReminderSent(ctx context.Context, eventID string) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, eventID)
	return nil
}

func dueReminderFixture(ownerEmail string) persistence.DueReminder {
	reminderAt := testfixtures.ReferenceTime().Add(50 * time.Minute)
	event := testfixtures.NewEventFixture(testfixtures.WithEventReminder(reminderAt))
	return persistence.DueReminder{Event: event, OwnerEmail: ownerEmail}
}

func TestReminderService_Sweep(t *testing.T) {
	t.Parallel()

	source := &stubReminderSource{
		due: []persistence.DueReminder{
			dueReminderFixture("owner-a@example.com"),
			dueReminderFixture("owner-b@example.com"),
		},
	}
	mailer := testfixtures.NewFakeMailer()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime().Add(51 * time.Minute))
	service := NewReminderService(source, mailer, time.Minute, clock.NowFunc(), nil)

	sent, err := service.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if sent != 2 {
		t.Fatalf("Expected 2 reminders sent, got %d", sent)
	}
	if len(source.marked) != 2 {
		t.Fatalf("Expected both events marked after delivery, got %v", source.marked)
	}

	messages := mailer.Sent()
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if !strings.HasPrefix(messages[0].Subject, "Reminder:") {
		t.Errorf("Expected reminder subject, got %q", messages[0].Subject)
	}
	if messages[0].HTMLBody == "" {
		t.Error("Expected an HTML body")
	}
}

func TestReminderService_Sweep_MarksOnlyAfterDelivery(t *testing.T) {
	t.Parallel()

	failing := dueReminderFixture("down@example.com")
	healthy := dueReminderFixture("up@example.com")
	source := &stubReminderSource{due: []persistence.DueReminder{failing, healthy}}

	mailer := testfixtures.NewFakeMailer()
	mailer.FailFor("down@example.com", errors.New("connection refused"))
	service := NewReminderService(source, mailer, time.Minute, nil, nil)

	sent, err := service.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if sent != 1 {
		t.Fatalf("Expected 1 reminder sent, got %d", sent)
	}
	if len(source.marked) != 1 || source.marked[0] != healthy.Event.ID {
		t.Fatalf("Expected only the delivered event marked, got %v", source.marked)
	}
}

func TestReminderService_Sweep_ConcurrentMarkIsBenign(t *testing.T) {
	t.Parallel()

	source := &stubReminderSource{
		due:     []persistence.DueReminder{dueReminderFixture("owner@example.com")},
		markErr: persistence.ErrNotFound,
	}
	mailer := testfixtures.NewFakeMailer()
	service := NewReminderService(source, mailer, time.Minute, nil, nil)

	sent, err := service.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Expected a zero-row mark treated as a skip, got %v", err)
	}
	if sent != 0 {
		t.Errorf("Expected skipped reminder not counted, got %d", sent)
	}
}

func TestReminderService_Sweep_QueryFailure(t *testing.T) {
	t.Parallel()

	source := &stubReminderSource{dueErr: errors.New("database locked")}
	service := NewReminderService(source, testfixtures.NewFakeMailer(), time.Minute, nil, nil)

	if _, err := service.Sweep(context.Background()); err == nil {
		t.Fatal("Expected query failure surfaced")
	}
}

func TestReminderService_Sweep_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	source := &stubReminderSource{
		due: []persistence.DueReminder{dueReminderFixture("owner@example.com")},
	}
	service := NewReminderService(source, testfixtures.NewFakeMailer(), time.Minute, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := service.Sweep(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(source.marked) != 0 {
		t.Error("Expected no marks after cancellation")
	}
}
