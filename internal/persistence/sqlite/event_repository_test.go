package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/eventcal/internal/persistence"
)

func TestEventRepository_CreateEvent(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")

	start := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)
	description := "Quarterly review"

	event := persistence.Event{
		ID:          "event1",
		OwnerID:     "person1",
		Title:       "Planning",
		Description: &description,
		Start:       start,
		End:         end,
		Attendees: []persistence.Attendee{
			{ID: "att1", EventID: "event1", Email: "alice@example.com"},
			{ID: "att2", EventID: "event1", Email: "bob@example.com"},
		},
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	retrieved, err := repo.GetEvent(ctx, "event1", "person1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}

	if retrieved.Title != "Planning" {
		t.Errorf("Expected title 'Planning', got '%s'", retrieved.Title)
	}
	if retrieved.Description == nil || *retrieved.Description != description {
		t.Errorf("Expected description %q, got %v", description, retrieved.Description)
	}
	if !retrieved.Start.Equal(start) {
		t.Errorf("Expected start %v, got %v", start, retrieved.Start)
	}
	if len(retrieved.Attendees) != 2 {
		t.Fatalf("Expected 2 attendees, got %d", len(retrieved.Attendees))
	}
	if retrieved.Attendees[0].Email != "alice@example.com" {
		t.Errorf("Expected attendees ordered by email, got %s first", retrieved.Attendees[0].Email)
	}
	if retrieved.Attendees[0].Status != persistence.AttendeeStatusPending {
		t.Errorf("Expected default pending status, got %s", retrieved.Attendees[0].Status)
	}
}

func TestEventRepository_CreateEvent_DeduplicatesAttendees(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")

	start := time.Now().UTC().Add(time.Hour)
	event := persistence.Event{
		ID:      "event1",
		OwnerID: "person1",
		Title:   "Standup",
		Start:   start,
		End:     start.Add(30 * time.Minute),
		Attendees: []persistence.Attendee{
			{ID: "att1", EventID: "event1", Email: "alice@example.com"},
			{ID: "att2", EventID: "event1", Email: "Alice@Example.com"},
		},
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	attendees, err := repo.ListAttendees(ctx, "event1")
	if err != nil {
		t.Fatalf("ListAttendees failed: %v", err)
	}

	if len(attendees) != 1 {
		t.Fatalf("Expected duplicate email collapsed to 1 attendee, got %d", len(attendees))
	}
	if attendees[0].Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %s", attendees[0].Email)
	}
}

func TestEventRepository_CreateEvent_InvalidTimeRange(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")

	start := time.Now().UTC().Add(time.Hour)
	event := persistence.Event{
		ID:      "event1",
		OwnerID: "person1",
		Title:   "Backwards",
		Start:   start,
		End:     start.Add(-time.Hour),
	}

	err := repo.CreateEvent(ctx, event)
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("Expected constraint violation for inverted range, got %v", err)
	}
}

func TestEventRepository_CreateEvent_MissingOwner(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	start := time.Now().UTC().Add(time.Hour)
	event := persistence.Event{
		ID:      "event1",
		OwnerID: "ghost",
		Title:   "Orphan",
		Start:   start,
		End:     start.Add(time.Hour),
	}

	err := repo.CreateEvent(ctx, event)
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("Expected foreign key violation for unknown owner, got %v", err)
	}
}

func TestEventRepository_UpdateEvent_ReplacesAttendees(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")

	start := time.Now().UTC().Add(time.Hour)
	event := persistence.Event{
		ID:      "event1",
		OwnerID: "person1",
		Title:   "Sync",
		Start:   start,
		End:     start.Add(time.Hour),
		Attendees: []persistence.Attendee{
			{ID: "att1", EventID: "event1", Email: "alice@example.com"},
		},
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	event.Title = "Sync (moved)"
	event.Attendees = []persistence.Attendee{
		{ID: "att2", EventID: "event1", Email: "bob@example.com"},
		{ID: "att3", EventID: "event1", Email: "carol@example.com"},
	}

	if err := repo.UpdateEvent(ctx, event); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	retrieved, err := repo.GetEvent(ctx, "event1", "person1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}

	if retrieved.Title != "Sync (moved)" {
		t.Errorf("Expected updated title, got '%s'", retrieved.Title)
	}
	if len(retrieved.Attendees) != 2 {
		t.Fatalf("Expected attendee set replaced with 2 entries, got %d", len(retrieved.Attendees))
	}
	for _, attendee := range retrieved.Attendees {
		if attendee.Email == "alice@example.com" {
			t.Error("Expected old attendee removed after replacement")
		}
	}
}

func TestEventRepository_UpdateEvent_NonOwnerNotFound(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")
	createTestPerson(t, repo.pool, "person2", "other@example.com")

	start := time.Now().UTC().Add(time.Hour)
	event := persistence.Event{
		ID:      "event1",
		OwnerID: "person1",
		Title:   "Private",
		Start:   start,
		End:     start.Add(time.Hour),
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	event.OwnerID = "person2"
	err := repo.UpdateEvent(ctx, event)
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for non-owner update, got %v", err)
	}

	// Original row untouched
	retrieved, err := repo.GetEvent(ctx, "event1", "person1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if retrieved.Title != "Private" {
		t.Errorf("Expected original title preserved, got '%s'", retrieved.Title)
	}
}

func TestEventRepository_GetEvent_ScopedByOwner(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")
	createTestPerson(t, repo.pool, "person2", "other@example.com")

	start := time.Now().UTC().Add(time.Hour)
	event := persistence.Event{
		ID:      "event1",
		OwnerID: "person1",
		Title:   "Private",
		Start:   start,
		End:     start.Add(time.Hour),
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	_, err := repo.GetEvent(ctx, "event1", "person2")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for non-owner read, got %v", err)
	}
}

func TestEventRepository_DeleteEvent(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")

	start := time.Now().UTC().Add(time.Hour)
	event := persistence.Event{
		ID:      "event1",
		OwnerID: "person1",
		Title:   "Doomed",
		Start:   start,
		End:     start.Add(time.Hour),
		Attendees: []persistence.Attendee{
			{ID: "att1", EventID: "event1", Email: "alice@example.com"},
		},
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if err := repo.DeleteEvent(ctx, "event1", "person1"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}

	_, err := repo.GetEvent(ctx, "event1", "person1")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	attendees, err := repo.ListAttendees(ctx, "event1")
	if err != nil {
		t.Fatalf("ListAttendees failed: %v", err)
	}
	if len(attendees) != 0 {
		t.Errorf("Expected attendee rows removed with event, got %d", len(attendees))
	}
}

func TestEventRepository_DeleteEvent_NonOwnerNotFound(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")
	createTestPerson(t, repo.pool, "person2", "other@example.com")

	start := time.Now().UTC().Add(time.Hour)
	event := persistence.Event{
		ID:      "event1",
		OwnerID: "person1",
		Title:   "Private",
		Start:   start,
		End:     start.Add(time.Hour),
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	err := repo.DeleteEvent(ctx, "event1", "person2")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for non-owner delete, got %v", err)
	}
}

func TestEventRepository_ListEvents(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")
	createTestPerson(t, repo.pool, "person2", "other@example.com")

	now := time.Now().UTC()

	events := []persistence.Event{
		{ID: "event1", OwnerID: "person1", Title: "Later", Start: now.Add(3 * time.Hour), End: now.Add(4 * time.Hour)},
		{ID: "event2", OwnerID: "person1", Title: "Sooner", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)},
		{ID: "event3", OwnerID: "person2", Title: "Theirs", Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)},
	}

	for _, event := range events {
		if err := repo.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed for %s: %v", event.ID, err)
		}
	}

	retrieved, err := repo.ListEvents(ctx, "person1")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}

	if len(retrieved) != 2 {
		t.Fatalf("Expected 2 events for person1, got %d", len(retrieved))
	}
	if retrieved[0].ID != "event2" || retrieved[1].ID != "event1" {
		t.Errorf("Expected events ordered by start time, got %s then %s", retrieved[0].ID, retrieved[1].ID)
	}
}

func TestEventRepository_UpdateAttendeeStatus(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")

	start := time.Now().UTC().Add(time.Hour)
	event := persistence.Event{
		ID:      "event1",
		OwnerID: "person1",
		Title:   "Sync",
		Start:   start,
		End:     start.Add(time.Hour),
		Attendees: []persistence.Attendee{
			{ID: "att1", EventID: "event1", Email: "alice@example.com"},
		},
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	err := repo.UpdateAttendeeStatus(ctx, "event1", "alice@example.com", persistence.AttendeeStatusInvited)
	if err != nil {
		t.Fatalf("UpdateAttendeeStatus failed: %v", err)
	}

	attendees, err := repo.ListAttendees(ctx, "event1")
	if err != nil {
		t.Fatalf("ListAttendees failed: %v", err)
	}
	if attendees[0].Status != persistence.AttendeeStatusInvited {
		t.Errorf("Expected status invited, got %s", attendees[0].Status)
	}

	err = repo.UpdateAttendeeStatus(ctx, "event1", "nobody@example.com", persistence.AttendeeStatusInvited)
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for unknown attendee, got %v", err)
	}
}

func TestEventRepository_DueReminders(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")

	now := time.Now().UTC().Truncate(time.Second)
	window := time.Minute

	inWindow := now.Add(-30 * time.Second)
	atUpperBound := now
	belowWindow := now.Add(-2 * time.Minute)
	future := now.Add(time.Hour)

	cases := []struct {
		id       string
		reminder *time.Time
		sent     bool
	}{
		{"due", &inWindow, false},
		{"due-boundary", &atUpperBound, false},
		{"too-old", &belowWindow, false},
		{"not-yet", &future, false},
		{"already-sent", &inWindow, true},
		{"no-reminder", nil, false},
	}

	for _, tc := range cases {
		event := persistence.Event{
			ID:           tc.id,
			OwnerID:      "person1",
			Title:        tc.id,
			Start:        now.Add(2 * time.Hour),
			End:          now.Add(3 * time.Hour),
			ReminderAt:   tc.reminder,
			ReminderSent: tc.sent,
		}
		if err := repo.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed for %s: %v", tc.id, err)
		}
	}

	due, err := repo.DueReminders(ctx, now, window)
	if err != nil {
		t.Fatalf("DueReminders failed: %v", err)
	}

	if len(due) != 2 {
		t.Fatalf("Expected 2 due reminders, got %d", len(due))
	}

	ids := map[string]bool{}
	for _, reminder := range due {
		ids[reminder.Event.ID] = true
		if reminder.OwnerEmail != "owner@example.com" {
			t.Errorf("Expected owner email joined, got %s", reminder.OwnerEmail)
		}
	}
	if !ids["due"] || !ids["due-boundary"] {
		t.Errorf("Expected 'due' and 'due-boundary' selected, got %v", ids)
	}
}

func TestEventRepository_MarkReminderSent(t *testing.T) {
	repo, cleanup := setupEventRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()

	createTestPerson(t, repo.pool, "person1", "owner@example.com")

	now := time.Now().UTC().Truncate(time.Second)
	reminder := now.Add(-10 * time.Second)

	event := persistence.Event{
		ID:         "event1",
		OwnerID:    "person1",
		Title:      "Sync",
		Start:      now.Add(time.Hour),
		End:        now.Add(2 * time.Hour),
		ReminderAt: &reminder,
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if err := repo.MarkReminderSent(ctx, "event1"); err != nil {
		t.Fatalf("MarkReminderSent failed: %v", err)
	}

	// Second mark matches zero rows
	err := repo.MarkReminderSent(ctx, "event1")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on repeated mark, got %v", err)
	}

	due, err := repo.DueReminders(ctx, now, time.Minute)
	if err != nil {
		t.Fatalf("DueReminders failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("Expected no due reminders after mark, got %d", len(due))
	}
}

func setupEventRepositoryTest(t *testing.T) (*EventRepository, func()) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	pool, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}

	repo := NewEventRepository(pool)

	cleanup := func() {
		pool.Close()
	}

	return repo, cleanup
}

func createTestPerson(t *testing.T, pool *ConnectionPool, id, email string) {
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := pool.DB().ExecContext(ctx, `
		INSERT INTO people (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, email, "hash", now, now)

	if err != nil {
		t.Fatalf("Failed to create test person %s: %v", id, err)
	}
}
