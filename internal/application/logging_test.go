package application

import (
	"io"
	"log/slog"
	"testing"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{ErrUnauthorized, "unauthorized"},
		{ErrNotFound, "not_found"},
		{ErrAlreadyExists, "already_exists"},
		{ErrInvalidCredentials, "invalid_credentials"},
		{ErrSessionExpired, "session_expired"},
		{ErrSessionRevoked, "session_revoked"},
		{ErrStaleSession, "stale_session"},
		{ErrNoAttendees, "no_attendees"},
		{ErrEventWriteFailed, "event_write_failed"},
		{&ValidationError{}, "validation"},
		{io.EOF, "unexpected"},
	}

	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
