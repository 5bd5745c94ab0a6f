package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/eventcal/internal/persistence"
	"github.com/example/eventcal/internal/testfixtures"
)

type stubSessionRepo struct {
	sessions map[string]persistence.Session

	createErr error
	pruned    []time.Time
}

func newStubSessionRepo(sessions ...persistence.Session) *stubSessionRepo {
	repo := &stubSessionRepo{sessions: make(map[string]persistence.Session)}
	for _, session := range sessions {
		repo.sessions[session.Token] = session
	}
	return repo
}

func (r *stubSessionRepo) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if r.createErr != nil {
		return persistence.Session{}, r.createErr
	}
	r.sessions[session.Token] = session
	return session, nil
}

func (r *stubSessionRepo) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	session, ok := r.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (r *stubSessionRepo) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	session, ok := r.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if session.RevokedAt == nil {
		session.RevokedAt = &revokedAt
		r.sessions[token] = session
	}
	return session, nil
}

func (r *stubSessionRepo) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	r.pruned = append(r.pruned, reference)
	for token, session := range r.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(r.sessions, token)
		}
	}
	return nil
}

func passwordEquals(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

func newTestAuthService(people *stubAccountRepo, sessions *stubSessionRepo, clock *testfixtures.Clock) *AuthService {
	tokens := testfixtures.NewIDGenerator("token")
	return NewAuthService(people, sessions, passwordEquals, tokens.NextFunc(), clock.NowFunc(), time.Hour, nil)
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	person := testfixtures.NewPersonFixture(
		testfixtures.WithPersonEmail("alice@example.com"),
		testfixtures.WithPersonPasswordHash("hashed:secret password"),
	)
	sessions := newStubSessionRepo()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	service := newTestAuthService(newStubAccountRepo(person), sessions, clock)

	result, err := service.Authenticate(context.Background(), AuthenticateParams{
		Email:    " Alice@Example.com ",
		Password: "secret password",
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if result.Person.ID != person.ID {
		t.Errorf("Expected person %s, got %s", person.ID, result.Person.ID)
	}
	if result.Session.Token == "" {
		t.Fatal("Expected a session token issued")
	}
	if want := testfixtures.ReferenceTime().Add(time.Hour); !result.Session.ExpiresAt.Equal(want) {
		t.Errorf("Expected expiry %v, got %v", want, result.Session.ExpiresAt)
	}
	if _, ok := sessions.sessions[result.Session.Token]; !ok {
		t.Error("Expected session persisted")
	}
	if len(sessions.pruned) == 0 {
		t.Error("Expected expired sessions pruned during login")
	}
}

func TestAuthService_Authenticate_InvalidCredentials(t *testing.T) {
	t.Parallel()

	person := testfixtures.NewPersonFixture(
		testfixtures.WithPersonEmail("alice@example.com"),
		testfixtures.WithPersonPasswordHash("hashed:secret password"),
	)

	tests := []struct {
		name   string
		params AuthenticateParams
	}{
		{name: "unknown email", params: AuthenticateParams{Email: "nobody@example.com", Password: "secret password"}},
		{name: "wrong password", params: AuthenticateParams{Email: "alice@example.com", Password: "wrong"}},
		{name: "empty email", params: AuthenticateParams{Password: "secret password"}},
		{name: "empty password", params: AuthenticateParams{Email: "alice@example.com"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			clock := testfixtures.NewClock(testfixtures.ReferenceTime())
			service := newTestAuthService(newStubAccountRepo(person), newStubSessionRepo(), clock)

			_, err := service.Authenticate(context.Background(), tc.params)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	person := testfixtures.NewPersonFixture()
	now := testfixtures.ReferenceTime()
	revokedAt := now.Add(-time.Minute)

	activeSession := testfixtures.NewSessionFixture(
		testfixtures.WithSessionPerson(person.ID),
		testfixtures.WithSessionExpiry(now.Add(time.Hour)),
	)
	expiredSession := testfixtures.NewSessionFixture(
		testfixtures.WithSessionPerson(person.ID),
		testfixtures.WithSessionExpiry(now.Add(-time.Minute)),
	)
	revokedSession := testfixtures.NewSessionFixture(
		testfixtures.WithSessionPerson(person.ID),
		testfixtures.WithSessionExpiry(now.Add(time.Hour)),
		testfixtures.WithSessionRevoked(revokedAt),
	)
	orphanSession := testfixtures.NewSessionFixture(
		testfixtures.WithSessionPerson("gone"),
		testfixtures.WithSessionExpiry(now.Add(time.Hour)),
	)

	sessions := newStubSessionRepo(activeSession, expiredSession, revokedSession, orphanSession)
	clock := testfixtures.NewClock(now)
	service := newTestAuthService(newStubAccountRepo(person), sessions, clock)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "active", token: activeSession.Token, wantErr: nil},
		{name: "empty token", token: "  ", wantErr: ErrUnauthorized},
		{name: "unknown token", token: "nope", wantErr: ErrUnauthorized},
		{name: "expired", token: expiredSession.Token, wantErr: ErrSessionExpired},
		{name: "revoked", token: revokedSession.Token, wantErr: ErrSessionRevoked},
		{name: "owner deleted", token: orphanSession.Token, wantErr: ErrStaleSession},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			principal, err := service.ValidateSession(context.Background(), tc.token)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateSession failed: %v", err)
				}
				if principal.PersonID != person.ID || principal.Email != person.Email {
					t.Errorf("Expected principal for %s, got %+v", person.ID, principal)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	person := testfixtures.NewPersonFixture()
	session := testfixtures.NewSessionFixture(
		testfixtures.WithSessionPerson(person.ID),
		testfixtures.WithSessionExpiry(testfixtures.ReferenceTime().Add(time.Hour)),
	)

	sessions := newStubSessionRepo(session)
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	service := newTestAuthService(newStubAccountRepo(person), sessions, clock)

	if err := service.RevokeSession(context.Background(), session.Token); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if stored := sessions.sessions[session.Token]; stored.RevokedAt == nil {
		t.Error("Expected session marked revoked")
	}

	if _, err := service.ValidateSession(context.Background(), session.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("Expected revoked token rejected, got %v", err)
	}
}

func TestAuthService_RevokeSession_UnknownToken(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	service := newTestAuthService(newStubAccountRepo(), newStubSessionRepo(), clock)

	if err := service.RevokeSession(context.Background(), "unknown"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
}
