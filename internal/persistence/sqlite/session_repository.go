package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/eventcal/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSession inserts a new session row
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.PersonID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := r.helper.Exec(ctx,
		"INSERT INTO sessions (id, person_id, token, expires_at, created_at, revoked_at) VALUES (?, ?, ?, ?, ?, ?)",
		session.ID,
		session.PersonID,
		session.Token,
		session.ExpiresAt.UTC().Format(time.RFC3339),
		session.CreatedAt.Format(time.RFC3339),
		nullTime(session.RevokedAt),
	)
	if err != nil {
		if containsAny(err.Error(), []string{"UNIQUE constraint failed"}) {
			return persistence.Session{}, persistence.ErrDuplicate
		}
		if containsAny(err.Error(), []string{"FOREIGN KEY constraint failed"}) {
			return persistence.Session{}, persistence.ErrForeignKeyViolation
		}
		return persistence.Session{}, r.mapper.MapError(err)
	}

	return session, nil
}

// GetSession retrieves a session by its token
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx,
		"SELECT id, person_id, token, expires_at, created_at, revoked_at FROM sessions WHERE token = ?",
		token)

	return r.scanSession(row)
}

// RevokeSession marks a session revoked. Revoking an already revoked session
// keeps the original revocation time.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL",
		revokedAt.UTC().Format(time.RFC3339), token)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, fmt.Errorf("failed to get rows affected: %w", err)
	}

	session, getErr := r.GetSession(ctx, token)
	if getErr != nil {
		return persistence.Session{}, getErr
	}

	if rowsAffected == 0 && session.RevokedAt == nil {
		return persistence.Session{}, persistence.ErrNotFound
	}

	return session, nil
}

// DeleteExpiredSessions removes sessions whose expiry is at or before the
// reference time
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.helper.Exec(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?",
		reference.UTC().Format(time.RFC3339))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *SessionRepository) scanSession(row *sql.Row) (persistence.Session, error) {
	var session persistence.Session
	var expiresAtStr, createdAtStr string
	var revokedAtStr sql.NullString

	err := row.Scan(&session.ID, &session.PersonID, &session.Token, &expiresAtStr, &createdAtStr, &revokedAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, r.mapper.MapError(err)
	}

	if session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if revokedAtStr.Valid {
		revoked, err := time.Parse(time.RFC3339, revokedAtStr.String)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("failed to parse revoked_at: %w", err)
		}
		session.RevokedAt = &revoked
	}

	return session, nil
}
