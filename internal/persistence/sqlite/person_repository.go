package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/eventcal/internal/persistence"
)

// PersonRepository implements persistence.PersonRepository using SQLite
type PersonRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPersonRepository creates a new SQLite person repository
func NewPersonRepository(pool *ConnectionPool) *PersonRepository {
	return &PersonRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreatePerson inserts a new account row
func (r *PersonRepository) CreatePerson(ctx context.Context, person persistence.Person) error {
	if person.ID == "" || person.Email == "" {
		return persistence.ErrConstraintViolation
	}

	if person.CreatedAt.IsZero() {
		person.CreatedAt = time.Now().UTC()
	}
	if person.UpdatedAt.IsZero() {
		person.UpdatedAt = person.CreatedAt
	}

	_, err := r.helper.Exec(ctx,
		"INSERT INTO people (id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		person.ID,
		normalizeEmail(person.Email),
		person.PasswordHash,
		person.CreatedAt.Format(time.RFC3339),
		person.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if containsAny(err.Error(), []string{"UNIQUE constraint failed"}) {
			return persistence.ErrDuplicate
		}
		return r.mapper.MapError(err)
	}

	return nil
}

// GetPerson retrieves a person by ID
func (r *PersonRepository) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	if id == "" {
		return persistence.Person{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx,
		"SELECT id, email, password_hash, created_at, updated_at FROM people WHERE id = ?", id)

	return r.scanPerson(row)
}

// GetPersonByEmail retrieves a person by their normalized email address
func (r *PersonRepository) GetPersonByEmail(ctx context.Context, email string) (persistence.Person, error) {
	if email == "" {
		return persistence.Person{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx,
		"SELECT id, email, password_hash, created_at, updated_at FROM people WHERE email = ?",
		normalizeEmail(email))

	return r.scanPerson(row)
}

func (r *PersonRepository) scanPerson(row *sql.Row) (persistence.Person, error) {
	var person persistence.Person
	var createdAtStr, updatedAtStr string

	err := row.Scan(&person.ID, &person.Email, &person.PasswordHash, &createdAtStr, &updatedAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Person{}, persistence.ErrNotFound
		}
		return persistence.Person{}, r.mapper.MapError(err)
	}

	if person.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Person{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if person.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Person{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return person, nil
}
