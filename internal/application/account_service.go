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

// AccountRepository captures the persistence interactions needed for registration.
type AccountRepository interface {
	CreatePerson(ctx context.Context, person persistence.Person) error
	GetPerson(ctx context.Context, id string) (persistence.Person, error)
	GetPersonByEmail(ctx context.Context, email string) (persistence.Person, error)
}

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// AccountService handles account registration and lookup.
type AccountService struct {
	people       AccountRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAccountService wires dependencies for account operations.
func NewAccountService(people AccountRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccountService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AccountService{
		people:       people,
		hashPassword: hashPassword,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// Register validates and creates a new account.
func (s *AccountService) Register(ctx context.Context, params RegisterParams) (Person, error) {
	if s == nil {
		return Person{}, fmt.Errorf("AccountService is nil")
	}
	if s.people == nil {
		return Person{}, fmt.Errorf("account repository not configured")
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	logger := s.loggerWith(ctx, "Register", "email", email)

	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "must be a valid email address")
	}
	if len(params.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if vErr.HasErrors() {
		return Person{}, vErr
	}

	hash, err := s.hashPassword(params.Password)
	if err != nil {
		return Person{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	record := persistence.Person{
		ID:           s.idGenerator(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.people.CreatePerson(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			logger.ErrorContext(ctx, "registration rejected", "error", ErrAlreadyExists, "error_kind", ErrorKind(ErrAlreadyExists))
			return Person{}, ErrAlreadyExists
		}
		logger.ErrorContext(ctx, "registration failed", "error", err)
		return Person{}, err
	}

	logger.With("person_id", record.ID).InfoContext(ctx, "account registered")
	return toApplicationPerson(record), nil
}

// GetPerson retrieves an account by ID.
func (s *AccountService) GetPerson(ctx context.Context, id string) (Person, error) {
	if s == nil {
		return Person{}, fmt.Errorf("AccountService is nil")
	}
	if s.people == nil {
		return Person{}, fmt.Errorf("account repository not configured")
	}

	record, err := s.people.GetPerson(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Person{}, ErrNotFound
		}
		return Person{}, err
	}
	return toApplicationPerson(record), nil
}

func toApplicationPerson(record persistence.Person) Person {
	return Person{
		ID:        record.ID,
		Email:     record.Email,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
