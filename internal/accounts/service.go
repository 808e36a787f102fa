package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/minaqr/botserver/internal/store"
	"github.com/minaqr/botserver/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrAlreadyExists is returned by Register when the email is taken.
var ErrAlreadyExists = errors.New("account already exists")

// ErrNotFound is returned by Authenticate when no account matches the email.
var ErrNotFound = errors.New("account not found")

// ErrBadSecret is returned by Authenticate when the password does not verify.
var ErrBadSecret = errors.New("wrong password")

// ErrStoreUnavailable wraps store failures. They are surfaced to the caller
// and never retried.
var ErrStoreUnavailable = errors.New("account store unavailable")

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
}

// Service encapsulates registration and credential verification.
type Service struct {
	repo AccountRepository
}

func NewService(repo AccountRepository) *Service {
	return &Service{repo: repo}
}

// Register creates a new account with a bcrypt hash of secret. The
// pre-insert existence check gives the common case a clean error; the
// store's uniqueness constraint catches the race it cannot.
func (s *Service) Register(ctx context.Context, email, secret string) error {
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.repo.Create(ctx, types.Account{
		Email:        email,
		PasswordHash: string(hashed),
	}); err != nil {
		if errors.Is(err, store.ErrExists) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Authenticate verifies email and secret against the store. Missing account
// and wrong password are distinct errors; bcrypt's comparison is
// constant-time by construction.
func (s *Service) Authenticate(ctx context.Context, email, secret string) (types.Account, error) {
	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(secret)); err != nil {
		return types.Account{}, ErrBadSecret
	}
	return account, nil
}
