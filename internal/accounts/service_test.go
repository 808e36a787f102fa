package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/minaqr/botserver/internal/store"
	"github.com/minaqr/botserver/types"
)

type fakeRepo struct {
	mu       sync.Mutex
	accounts map[string]types.Account
	nextID   int
	down     bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[string]types.Account)}
}

func (f *fakeRepo) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return types.Account{}, errors.New("connection refused")
	}
	if account, ok := f.accounts[email]; ok {
		return account, nil
	}
	return types.Account{}, store.ErrNotFound
}

func (f *fakeRepo) Create(ctx context.Context, account types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return types.Account{}, errors.New("connection refused")
	}
	if _, ok := f.accounts[account.Email]; ok {
		return types.Account{}, store.ErrExists
	}
	f.nextID++
	account.ID = f.nextID
	f.accounts[account.Email] = account
	return account, nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	if err := svc.Register(ctx, "a@x.com", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	account, err := svc.Authenticate(ctx, "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if account.Email != "a@x.com" {
		t.Fatalf("unexpected email %q", account.Email)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	if err := svc.Register(ctx, "a@x.com", "pw1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := svc.Register(ctx, "a@x.com", "pw2"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

// racyRepo simulates the register race: the existence check misses the
// account but the insert hits the uniqueness constraint.
type racyRepo struct{ *fakeRepo }

func (r *racyRepo) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	return types.Account{}, store.ErrNotFound
}

func TestRegisterInsertRaceMapsToAlreadyExists(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	if _, err := repo.Create(ctx, types.Account{Email: "a@x.com"}); err != nil {
		t.Fatalf("seed create: %v", err)
	}

	svc := NewService(&racyRepo{repo})
	if err := svc.Register(ctx, "a@x.com", "pw"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRegisterStoreUnavailable(t *testing.T) {
	repo := newFakeRepo()
	repo.down = true
	svc := NewService(repo)

	if err := svc.Register(context.Background(), "a@x.com", "pw"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthenticateErrors(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	if err := svc.Register(ctx, "a@x.com", "pw1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "missing@x.com", "pw1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "a@x.com", "wrong"); !errors.Is(err, ErrBadSecret) {
		t.Fatalf("expected ErrBadSecret, got %v", err)
	}

	repo.down = true
	if _, err := svc.Authenticate(ctx, "a@x.com", "pw1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestHashSecrecy(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	if err := svc.Register(ctx, "a@x.com", "samepw"); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := svc.Register(ctx, "b@x.com", "samepw"); err != nil {
		t.Fatalf("register b: %v", err)
	}

	hashA := repo.accounts["a@x.com"].PasswordHash
	hashB := repo.accounts["b@x.com"].PasswordHash
	if hashA == "samepw" || hashB == "samepw" {
		t.Fatalf("stored hash equals plaintext")
	}
	if hashA == hashB {
		t.Fatalf("same secret produced identical hashes; salting is broken")
	}
}
