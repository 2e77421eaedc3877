package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/secretshare/webserver/internal/store"
	"github.com/secretshare/webserver/types"
)

// fakeDirectory is an in-memory UserDirectory with the same uniqueness
// and upsert semantics the database provides.
type fakeDirectory struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[int]types.User)}
}

func (d *fakeDirectory) GetByUsername(_ context.Context, username string) (types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, user := range d.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (d *fakeDirectory) Create(_ context.Context, user types.User) (types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.users {
		if existing.Username == user.Username {
			return types.User{}, store.ErrDuplicate
		}
		if user.Email != nil && existing.Email != nil && *existing.Email == *user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	d.nextID++
	user.ID = d.nextID
	d.users[user.ID] = user
	return user, nil
}

func (d *fakeDirectory) FindOrCreateByGoogleID(_ context.Context, user types.User) (types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.users {
		if existing.GoogleID != nil && user.GoogleID != nil && *existing.GoogleID == *user.GoogleID {
			return existing, nil
		}
	}
	d.nextID++
	user.ID = d.nextID
	d.users[user.ID] = user
	return user, nil
}

func (d *fakeDirectory) FindOrCreateByFacebookID(_ context.Context, user types.User) (types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.users {
		if existing.FacebookID != nil && user.FacebookID != nil && *existing.FacebookID == *user.FacebookID {
			return existing, nil
		}
	}
	d.nextID++
	user.ID = d.nextID
	d.users[user.ID] = user
	return user, nil
}

func TestRegisterThenVerify(t *testing.T) {
	ctx := context.Background()
	verifier := NewLocalVerifier(newFakeDirectory())

	registered, err := verifier.Register(ctx, "alice@example.com", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if registered.PasswordHash == nil || *registered.PasswordHash == "pw1" {
		t.Fatal("password must be stored hashed")
	}
	if registered.Email == nil || *registered.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %v", registered.Email)
	}

	verified, err := verifier.Verify(ctx, "alice@example.com", "pw1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.ID != registered.ID {
		t.Fatalf("expected user %d, got %d", registered.ID, verified.ID)
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	ctx := context.Background()
	verifier := NewLocalVerifier(newFakeDirectory())

	if _, err := verifier.Register(ctx, "bob", "correct"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := verifier.Verify(ctx, "bob", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyUnknownUser(t *testing.T) {
	verifier := NewLocalVerifier(newFakeDirectory())
	_, err := verifier.Verify(context.Background(), "nobody", "pw")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyFederatedOnlyAccount(t *testing.T) {
	directory := newFakeDirectory()
	googleID := "g-123"
	if _, err := directory.FindOrCreateByGoogleID(context.Background(), types.User{
		Username: "google-g-123",
		GoogleID: &googleID,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	verifier := NewLocalVerifier(directory)
	_, err := verifier.Verify(context.Background(), "google-g-123", "anything")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for passwordless account, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	verifier := NewLocalVerifier(newFakeDirectory())

	if _, err := verifier.Register(ctx, "carol", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := verifier.Register(ctx, "carol", "pw2")
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	verifier := NewLocalVerifier(newFakeDirectory())
	if _, err := verifier.Register(context.Background(), "  ", "pw"); err == nil {
		t.Fatal("expected error for blank username")
	}
	if _, err := verifier.Register(context.Background(), "dave", ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestRegisterHashesAreSalted(t *testing.T) {
	ctx := context.Background()
	verifier := NewLocalVerifier(newFakeDirectory())

	first, err := verifier.Register(ctx, "erin", "same-password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	second, err := verifier.Register(ctx, "frank", "same-password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if strings.Compare(*first.PasswordHash, *second.PasswordHash) == 0 {
		t.Fatal("equal passwords must not produce equal hashes")
	}
}
