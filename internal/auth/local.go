package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/secretshare/webserver/internal/store"
	"github.com/secretshare/webserver/types"
	"golang.org/x/crypto/bcrypt"
)

// LocalVerifier validates username/password pairs against stored
// bcrypt hashes and registers new local accounts.
type LocalVerifier struct {
	users UserDirectory
}

// NewLocalVerifier constructs a LocalVerifier over the given directory.
func NewLocalVerifier(users UserDirectory) *LocalVerifier {
	return &LocalVerifier{users: users}
}

// Register creates a local account. Passwords are always stored as
// bcrypt hashes. Returns store.ErrDuplicate when the username is taken.
func (v *LocalVerifier) Register(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, errors.New("username and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user := types.User{
		Username:     username,
		PasswordHash: ptr(string(hashed)),
	}
	// The source app uses the email address as the username.
	if strings.Contains(username, "@") {
		user.Email = ptr(strings.ToLower(username))
	}

	return v.users.Create(ctx, user)
}

// Verify checks a submitted username/password pair. Unknown usernames
// and wrong passwords both yield ErrInvalidCredentials.
func (v *LocalVerifier) Verify(ctx context.Context, username, password string) (types.User, error) {
	user, err := v.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !user.HasPassword() {
		return types.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func ptr(s string) *string {
	return &s
}
