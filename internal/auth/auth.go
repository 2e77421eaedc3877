// Package auth implements the authentication providers: local
// username/password credentials and the Google/Facebook OAuth flows.
// Every provider produces a Profile which the Resolver exchanges for a
// local user record.
package auth

import (
	"context"
	"errors"

	"github.com/secretshare/webserver/types"
)

// Provider names. The set is closed; provider selection happens by
// route path, not by runtime parameter.
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// ErrInvalidCredentials is returned for unknown usernames and wrong
// passwords alike, so responses cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Profile is what a provider asserts about an identity after a
// completed authentication.
type Profile struct {
	// Provider identifies the asserting provider.
	Provider string

	// ID is the provider's stable identifier for this identity.
	ID string

	Email   string
	Name    string
	Picture string
}

// UserDirectory is the slice of the user service the auth flows need.
type UserDirectory interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	FindOrCreateByGoogleID(ctx context.Context, user types.User) (types.User, error)
	FindOrCreateByFacebookID(ctx context.Context, user types.User) (types.User, error)
}
