package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/secretshare/webserver/types"
)

// Resolver exchanges a provider-issued profile for a local user record,
// creating one if the external id has not been seen before.
type Resolver struct {
	users UserDirectory
}

// NewResolver constructs a Resolver over the given directory.
func NewResolver(users UserDirectory) *Resolver {
	return &Resolver{users: users}
}

// Resolve finds or creates the user matching the profile's external id.
// Creation is idempotent: concurrent resolutions of the same new id
// yield the same user.
func (r *Resolver) Resolve(ctx context.Context, profile Profile) (types.User, error) {
	user := types.User{
		// Usernames derived from external ids cannot collide with
		// chosen local usernames containing no hyphen-joined prefix.
		Username: fmt.Sprintf("%s-%s", profile.Provider, profile.ID),
		Name:     profile.Name,
	}
	if profile.Email != "" {
		user.Email = ptr(strings.ToLower(profile.Email))
	}
	if profile.Picture != "" {
		user.Picture = ptr(profile.Picture)
	}

	switch profile.Provider {
	case ProviderGoogle:
		user.GoogleID = ptr(profile.ID)
		return r.users.FindOrCreateByGoogleID(ctx, user)
	case ProviderFacebook:
		user.FacebookID = ptr(profile.ID)
		return r.users.FindOrCreateByFacebookID(ctx, user)
	default:
		return types.User{}, fmt.Errorf("unknown provider %q", profile.Provider)
	}
}
