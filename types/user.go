package types

import "time"

// User represents an account in the system. An account is backed by at
// least one authentication method: a local password hash, a Google id,
// or a Facebook id.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user. For
	// federated accounts it is derived from the provider profile.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, stored lowercase. Nil when the
	// account's provider did not assert one.
	Email *string `json:"email,omitempty" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// Nil for purely federated accounts.
	// This field is never exposed in responses.
	PasswordHash *string `json:"-" db:"password_hash"`

	// GoogleID is the stable subject identifier issued by Google.
	// Nil unless the user has signed in with Google.
	GoogleID *string `json:"-" db:"google_id"`

	// FacebookID is the stable identifier issued by Facebook.
	// Nil unless the user has signed in with Facebook.
	FacebookID *string `json:"-" db:"facebook_id"`

	// Picture is a URL to the user's profile picture, if any.
	Picture *string `json:"picture,omitempty" db:"picture"`

	// Secret is the free-text secret the user chose to share.
	// Nil until the user submits one.
	Secret *string `json:"secret,omitempty" db:"secret"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasPassword reports whether the account can authenticate locally.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
