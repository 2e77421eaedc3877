// Package session binds requests to authenticated users through a
// signed cookie. The cookie carries a JWT with a minimal user
// descriptor so most requests avoid a database round trip.
package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/secretshare/webserver/types"
)

// CookieName is the session cookie name.
const CookieName = "secretshare_session"

const defaultTTL = 24 * time.Hour

// Descriptor is the reduced subset of a User serialized into the
// session. Handlers that need more than this re-fetch the full record
// by UserID.
type Descriptor struct {
	UserID   int
	Username string
	Picture  string
}

type claims struct {
	Username string `json:"username,omitempty"`
	Picture  string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues, restores and destroys sessions.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a Manager signing with the given secret.
func NewManager(secret string) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	return &Manager{secret: []byte(secret), ttl: defaultTTL}, nil
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Establish signs a descriptor for the user and sets the session cookie.
// It must be called before any redirect to a protected view.
func (m *Manager) Establish(w http.ResponseWriter, r *http.Request, user types.User) error {
	descriptor := Descriptor{
		UserID:   user.ID,
		Username: user.Username,
	}
	if user.Picture != nil {
		descriptor.Picture = *user.Picture
	}
	return m.write(w, r, descriptor)
}

// Restore returns the descriptor for the request's session, if any.
// Sessions use sliding expiration: a cookie past half its lifetime is
// reissued on restore.
func (m *Manager) Restore(w http.ResponseWriter, r *http.Request) (Descriptor, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return Descriptor{}, false
	}

	descriptor, expiresAt, err := m.parse(cookie.Value)
	if err != nil {
		return Descriptor{}, false
	}

	if time.Until(expiresAt) < m.ttl/2 {
		_ = m.write(w, r, descriptor)
	}
	return descriptor, true
}

// Clear destroys the session cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r != nil && r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, descriptor Descriptor) error {
	token, err := m.issue(descriptor)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r != nil && r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl / time.Second),
	})
	return nil
}

func (m *Manager) issue(descriptor Descriptor) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: descriptor.Username,
		Picture:  descriptor.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(descriptor.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenString string) (Descriptor, time.Time, error) {
	parsed := claims{}
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return Descriptor{}, time.Time{}, err
	}
	if !token.Valid {
		return Descriptor{}, time.Time{}, errors.New("invalid token")
	}

	userID, err := strconv.Atoi(strings.TrimSpace(parsed.Subject))
	if err != nil || userID < 1 {
		return Descriptor{}, time.Time{}, errors.New("invalid subject")
	}
	expiresAt := time.Time{}
	if parsed.ExpiresAt != nil {
		expiresAt = parsed.ExpiresAt.Time
	}
	return Descriptor{
		UserID:   userID,
		Username: parsed.Username,
		Picture:  parsed.Picture,
	}, expiresAt, nil
}

type contextKey struct{}

// WithDescriptor stores the descriptor on the context.
func WithDescriptor(ctx context.Context, descriptor Descriptor) context.Context {
	return context.WithValue(ctx, contextKey{}, descriptor)
}

// FromContext returns the request's session descriptor, if any.
func FromContext(ctx context.Context) (Descriptor, bool) {
	descriptor, ok := ctx.Value(contextKey{}).(Descriptor)
	return descriptor, ok
}

// Middleware restores the session (if any) and attaches the descriptor
// to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if descriptor, ok := m.Restore(w, r); ok {
			r = r.WithContext(WithDescriptor(r.Context(), descriptor))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth redirects anonymous requests to the login view.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
