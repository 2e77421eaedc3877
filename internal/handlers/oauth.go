package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/secretshare/webserver/internal/auth"
	"github.com/secretshare/webserver/internal/logutil"
	"github.com/secretshare/webserver/internal/services"
	"github.com/secretshare/webserver/internal/session"
)

const (
	stateCookieName = "oauth_state"
	stateTTL        = 10 * time.Minute
	mirrorTimeout   = 30 * time.Second
)

// OAuthHandler drives the federated login flows.
type OAuthHandler struct {
	resolver *auth.Resolver
	users    *services.UserService
	sessions *session.Manager
	avatars  *services.AvatarService
}

// NewOAuthHandler constructs an OAuthHandler with the provided dependencies.
func NewOAuthHandler(resolver *auth.Resolver, users *services.UserService, sessions *session.Manager, avatars *services.AvatarService) *OAuthHandler {
	return &OAuthHandler{
		resolver: resolver,
		users:    users,
		sessions: sessions,
		avatars:  avatars,
	}
}

// OAuthRouter registers begin/callback routes for each enabled provider.
func OAuthRouter(r chi.Router, handler *OAuthHandler, providers ...*auth.OAuthProvider) {
	for _, provider := range providers {
		if !provider.Enabled() {
			continue
		}
		r.Get("/auth/"+provider.Name(), handler.Begin(provider))
		r.Get("/auth/"+provider.Name()+"/secrets", handler.Callback(provider))
	}
}

// Begin redirects to the provider's consent screen with a fresh state
// nonce bound to a short-lived cookie.
func (h *OAuthHandler) Begin(provider *auth.OAuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/auth",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(stateTTL / time.Second),
		})
		http.Redirect(w, r, provider.BeginAuth(state), http.StatusFound)
	}
}

// Callback completes the provider flow: state check, code exchange,
// profile fetch, find-or-create, session establishment. Any failure,
// including denied consent, falls back to the login view.
func (h *OAuthHandler) Callback(provider *auth.OAuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logutil.GetOrDefault(r.Context())

		if errParam := r.URL.Query().Get("error"); errParam != "" {
			logger.Info().Str("provider", provider.Name()).Str("error", errParam).Msg("provider denied authentication")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		cookie, err := r.Cookie(stateCookieName)
		if code == "" || state == "" || err != nil || cookie.Value != state {
			logger.Warn().Str("provider", provider.Name()).Msg("oauth callback with missing or mismatched state")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		profile, err := provider.CompleteAuth(r.Context(), code)
		if err != nil {
			logger.Error().Err(err).Str("provider", provider.Name()).Msg("failed to complete provider auth")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		user, err := h.resolver.Resolve(r.Context(), profile)
		if err != nil {
			logger.Error().Err(err).Str("provider", provider.Name()).Msg("failed to resolve federated identity")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		if err := h.sessions.Establish(w, r, user); err != nil {
			logger.Error().Err(err).Msg("failed to establish session")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h.users.RecordLogin(r.Context(), user, provider.Name())

		if h.avatars.Enabled() && profile.Picture != "" {
			go h.mirrorAvatar(logger, user.ID, profile.Picture)
		}

		http.Redirect(w, r, "/secrets", http.StatusFound)
	}
}

// mirrorAvatar runs outside the request lifecycle; the login flow never
// waits on the provider's image CDN.
func (h *OAuthHandler) mirrorAvatar(logger zerolog.Logger, userID int, pictureURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := h.avatars.Mirror(ctx, userID, pictureURL); err != nil {
		logger.Error().Err(err).Int("user_id", userID).Msg("failed to mirror avatar")
	}
}
