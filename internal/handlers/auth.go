package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/secretshare/webserver/internal/auth"
	"github.com/secretshare/webserver/internal/logutil"
	"github.com/secretshare/webserver/internal/services"
	"github.com/secretshare/webserver/internal/session"
	"github.com/secretshare/webserver/internal/store"
	"github.com/secretshare/webserver/internal/web"
)

// AuthHandler serves local registration, login and logout.
type AuthHandler struct {
	verifier *auth.LocalVerifier
	users    *services.UserService
	sessions *session.Manager
	renderer *web.Renderer
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(verifier *auth.LocalVerifier, users *services.UserService, sessions *session.Manager, renderer *web.Renderer) *AuthHandler {
	return &AuthHandler{
		verifier: verifier,
		users:    users,
		sessions: sessions,
		renderer: renderer,
	}
}

// AuthRouter registers the local auth routes on the given router.
func AuthRouter(r chi.Router, verifier *auth.LocalVerifier, users *services.UserService, sessions *session.Manager, renderer *web.Renderer) {
	handler := NewAuthHandler(verifier, users, sessions, renderer)

	r.Get("/login", handler.LoginPage)
	r.Post("/login", handler.Login)
	r.Get("/register", handler.RegisterPage)
	r.Post("/register", handler.Register)
	r.Get("/logout", handler.Logout)
}

// LoginPage renders the login view.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, http.StatusOK, web.PageLogin, viewFor(r)); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to render login")
	}
}

// Login verifies the submitted credentials and establishes a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.loginFailed(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.verifier.Verify(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.loginFailed(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("login failed")
		renderError(w, r, h.renderer, http.StatusInternalServerError, "could not log you in")
		return
	}

	if err := h.sessions.Establish(w, r, user); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to establish session")
		renderError(w, r, h.renderer, http.StatusInternalServerError, "could not log you in")
		return
	}
	h.users.RecordLogin(r.Context(), user, auth.ProviderLocal)

	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// RegisterPage renders the registration view.
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, http.StatusOK, web.PageRegister, viewFor(r)); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to render register")
	}
}

// Register creates a local account and immediately establishes a
// session; no separate login step is required.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.registerFailed(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.verifier.Register(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			h.registerFailed(w, r, http.StatusConflict, "username already exists")
			return
		}
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("registration failed")
		renderError(w, r, h.renderer, http.StatusInternalServerError, "could not register your account")
		return
	}

	if err := h.sessions.Establish(w, r, user); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to establish session")
		renderError(w, r, h.renderer, http.StatusInternalServerError, "could not register your account")
		return
	}

	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// Logout destroys the session unconditionally and redirects home.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := viewFor(r)
	data.Error = message
	if err := h.renderer.Render(w, status, web.PageLogin, data); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to render login")
	}
}

func (h *AuthHandler) registerFailed(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := viewFor(r)
	data.Error = message
	if err := h.renderer.Render(w, status, web.PageRegister, data); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to render register")
	}
}
