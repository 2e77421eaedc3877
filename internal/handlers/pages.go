package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/secretshare/webserver/internal/logutil"
	"github.com/secretshare/webserver/internal/services"
	"github.com/secretshare/webserver/internal/session"
	"github.com/secretshare/webserver/internal/web"
)

// PageHandler serves the application views.
type PageHandler struct {
	users    *services.UserService
	renderer *web.Renderer
}

// NewPageHandler constructs a PageHandler with the provided dependencies.
func NewPageHandler(users *services.UserService, renderer *web.Renderer) *PageHandler {
	return &PageHandler{users: users, renderer: renderer}
}

// PageRouter registers the view routes on the given router.
func PageRouter(r chi.Router, users *services.UserService, renderer *web.Renderer, requireAuth func(http.Handler) http.Handler) {
	handler := NewPageHandler(users, renderer)

	r.Get("/", handler.Home)
	r.Get("/secrets", handler.Secrets)
	r.With(requireAuth).Get("/submit", handler.SubmitPage)
	r.With(requireAuth).Post("/submit", handler.SubmitSecret)
}

// Home renders the landing view.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, http.StatusOK, web.PageHome, viewFor(r)); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to render home")
	}
}

// Secrets renders every shared secret. The list is public: secrets are
// shared anonymously, so no session is required to read them.
func (h *PageHandler) Secrets(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListWithSecrets(r.Context())
	if err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to list secrets")
		renderError(w, r, h.renderer, http.StatusInternalServerError, "could not load secrets")
		return
	}

	data := viewFor(r)
	for _, user := range users {
		if user.Secret != nil {
			data.Secrets = append(data.Secrets, *user.Secret)
		}
	}
	if err := h.renderer.Render(w, http.StatusOK, web.PageSecrets, data); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to render secrets")
	}
}

// SubmitPage renders the secret submission form. Anonymous requests
// never reach here: the route is gated by the session middleware.
func (h *PageHandler) SubmitPage(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, http.StatusOK, web.PageSubmit, viewFor(r)); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to render submit")
	}
}

// SubmitSecret persists the submitted secret to the current user's
// record and redirects to the secrets list.
func (h *PageHandler) SubmitSecret(w http.ResponseWriter, r *http.Request) {
	descriptor, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	secret := strings.TrimSpace(r.FormValue("secret"))
	if secret == "" {
		data := viewFor(r)
		data.Error = "a secret is required"
		if err := h.renderer.Render(w, http.StatusBadRequest, web.PageSubmit, data); err != nil {
			logger := logutil.GetOrDefault(r.Context())
			logger.Error().Err(err).Msg("failed to render submit")
		}
		return
	}

	if err := h.users.SubmitSecret(r.Context(), descriptor.UserID, secret); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Int("user_id", descriptor.UserID).Msg("failed to store secret")
		renderError(w, r, h.renderer, http.StatusInternalServerError, "could not save your secret")
		return
	}

	http.Redirect(w, r, "/secrets", http.StatusFound)
}
