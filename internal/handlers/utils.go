package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/secretshare/webserver/internal/logutil"
	"github.com/secretshare/webserver/internal/session"
	"github.com/secretshare/webserver/internal/web"
)

// viewData is the payload handed to every rendered view.
type viewData struct {
	LoggedIn bool
	Username string
	Error    string
	Secrets  []string
}

// viewFor seeds view data from the request's session state.
func viewFor(r *http.Request) viewData {
	data := viewData{}
	if descriptor, ok := session.FromContext(r.Context()); ok {
		data.LoggedIn = true
		data.Username = descriptor.Username
	}
	return data
}

// renderError renders the default error view. Rendering failures fall
// back to a plain-text response so no request is left unresolved.
func renderError(w http.ResponseWriter, r *http.Request, renderer *web.Renderer, status int, message string) {
	data := viewFor(r)
	data.Error = message
	if err := renderer.Render(w, status, web.PageError, data); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("failed to render error view")
		http.Error(w, message, status)
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
