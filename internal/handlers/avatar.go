package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/secretshare/webserver/internal/logutil"
	"github.com/secretshare/webserver/internal/services"
)

// AvatarHandler serves mirrored avatar images.
type AvatarHandler struct {
	avatars *services.AvatarService
}

// AvatarRouter registers the avatar route when storage is configured.
func AvatarRouter(r chi.Router, avatars *services.AvatarService) {
	if !avatars.Enabled() {
		return
	}
	handler := &AvatarHandler{avatars: avatars}
	r.Get("/avatars/{userID}", handler.Serve)
}

// Serve streams the mirrored avatar for a user.
func (h *AvatarHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID < 1 {
		http.NotFound(w, r)
		return
	}

	reader, err := h.avatars.Open(r.Context(), userID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer reader.Close()

	if _, err := io.Copy(w, reader); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Int("user_id", userID).Msg("failed to stream avatar")
	}
}
