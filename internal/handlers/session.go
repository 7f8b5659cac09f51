package handlers

import (
	"net/http"

	"github.com/sparkmatch/backend/internal/models"
)

// SessionHandler exposes the current session snapshot.
type SessionHandler struct {
	Sessions SessionStore
}

type sessionResponse struct {
	User          *models.UserProfile `json:"user"`
	Loading       bool                `json:"loading"`
	Error         string              `json:"error,omitempty"`
	RemoteRevoked bool                `json:"remoteRevoked"`
}

// Get handles GET /api/v1/session requests.
func (h SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Sessions == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session store unavailable"})
		return
	}

	state, err := h.Sessions.Snapshot()
	if err != nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "session restoring"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, sessionResponse{
		User:          state.User,
		Loading:       state.Loading,
		Error:         state.Err,
		RemoteRevoked: state.RemoteRevoked,
	})
}
