package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sparkmatch/backend/internal/identity"
	"github.com/sparkmatch/backend/internal/logging"
	"github.com/sparkmatch/backend/internal/session"
)

// AuthHandler implements the sign-in, sign-up, and sign-out endpoints.
type AuthHandler struct {
	Sessions SessionStore
	Limiter  RateLimiter
}

// SignIn handles POST /api/v1/auth/signin requests.
func (h AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "signin") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many attempts"})
		return
	}

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signin payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		logger.Warn("signin missing credentials", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	if err := h.Sessions.SignIn(ctx, req.Email, req.Password); err != nil {
		logger.Warn("signin failed", "email", req.Email, "error", err)
		respondJSON(ctx, w, authErrorStatus(err), map[string]string{"error": identity.Message(err)})
		return
	}

	h.respondState(ctx, w, http.StatusOK)
}

// SignUp handles POST /api/v1/auth/signup requests.
func (h AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "signup") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many attempts"})
		return
	}

	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		logger.Warn("signup missing fields", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "email, password, and first name are required"})
		return
	}

	if len(req.Password) < 6 {
		logger.Warn("signup password too short", "email", req.Email)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "password must be at least 6 characters"})
		return
	}

	if err := h.Sessions.SignUp(ctx, req.Email, req.Password, req.FirstName, req.BirthDate); err != nil {
		logger.Warn("signup failed", "email", req.Email, "error", err)
		respondJSON(ctx, w, authErrorStatus(err), map[string]string{"error": identity.Message(err)})
		return
	}

	h.respondState(ctx, w, http.StatusCreated)
}

// SignOut handles POST /api/v1/auth/signout requests. Local session state is
// cleared even when the identity backend cannot be reached, so the response is
// always the signed-out state.
func (h AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if err := h.Sessions.SignOut(ctx); err != nil {
		if errors.Is(err, session.ErrNotHydrated) {
			respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "session restoring"})
			return
		}
		logger.Warn("remote sign-out failed, local session cleared", "error", err)
	}

	h.respondState(ctx, w, http.StatusOK)
}

func (h AuthHandler) respondState(ctx context.Context, w http.ResponseWriter, status int) {
	state, err := h.Sessions.Snapshot()
	if err != nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "session restoring"})
		return
	}
	respondJSON(ctx, w, status, sessionResponse{
		User:          state.User,
		Loading:       state.Loading,
		Error:         state.Err,
		RemoteRevoked: state.RemoteRevoked,
	})
}

func authErrorStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrWrongCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotHydrated):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	BirthDate string `json:"birthDate"`
}
