package auth

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ayush/social-media-api/internal/apperr"
	"github.com/ayush/social-media-api/internal/httpx"
	"github.com/ayush/social-media-api/internal/models"
)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.Register(r.Context(), req)
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrConflict):
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to register user")
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login checks the user's credentials.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, apperr.ErrInvalidCredentials):
		httpx.Message(w, http.StatusUnauthorized, "Invalid email or password")
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to authenticate user")
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logged in successfully",
		"user":    user,
	})
}
