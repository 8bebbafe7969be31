package users

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ayush/social-media-api/internal/apperr"
	"github.com/ayush/social-media-api/internal/httpx"
	"github.com/ayush/social-media-api/internal/models"
)

// Handler holds user HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Update handles PUT /api/users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateUserRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), id, req.UserID, req.IsAdmin, req.UserPatch)
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		httpx.Message(w, http.StatusBadRequest, "You are not authorized to update this profile")
		return
	case errors.Is(err, apperr.ErrValidation):
		httpx.Message(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.fail(w, err, id, "Failed to update user")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User updated successfully",
		"user":    user,
	})
}

// Delete handles DELETE /api/users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ActorRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.Delete(r.Context(), id, req.UserID, req.IsAdmin)
	if errors.Is(err, apperr.ErrUnauthorized) {
		httpx.Message(w, http.StatusBadRequest, "You are not authorized to delete this profile")
		return
	}
	if err != nil {
		h.fail(w, err, id, "Failed to delete user")
		return
	}
	httpx.Message(w, http.StatusOK, "Account has been deleted successfully")
}

// Get handles GET /api/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, id, "Failed to get user")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

// Follow handles PUT /api/users/{id}/follow.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ActorRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Follow(r.Context(), id, req.UserID)
	if errors.Is(err, apperr.ErrSelfReference) {
		httpx.Message(w, http.StatusBadRequest, "You cannot follow yourself")
		return
	}
	if err != nil {
		h.fail(w, err, id, "Failed to follow user")
		return
	}
	h.writeFollow(w, res)
}

// Unfollow handles PUT /api/users/{id}/unfollow.
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ActorRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Unfollow(r.Context(), id, req.UserID)
	if errors.Is(err, apperr.ErrSelfReference) {
		httpx.Message(w, http.StatusBadRequest, "You cannot unfollow yourself")
		return
	}
	if err != nil {
		h.fail(w, err, id, "Failed to unfollow user")
		return
	}
	h.writeFollow(w, res)
}

func (h *Handler) writeFollow(w http.ResponseWriter, res *FollowResult) {
	var msg string
	switch res.Outcome {
	case AlreadyFollowing:
		httpx.Message(w, http.StatusOK, "User is already following this user")
		return
	case NotFollowing:
		httpx.Message(w, http.StatusOK, "User is not following this user")
		return
	case Followed:
		msg = "User followed successfully"
	case Unfollowed:
		msg = "User unfollowed successfully"
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":     msg,
		"user":        res.Target,
		"currentUser": res.Actor,
	})
}

// UploadPicture handles PUT /api/users/{id}/picture. The image comes in the
// multipart field "image"; userId and isAdmin are plain form fields.
func (h *Handler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind, err := ParsePictureKind(r.URL.Query().Get("kind"))
	if err != nil {
		httpx.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPictureSize+1<<20)
	if err := r.ParseMultipartForm(MaxPictureSize); err != nil {
		httpx.Message(w, http.StatusBadRequest, "File is too large. Maximum size is 5MB.")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		httpx.Message(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	isAdmin, _ := strconv.ParseBool(r.FormValue("isAdmin"))
	user, err := h.svc.SetPicture(r.Context(), id, r.FormValue("userId"), isAdmin, Upload{
		Kind:        kind,
		Body:        file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	})
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		httpx.Message(w, http.StatusBadRequest, "You are not authorized to update this profile")
		return
	case errors.Is(err, apperr.ErrValidation):
		httpx.Message(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrNoMediaStore):
		httpx.Message(w, http.StatusServiceUnavailable, "Picture storage is not configured")
		return
	case err != nil:
		h.fail(w, err, id, "Failed to upload picture")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Picture updated successfully",
		"user":    user,
	})
}

// Picture handles GET /api/users/{id}/picture.
func (h *Handler) Picture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind, err := ParsePictureKind(r.URL.Query().Get("kind"))
	if err != nil {
		httpx.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	body, contentType, size, err := h.svc.OpenPicture(r.Context(), id, kind)
	if errors.Is(err, ErrNoMediaStore) {
		httpx.Message(w, http.StatusServiceUnavailable, "Picture storage is not configured")
		return
	}
	if errors.Is(err, apperr.ErrNotFound) {
		httpx.Message(w, http.StatusNotFound, "Picture not found")
		return
	}
	if err != nil {
		h.fail(w, err, id, "Failed to read picture")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	if _, err := io.Copy(w, body); err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("Failed to stream picture")
	}
}

// fail maps not-found and conflict errors and logs everything else as a 500.
func (h *Handler) fail(w http.ResponseWriter, err error, id, msg string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		httpx.Message(w, http.StatusNotFound, "User not found")
	case errors.Is(err, apperr.ErrConflict):
		httpx.Message(w, http.StatusConflict, "Username or email already taken")
	default:
		log.Error().Err(err).Str("user_id", id).Msg(msg)
		httpx.Message(w, http.StatusInternalServerError, err.Error())
	}
}
