package posts

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ayush/social-media-api/internal/apperr"
	"github.com/ayush/social-media-api/internal/httpx"
	"github.com/ayush/social-media-api/internal/models"
)

// Handler holds post HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /api/posts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePostRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.svc.Create(r.Context(), req)
	if err != nil {
		if !errors.Is(err, apperr.ErrValidation) {
			log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to create post")
		}
		httpx.Message(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, post)
}

// Update handles PUT /api/posts/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdatePostRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, err := h.svc.Update(r.Context(), id, req.UserID, req.PostPatch)
	switch {
	case errors.Is(err, apperr.ErrForbidden):
		httpx.Message(w, http.StatusForbidden, "You can only update your own posts")
		return
	case errors.Is(err, apperr.ErrValidation):
		httpx.Message(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		fail(w, err, id, "Failed to update post")
		return
	}
	httpx.Message(w, http.StatusOK, "Post updated successfully")
}

// Delete handles DELETE /api/posts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ActorRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.Delete(r.Context(), id, req.UserID)
	if errors.Is(err, apperr.ErrForbidden) {
		httpx.Message(w, http.StatusForbidden, "You can only delete your own posts")
		return
	}
	if err != nil {
		fail(w, err, id, "Failed to delete post")
		return
	}
	httpx.Message(w, http.StatusOK, "Post deleted successfully")
}

// Get handles GET /api/posts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	post, err := h.svc.Get(r.Context(), id)
	if err != nil {
		fail(w, err, id, "Failed to get post")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, post)
}

// Like handles PUT /api/posts/{id}/like.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ActorRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.svc.ToggleLike(r.Context(), id, req.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		httpx.Message(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		httpx.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	if outcome == Liked {
		httpx.Message(w, http.StatusOK, "Post has been liked")
		return
	}
	httpx.Message(w, http.StatusOK, "Post has been disliked")
}

// Comment handles PUT /api/posts/{id}/comments.
func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.CommentsRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.svc.AddComments(r.Context(), id, req.Comments)
	if errors.Is(err, apperr.ErrNotFound) {
		httpx.Message(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		httpx.Message(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, post)
}

// Timeline handles GET /api/posts/timeline. The user id is read from the
// JSON body, falling back to the userId query parameter for clients that
// cannot send a body with GET.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	var req models.TimelineRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Message(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		req.UserID = r.URL.Query().Get("userId")
	}

	posts, err := h.svc.Timeline(r.Context(), req.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		httpx.Message(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to build timeline")
		httpx.Message(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, posts)
}

func fail(w http.ResponseWriter, err error, id, msg string) {
	if errors.Is(err, apperr.ErrNotFound) {
		httpx.Message(w, http.StatusNotFound, "Post not found")
		return
	}
	log.Error().Err(err).Str("post_id", id).Msg(msg)
	httpx.Message(w, http.StatusInternalServerError, err.Error())
}
