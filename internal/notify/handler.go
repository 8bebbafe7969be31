package notify

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ayush/social-media-api/internal/httpx"
	"github.com/ayush/social-media-api/internal/models"
)

// DeliveryLister reads back the delivery log.
type DeliveryLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Delivery, error)
}

// Handler exposes a user's recent notification deliveries.
type Handler struct {
	deliveries DeliveryLister
}

// NewHandler accepts a nil lister when no delivery log is configured; the
// list is then always empty.
func NewHandler(deliveries DeliveryLister) *Handler {
	return &Handler{deliveries: deliveries}
}

// List handles GET /api/users/{id}/notifications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	if h.deliveries == nil {
		httpx.WriteJSON(w, http.StatusOK, []models.Delivery{})
		return
	}

	deliveries, err := h.deliveries.ListByUser(r.Context(), userID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list notification deliveries")
		httpx.Message(w, http.StatusInternalServerError, "Failed to retrieve notifications")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, deliveries)
}
