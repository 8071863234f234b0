package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rasaeats/api/internal/middleware"
	"github.com/rasaeats/api/internal/service"
)

// RewardHandler handles loyalty reward listing and redemption.
type RewardHandler struct {
	rewards *service.RewardService
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(rewards *service.RewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

// RegisterRoutes registers reward endpoints. Mounted at /rewards.
func (h *RewardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/{id}/redeem", h.Redeem)
}

// RegisterStaffRoutes registers the staff-only reward endpoints.
func (h *RewardHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

type createRewardRequest struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Condition      string `json:"condition"`
	PointsRequired int64  `json:"points_required"`
}

// List returns the authenticated user's rewards.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	rewards, err := h.rewards.List(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

// Redeem spends points on one of the user's rewards.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	reward, err := h.rewards.Redeem(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

// Create offers a reward to a user. Staff action.
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	reward, err := h.rewards.Create(r.Context(), req.UserID, req.Name, req.Condition, req.PointsRequired)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}
