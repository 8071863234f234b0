package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rasaeats/api/internal/middleware"
	"github.com/rasaeats/api/internal/service"
)

// ProfileHandler serves the authenticated user's profile and points.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// RegisterRoutes registers profile endpoints. Mounted at /profile.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Get("/me/points", h.Points)
}

// Me returns the authenticated user's profile.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	profile, err := h.profiles.Get(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// Points returns the authenticated user's loyalty balance.
func (h *ProfileHandler) Points(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	points, err := h.profiles.Points(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"points": points})
}
