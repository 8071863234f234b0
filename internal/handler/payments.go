package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rasaeats/api/internal/middleware"
	"github.com/rasaeats/api/internal/service"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles settlement and payment history.
type PaymentHandler struct {
	settlement *service.SettlementService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(settlement *service.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlement: settlement}
}

// RegisterRoutes registers payment endpoints. Mounted at /payments.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Settle)
	r.Get("/", h.List)
}

// --- Request / Response types ---

type settleRequest struct {
	OrderIDs      []string `json:"order_ids"`
	Total         string   `json:"total"`
	PaymentMethod string   `json:"payment_method"`
	Phone         string   `json:"phone"`
}

type settleResponse struct {
	PaymentID     string `json:"payment_id"`
	EarnedPoints  int64  `json:"earned_points"`
	PointsPending bool   `json:"points_pending,omitempty"`
}

// --- Handlers ---

// Settle records a confirmed payment and runs the points and reward
// bookkeeping. A queued-bookkeeping outcome still returns the payment; the
// sweeper finishes the rest.
func (h *PaymentHandler) Settle(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Total == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "total is required"})
		return
	}
	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid total"})
		return
	}

	paymentID, err := h.settlement.Settle(r.Context(), claims.UserID, req.OrderIDs, total, req.PaymentMethod, req.Phone)
	if err != nil && !errors.Is(err, service.ErrBookkeepingPending) {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, settleResponse{
		PaymentID:     paymentID,
		EarnedPoints:  total.Floor().IntPart(),
		PointsPending: errors.Is(err, service.ErrBookkeepingPending),
	})
}

// List returns the authenticated user's payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	payments, err := h.settlement.ListPayments(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
