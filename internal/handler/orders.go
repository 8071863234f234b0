package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/middleware"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/service"
	"github.com/rasaeats/api/internal/store"
)

// OrderHandler handles checkout and the customer/staff order views.
type OrderHandler struct {
	orders  *service.OrderService
	status  *service.StatusService
	catalog *service.CatalogService
	tracker *service.Tracker
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders *service.OrderService, status *service.StatusService, catalog *service.CatalogService, tracker *service.Tracker) *OrderHandler {
	return &OrderHandler{orders: orders, status: status, catalog: catalog, tracker: tracker}
}

// RegisterRoutes registers order endpoints. Mounted at /orders; the caller
// wraps staff-only routes with the role middleware.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Checkout)
	r.Get("/", h.ListMine)
	r.Get("/summary", h.Summary)
	r.Post("/receive", h.Receive)
	r.Get("/track/{paymentID}", h.Track)
	r.Post("/track/{paymentID}/receive", h.ReceiveGroup)
}

// RegisterStaffRoutes registers the staff-only order endpoints.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/pending", h.ListPending)
	r.Post("/complete", h.Complete)
}

// --- Request / Response types ---

type checkoutItemRequest struct {
	FoodID   string   `json:"food_id"`
	SauceIDs []string `json:"sauce_ids"`
	AddOnIDs []string `json:"add_on_ids"`
	Quantity int      `json:"quantity"`
	TakeAway bool     `json:"take_away"`
	Remarks  string   `json:"remarks"`
}

type checkoutRequest struct {
	Items []checkoutItemRequest `json:"items"`
}

type orderIDsRequest struct {
	OrderIDs []string `json:"order_ids"`
}

type summaryResponse struct {
	Items    []model.CartItem `json:"items"`
	Subtotal string           `json:"subtotal"`
}

// --- Handlers ---

// Checkout resolves catalog snapshots for each requested line and persists
// the cart as orders.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	lines := make([]model.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		food, err := h.catalog.GetFood(r.Context(), item.FoodID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !food.Available {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "menu item not available: " + food.ID})
			return
		}

		sauces, err := resolveOptions(r.Context(), h.catalog.ListSauces, item.SauceIDs)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		addOns, err := resolveOptions(r.Context(), h.catalog.ListAddOns, item.AddOnIDs)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		lines = append(lines, model.CartItem{
			Food:     food,
			Sauces:   sauces,
			AddOns:   addOns,
			Quantity: item.Quantity,
			TakeAway: item.TakeAway,
			Remarks:  item.Remarks,
		})
	}

	persisted, err := h.orders.Checkout(r.Context(), claims.UserID, lines)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, persisted)
}

// ListMine returns the authenticated user's orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Summary returns the user's unpaid orders grouped for the checkout screen.
func (h *OrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	items, subtotal, err := h.orders.Summary(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Items: items, Subtotal: subtotal.StringFixed(2)})
}

// ListPending returns every pending order, for the staff queue.
func (h *OrderHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListPending(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Complete marks the given orders completed. Staff action.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req orderIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.status.MarkComplete(r.Context(), req.OrderIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Receive marks the caller's own orders received. Customer action.
func (h *OrderHandler) Receive(w http.ResponseWriter, r *http.Request) {
	owner, ok := trackOwner(w, r)
	if !ok {
		return
	}

	var req orderIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.status.MarkReceivedBy(r.Context(), owner, req.OrderIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Track polls one payment group's orders; once every order is completed the
// auto-receive countdown is armed server-side. Customers see only their own
// groups; staff are unscoped.
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	owner, ok := trackOwner(w, r)
	if !ok {
		return
	}
	orders, err := h.tracker.Refresh(r.Context(), owner, chi.URLParam(r, "paymentID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ReceiveGroup marks one payment group received and cancels its countdown.
func (h *OrderHandler) ReceiveGroup(w http.ResponseWriter, r *http.Request) {
	owner, ok := trackOwner(w, r)
	if !ok {
		return
	}
	if err := h.tracker.Receive(r.Context(), owner, chi.URLParam(r, "paymentID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// trackOwner resolves the ownership scope for group tracking from the
// caller's claims: customers are scoped to themselves, staff see everything.
func trackOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return "", false
	}
	if claims.Role == enum.RoleStaff {
		return "", true
	}
	return claims.UserID, true
}

// resolveOptions maps requested option IDs onto their catalog entries.
func resolveOptions(ctx context.Context, list func(context.Context) ([]model.CatalogOption, error), ids []string) ([]model.Option, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := list(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.CatalogOption, len(all))
	for _, opt := range all {
		byID[opt.ID] = opt
	}
	out := make([]model.Option, 0, len(ids))
	for _, id := range ids {
		opt, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: option %s", store.ErrNotFound, id)
		}
		out = append(out, opt.Option())
	}
	return out, nil
}
