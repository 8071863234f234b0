package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/service"
	"github.com/shopspring/decimal"
)

// CatalogHandler serves the menu, sauces, add-ons and categories.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// RegisterRoutes registers the public catalog endpoints.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.ListMenu)
	r.Get("/sauces", h.ListSauces)
	r.Get("/addons", h.ListAddOns)
	r.Get("/categories", h.ListCategories)
}

// RegisterStaffRoutes registers the staff-only catalog endpoints.
func (h *CatalogHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/menu", h.CreateFood)
	r.Post("/sauces", h.CreateSauce)
	r.Post("/addons", h.CreateAddOn)
	r.Patch("/menu/{id}/availability", h.SetAvailability)
	r.Post("/cache/refresh", h.RefreshCache)
}

// --- Request types ---

type createFoodRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Category string `json:"category"`
	ImageURL string `json:"image_url"`
}

type createOptionRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

// --- Handlers ---

func (h *CatalogHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	foods, err := h.catalog.ListMenu(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, foods)
}

func (h *CatalogHandler) ListSauces(w http.ResponseWriter, r *http.Request) {
	sauces, err := h.catalog.ListSauces(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sauces)
}

func (h *CatalogHandler) ListAddOns(w http.ResponseWriter, r *http.Request) {
	addOns, err := h.catalog.ListAddOns(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addOns)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateFood adds a menu item. Staff action.
func (h *CatalogHandler) CreateFood(w http.ResponseWriter, r *http.Request) {
	var req createFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	food, err := h.catalog.CreateFood(r.Context(), req.Name, req.Category, price, req.ImageURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, food)
}

// CreateSauce adds a sauce option. Staff action.
func (h *CatalogHandler) CreateSauce(w http.ResponseWriter, r *http.Request) {
	h.createOption(w, r, h.catalog.CreateSauce)
}

// CreateAddOn adds an add-on option. Staff action.
func (h *CatalogHandler) CreateAddOn(w http.ResponseWriter, r *http.Request) {
	h.createOption(w, r, h.catalog.CreateAddOn)
}

// SetAvailability toggles a menu item on or off. Staff action.
func (h *CatalogHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.catalog.SetFoodAvailability(r.Context(), chi.URLParam(r, "id"), req.Available); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshCache rewarms the catalog mirror. Staff action.
func (h *CatalogHandler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.RefreshCache(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) createOption(w http.ResponseWriter, r *http.Request, create func(context.Context, string, decimal.Decimal) (model.CatalogOption, error)) {
	var req createOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	opt, err := create(r.Context(), req.Name, price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, opt)
}
