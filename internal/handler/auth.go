package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rasaeats/api/internal/auth"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles signup, login and token refresh.
type AuthHandler struct {
	profiles  *service.ProfileService
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(profiles *service.ProfileService, jwtSecret string) *AuthHandler {
	return &AuthHandler{profiles: profiles, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type signupRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Profile      profileResponse `json:"profile"`
}

type profileResponse struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url,omitempty"`
	Role     string `json:"role"`
	Points   int64  `json:"points"`
}

func toProfileResponse(p model.Profile) profileResponse {
	return profileResponse{
		UID:      p.UID,
		Name:     p.Name,
		Phone:    p.Phone,
		Gender:   p.Gender,
		Email:    p.Email,
		PhotoURL: p.PhotoURL,
		Role:     p.Role,
		Points:   p.Points,
	}
}

// --- Handlers ---

// Signup registers a profile and returns tokens.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	profile, err := h.profiles.Create(r.Context(), service.CreateProfileInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Gender:   req.Gender,
		Email:    req.Email,
		PhotoURL: req.PhotoURL,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.respondWithTokens(w, http.StatusCreated, profile)
}

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	profile, err := h.profiles.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeServiceError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.HashedPassword), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	h.respondWithTokens(w, http.StatusOK, profile)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	uid, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	profile, err := h.profiles.Get(r.Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
			return
		}
		writeServiceError(w, err)
		return
	}

	h.respondWithTokens(w, http.StatusOK, profile)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, profile model.Profile) {
	access, err := auth.GenerateToken(h.jwtSecret, profile.UID, profile.Email, profile.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	refresh, err := auth.GenerateRefreshToken(h.jwtSecret, profile.UID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Profile:      toProfileResponse(profile),
	})
}
