package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rasaeats/api/internal/config"
	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/handler"
	"github.com/rasaeats/api/internal/metrics"
	mw "github.com/rasaeats/api/internal/middleware"
	"github.com/rasaeats/api/internal/service"
)

// Services bundles everything the router needs wired up.
type Services struct {
	Profiles   *service.ProfileService
	Orders     *service.OrderService
	Status     *service.StatusService
	Settlement *service.SettlementService
	Rewards    *service.RewardService
	Catalog    *service.CatalogService
	Tracker    *service.Tracker
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, svc Services) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(svc.Profiles, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	orderHandler := handler.NewOrderHandler(svc.Orders, svc.Status, svc.Catalog, svc.Tracker)
	paymentHandler := handler.NewPaymentHandler(svc.Settlement)
	profileHandler := handler.NewProfileHandler(svc.Profiles)
	rewardHandler := handler.NewRewardHandler(svc.Rewards)
	catalogHandler := handler.NewCatalogHandler(svc.Catalog)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		catalogHandler.RegisterRoutes(r)
		r.Route("/orders", orderHandler.RegisterRoutes)
		r.Route("/payments", paymentHandler.RegisterRoutes)
		r.Route("/profile", profileHandler.RegisterRoutes)
		r.Route("/rewards", rewardHandler.RegisterRoutes)

		// Staff-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleStaff))
			r.Route("/staff/orders", orderHandler.RegisterStaffRoutes)
			r.Route("/staff/rewards", rewardHandler.RegisterStaffRoutes)
			r.Route("/staff/catalog", catalogHandler.RegisterStaffRoutes)
		})
	})

	return r
}
