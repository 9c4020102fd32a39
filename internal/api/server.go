// Package api assembles the Chi router: middleware, health endpoints,
// device registration, donation writes, and the admin sweep trigger.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/mealbridge/notify/internal/api/handler"
	"github.com/mealbridge/notify/internal/config"
	"github.com/mealbridge/notify/internal/db"
	"github.com/mealbridge/notify/internal/notify"
	"github.com/mealbridge/notify/internal/store"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *db.Pool, users *store.Users, donations *store.Donations, dispatcher *notify.Dispatcher, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, users, donations, dispatcher)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Devices
		r.Put("/users/{userID}/device", h.RegisterDevice)
		r.Delete("/users/{userID}/device", h.RemoveDevice)

		// Donations
		r.Post("/donations", h.CreateDonation)
		r.Get("/donations/{donationID}", h.GetDonation)
		r.Patch("/donations/{donationID}/status", h.UpdateDonationStatus)

		// Admin
		r.Post("/admin/sweep", h.TriggerSweep)
	})

	return r
}
