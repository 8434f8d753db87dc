// Package api provides the administrative HTTP surface of the notifier.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/famlink/notifier/internal/admin"
	"github.com/famlink/notifier/internal/api/handler"
	"github.com/famlink/notifier/internal/api/middleware"
	"github.com/famlink/notifier/internal/fanout"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version       string
	BuildTime     string
	Logger        zerolog.Logger
	ServiceName   string
	Verifier      middleware.TokenVerifier
	FanoutService *fanout.Service
	AdminService  *admin.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "notifier-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime)
	notifyHandler := handler.NewNotifyHandler(cfg.FanoutService)
	adminHandler := handler.NewAdminHandler(cfg.AdminService)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.Verifier)

	// Rate limits: sends are expensive fan-outs, admin reads are cheap.
	sendRateLimit := middleware.RateLimitByUser(middleware.ExpensiveRateLimit)   // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Direct sends (authenticated)
		r.Route("/notifications", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(sendRateLimit)
			r.Post("/send", notifyHandler.Send)
		})

		// Admin request management (authenticated + admin claim)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin)
			r.Use(standardRateLimit)
			r.Get("/requests", adminHandler.ListRequests)
			r.Post("/requests/approve", adminHandler.ApproveRequest)
		})
	})

	return r
}
