package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/velotrack/workshop-api/internal/auth"
	"github.com/velotrack/workshop-api/internal/config"
	"github.com/velotrack/workshop-api/internal/database"
	"github.com/velotrack/workshop-api/internal/http/handler"
	"github.com/velotrack/workshop-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/velotrack/workshop-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	db               *gorm.DB
	authMiddleware   *auth.Middleware
	rateLimiter      *middleware.RateLimiter
	quotationHandler *handler.QuotationHandler
	invoiceHandler   *handler.InvoiceHandler
	adminHandler     *handler.AdminHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	quotationHandler *handler.QuotationHandler,
	invoiceHandler *handler.InvoiceHandler,
	adminHandler *handler.AdminHandler,
) *Router {
	return &Router{
		cfg:              cfg,
		logger:           logger,
		db:               db,
		authMiddleware:   authMiddleware,
		rateLimiter:      rateLimiter,
		quotationHandler: quotationHandler,
		invoiceHandler:   invoiceHandler,
		adminHandler:     adminHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Combined readiness check
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		status := "healthy"
		if !allHealthy {
			status = "unhealthy"
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit) // User-based limits once authenticated

			// Store-scoped document creation
			r.Route("/stores/{storeId}", func(r chi.Router) {
				r.Post("/quotations", rt.quotationHandler.Create)
				r.Post("/invoices", rt.invoiceHandler.Create)
			})

			// Quotations
			r.Route("/quotations", func(r chi.Router) {
				r.Get("/", rt.quotationHandler.List)
				r.Get("/{id}", rt.quotationHandler.GetByID)
				r.Patch("/{id}", rt.quotationHandler.Update)

				// Lifecycle endpoints
				r.Post("/{id}/send", rt.quotationHandler.Send)
				r.Post("/{id}/approve", rt.quotationHandler.Approve)
				r.Post("/{id}/reject", rt.quotationHandler.Reject)
			})

			// Invoices
			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", rt.invoiceHandler.List)
				r.Get("/{id}", rt.invoiceHandler.GetByID)
				r.Patch("/{id}", rt.invoiceHandler.Update)

				// Payment ledger and lifecycle
				r.Post("/{id}/payments", rt.invoiceHandler.RecordPayment)
				r.Post("/{id}/cancel", rt.invoiceHandler.Cancel)
			})

			// Admin-only maintenance endpoints
			r.Route("/admin", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireAdmin)
				r.Post("/sweeps/quotations", rt.adminHandler.SweepQuotations)
				r.Post("/sweeps/invoices", rt.adminHandler.SweepInvoices)
			})
		})
	})

	return r
}
