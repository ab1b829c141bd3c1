package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskboard-api/internal/api"
	apimiddleware "github.com/phrazzld/taskboard-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.Trace(app.logger))

	authHandler := api.NewAuthHandler(app.userStore, app.jwtService, app.passwords)
	taskHandler := api.NewTaskHandler(app.taskService)
	healthHandler := api.NewHealthHandler(map[string]api.Pinger{
		"database": api.PingerFunc(app.db.PingContext),
		"redis":    api.PingerFunc(func(ctx context.Context) error { return app.kv.Ping(ctx) }),
	})

	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService)
	rateLimit := apimiddleware.NewRateLimitMiddleware(app.limiter, app.config.RateLimit.FailOpen)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public, rate limited by source address)
		r.Group(func(r chi.Router) {
			r.Use(rateLimit.Limit)
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/refresh", authHandler.Refresh)
		})

		// Protected routes (rate limited per authenticated user)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimit.Limit)

			r.Post("/tasks", taskHandler.Create)
			r.Get("/tasks", taskHandler.List)
			r.Get("/tasks/stats", taskHandler.Stats)
			r.Post("/tasks/batch", taskHandler.Batch)
			r.Get("/tasks/{id}", taskHandler.Get)
			r.Patch("/tasks/{id}", taskHandler.Update)
			r.Delete("/tasks/{id}", taskHandler.Delete)
		})
	})

	// Health endpoints sit outside the rate limiter so probes never throttle.
	r.Get("/health", healthHandler.Health)
	r.Get("/health/liveness", healthHandler.Liveness)
	r.Get("/health/readiness", healthHandler.Readiness)

	return r
}
