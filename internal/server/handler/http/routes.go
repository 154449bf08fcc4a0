package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JohanU89-coder/radius-api/internal/middleware"
)

// NewRouter constructs the HTTP handler serving the account API.
//
// Routes:
//
//	GET    /                                 → welcome message
//	GET    /metrics                          → Prometheus metrics
//	POST   /accounts                         → accountHandler.Create
//	GET    /accounts                         → accountHandler.List
//	GET    /accounts/{username}              → accountHandler.Get
//	PATCH  /accounts/{username}              → accountHandler.Update
//	DELETE /accounts/{username}              → accountHandler.Delete
//	POST   /accounts/{username}/deactivate   → accountHandler.Deactivate
//	POST   /accounts/{username}/activate     → accountHandler.Activate
//
// Middleware chain (applied in order):
//  1. Recoverer                  turns handler panics into 500s
//  2. WithRequestLogging(logger) logs each request with its id
//  3. Metrics                    records request counters and latencies
func NewRouter(accountHandler *AccountHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.Metrics)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "RADIUS account management API"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/accounts", func(r chi.Router) {
		// Bodyless requests pass; anything with a body must be JSON.
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Post("/", accountHandler.Create)
		r.Get("/", accountHandler.List)
		r.Route("/{username}", func(r chi.Router) {
			r.Get("/", accountHandler.Get)
			r.Patch("/", accountHandler.Update)
			r.Delete("/", accountHandler.Delete)
			r.Post("/deactivate", accountHandler.Deactivate)
			r.Post("/activate", accountHandler.Activate)
		})
	})

	return r
}
