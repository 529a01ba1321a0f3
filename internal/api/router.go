/**
 * @description
 * This file sets up the HTTP router for the generation-service using the
 * go-chi/chi router. It defines the API routes, applies middleware for logging,
 * CORS, and authentication, and maps the routes to their corresponding handler
 * functions.
 */
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the generation-service routes.
func NewRouter(h *GenerationHandlers, jwksURL string, allowedOrigins string) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(allowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Guest-Limit", "X-Guest-Remaining", "X-Guest-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public catalog listing
	r.Get("/models", h.ListModelsHandler)

	// Submission accepts both anonymous and authenticated callers; a present
	// bearer token is validated, an absent one selects the anonymous path.
	r.Group(func(r chi.Router) {
		r.Use(OptionalSessionAuthMiddleware(jwksURL))
		r.Post("/generations", h.SubmitGenerationHandler)
	})

	// Protected routes that require authentication
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(jwksURL))
		r.Get("/account/balance", h.BalanceHandler)
		r.Post("/subscription/cancel", h.CancelSubscriptionHandler)
	})

	return r
}

func corsOrigins(allowedOrigins string) []string {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	return origins
}
