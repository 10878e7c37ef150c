package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/api/middleware"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/handlers"
)

// Options carries the router's optional collaborators.
type Options struct {
	// RedisClient backs rate limiting; nil disables it.
	RedisClient *redis.Client

	CORSAllowedOrigins []string
	RateLimit          middleware.RateLimiterConfig
}

// maxBodyBytes fits a 5000 character message of multi-byte text plus
// the surrounding JSON.
const maxBodyBytes = 32 * 1024

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS for the CRM frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limiter := middleware.NewRateLimiter(opts.RedisClient, logger, opts.RateLimit)
	r.Use(limiter.Middleware)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/api", h.Root)
	r.Get("/health", h.Health)

	r.Route("/messages", func(r chi.Router) {
		r.Get("/", h.ListMessages)
		r.Post("/", h.SendMessage)
		r.Get("/unread", h.UnreadCount)
	})
	r.Get("/conversations", h.ListConversations)
	r.Get("/typing", h.GetTyping)
	r.Post("/typing", h.SetTyping)

	return r
}
