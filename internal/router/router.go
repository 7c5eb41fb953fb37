package router

import (
	"net/http"

	"lifedash-api/internal/handler"
	"lifedash-api/internal/middleware"
	"lifedash-api/pkg/apierror"
	"lifedash-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// PublicPaths are served without an API key.
var PublicPaths = []string{"/api/v1/health", "/api/v1/ready"}

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	TrackerHandler *handler.TrackerHandler
	AdminHandler   *handler.AdminHandler
	AuthMiddleware func(http.Handler) http.Handler
	Metrics        http.Handler
	Logger         *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader, "X-API-Key"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound(""))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.MethodNotAllowed())
	})

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if h := cfg.TrackerHandler; h != nil {
			r.Route("/events", func(r chi.Router) {
				r.Get("/", h.ListEvents)
				r.Post("/", h.CreateEvent)
				r.Delete("/{id}", h.DeleteEvent)
			})
			r.Route("/exams", func(r chi.Router) {
				r.Get("/", h.ListExams)
				r.Post("/", h.CreateExam)
				r.Delete("/{id}", h.DeleteExam)
			})
			r.Route("/notes", func(r chi.Router) {
				r.Get("/", h.ListNotes)
				r.Post("/", h.CreateNote)
				r.Delete("/{id}", h.DeleteNote)
			})
		}

		if h := cfg.AdminHandler; h != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", h.GetStats)
				r.Route("/cache", func(r chi.Router) {
					r.Get("/", h.GetCacheStats)
					r.Delete("/", h.ClearCache)
					r.Get("/entries/{key}", h.GetCacheEntry)
					r.Get("/tags/{tag}", h.GetCacheTag)
					r.Post("/invalidate", h.InvalidateTags)
					r.Post("/cleanup", h.CleanupExpired)
				})
			})
		}
	})

	return r
}
