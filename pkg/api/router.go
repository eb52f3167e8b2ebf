package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/geobim/geobim/internal/logger"
	"github.com/geobim/geobim/pkg/api/handlers"
	"github.com/geobim/geobim/pkg/api/middleware"
	"github.com/geobim/geobim/pkg/metrics"
)

// CORSConfig contains the cross-origin policy for the JSON API.
type CORSConfig struct {
	// Origins is the allow-list of client origins.
	// Default: http://localhost:5173 (local dev client)
	Origins []string `mapstructure:"origins" yaml:"origins"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *CORSConfig) ApplyDefaults() {
	if len(c.Origins) == 0 {
		c.Origins = []string{"http://localhost:5173"}
	}
}

// Handlers groups the route handlers the router mounts.
type Handlers struct {
	CSRF      *handlers.CSRFHandler
	Health    *handlers.HealthHandler
	Upload    *handlers.UploadHandler
	Buildings *handlers.BuildingsHandler
	Models    *handlers.ModelsHandler
}

// RouterConfig bundles everything the router needs beyond the handlers.
type RouterConfig struct {
	Server    Config
	CORS      CORSConfig
	RateLimit middleware.RateLimitConfig
	HTTP      *metrics.HTTPMetrics
}

// NewRouter builds the chi router with the full edge-gateway policy chain.
//
// Policy order: HTTPS redirect, security headers, compression, rate limit,
// CORS, then per-route CSRF. Request ID, real IP, logging and panic recovery
// wrap the whole chain.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	cfg.Server.ApplyDefaults()
	cfg.CORS.ApplyDefaults()
	cfg.RateLimit.ApplyDefaults()

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(cfg.HTTP))
	r.Use(chimiddleware.Recoverer)

	if cfg.Server.IsProduction() {
		r.Use(middleware.HTTPSRedirect(cfg.Server.TrustedProxy))
	}
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Compression())

	globalLimiter := middleware.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)
	uploadLimiter := middleware.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.UploadMaxRequests)
	r.Use(globalLimiter.Handler)

	apiCORS := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.CSRFHeaderName, middleware.CSRFAltHeaderName},
		AllowCredentials: true,
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Model streaming carries its own permissive CORS and is exempt
		// from the request timeout: large objects take as long as they
		// take, bounded by the client connection.
		r.Get("/models/{filename}", h.Models.Stream)
		r.Options("/models/{filename}", h.Models.Preflight)

		r.Group(func(r chi.Router) {
			r.Use(apiCORS.Handler)
			r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

			r.Get("/csrf-token", h.CSRF.Issue)
			r.Get("/health", h.Health.Liveness)
			r.Get("/health/worker", h.Health.Worker)

			r.Route("/upload", func(r chi.Router) {
				r.Use(uploadLimiter.Handler)

				r.Group(func(r chi.Router) {
					r.Use(middleware.CSRFProtect)
					r.Post("/request", h.Upload.Request)
					r.Post("/complete", h.Upload.Complete)
				})
				r.Get("/status/{taskID}", h.Upload.Status)
			})

			r.Route("/buildings", func(r chi.Router) {
				r.Get("/", h.Buildings.List)
				r.Get("/{id}", h.Buildings.Get)
				r.With(middleware.CSRFProtect).Delete("/{id}", h.Buildings.Delete)
			})
		})
	})

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return strings.HasSuffix(path, "/health") || strings.Contains(path, "/health/")
}

// requestLogger logs request completion and feeds the HTTP metrics.
// Healthcheck requests log at DEBUG to reduce noise.
func requestLogger(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := chimiddleware.GetReqID(r.Context())

			m.RequestStarted()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			m.RequestFinished()
			m.RecordRequest(r.Method, r.URL.Path, ww.Status(), duration)

			logArgs := []any{
				logger.KeyRequestID, requestID,
				logger.KeyMethod, r.Method,
				logger.KeyPath, r.URL.Path,
				logger.KeyStatus, ww.Status(),
				logger.KeyRemote, r.RemoteAddr,
				logger.KeyDuration, duration.String(),
			}

			if isHealthPath(r.URL.Path) {
				logger.Debug("request completed", logArgs...)
			} else {
				logger.Info("request completed", logArgs...)
			}
		})
	}
}
