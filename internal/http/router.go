package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/velstore/storefront-edge/internal/admin"
	"github.com/velstore/storefront-edge/internal/config"
	"github.com/velstore/storefront-edge/internal/cspreport"
	"github.com/velstore/storefront-edge/internal/httputil"
	"github.com/velstore/storefront-edge/internal/logging"
	"github.com/velstore/storefront-edge/internal/metrics"
	"github.com/velstore/storefront-edge/internal/policy"
)

// RouterDeps carries the handlers the router wires together
type RouterDeps struct {
	Policy     []policy.RouteBucket
	Reports    *cspreport.Handler
	Admin      *admin.Handler    // nil when the admin API is disabled
	AdminAuth  *admin.Middleware // nil when the admin API is disabled
	ImageProxy http.Handler
	Upstream   http.Handler
	Logger     *logging.Logger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(HeaderPolicy(deps.Policy))          // Route-bucketed security headers
	r.Use(middleware.Recoverer)               // Recover from panics
	r.Use(middleware.RequestID)               // Add request ID
	r.Use(middleware.RealIP)                  // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(deps.Logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))             // Compress responses

	// Everything without an explicit route is the storefront. Registered
	// before the subrouters so they inherit it for their own unmatched
	// paths.
	r.NotFound(deps.Upstream.ServeHTTP)

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/csp-report", deps.Reports.Submit)
		r.Get("/config", handlePublicConfig(cfg))

		if deps.Admin != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Post("/login", deps.Admin.Login)

				r.Group(func(r chi.Router) {
					r.Use(deps.AdminAuth.RequireAdmin)
					r.Get("/csp-reports", deps.Reports.List)
				})
			})
		}
	})

	r.Method(http.MethodGet, "/_next/image", deps.ImageProxy)

	// Swagger UI - only in development
	if !cfg.App.IsProduction() {
		deps.Logger.Info("swagger UI enabled at /swagger/")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the gateway is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "edge gateway is running"}, http.StatusOK)
}

// PublicConfig is the configuration exposed to the served frontend
type PublicConfig struct {
	AppURL string `json:"app_url"`
	APIURL string `json:"api_url"`
}

// handlePublicConfig passes NEXT_PUBLIC_* values through to the frontend.
// @Summary      Public configuration
// @Description  Returns the public URLs the frontend is served with
// @Tags         config
// @Produce      json
// @Success      200 {object} PublicConfig
// @Router       /api/config [get]
func handlePublicConfig(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, PublicConfig{
			AppURL: cfg.App.PublicAppURL,
			APIURL: cfg.App.PublicAPIURL,
		}, http.StatusOK)
	}
}
