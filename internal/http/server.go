// Package http exposes the trip ledger as a JSON API over chi.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tripledger/internal/auth"
	applog "tripledger/internal/log"
	"tripledger/internal/metrics"
	"tripledger/internal/middleware/ratelimit"
	"tripledger/internal/middleware/security"
	"tripledger/internal/middleware/trace"
	"tripledger/internal/services"
	"tripledger/internal/storage"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Store      storage.Store
	Auth       *auth.PasswordAuthenticator
	Tokens     *auth.JWTManager
	Categories *services.CategoryService
	Expenses   *services.ExpenseService
	Trips      *services.TripService
	Dashboard  *services.DashboardService
	Metrics    *metrics.Metrics
	Logger     *applog.Logger
}

type Options struct {
	Addr               string
	CORSAllowedOrigins []string
	AuthRateLimit      int // Register and login attempts per client per minute
}

type Server struct {
	http.Server

	deps     Deps
	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		deps:     deps,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AuthRateLimit}),
		detector: security.NewDetector(),
		started:  time.Now(),
	}

	logger := deps.Logger
	s.detector.OnSuspicious(func(r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
			applog.FieldClientIP, s.detector.ClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldUserAgent, r.UserAgent())
	})

	s.Handler = s.routes(opts, logger)
	return s
}

func (s *Server) routes(opts Options, logger *applog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(trace.NewMiddleware(logger, s.deps.Metrics, s.detector.ClientIP).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.detector.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.limiter.Middleware(s.detector.ClientIP, rateLimited))
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
			})
			r.Group(func(r chi.Router) {
				r.Use(requireAuth(s.deps.Tokens))
				r.Get("/profile", s.handleGetProfile)
				r.Put("/profile", s.handleUpdateProfile)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.deps.Tokens))

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", s.handleListCategories)
				r.Post("/", s.handleCreateCategory)
				r.Put("/{id}", s.handleUpdateCategory)
				r.Delete("/{id}", s.handleDeleteCategory)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", s.handleListExpenses)
				r.Post("/", s.handleCreateExpense)
				r.Get("/{id}", s.handleGetExpense)
				r.Put("/{id}", s.handleUpdateExpense)
				r.Delete("/{id}", s.handleDeleteExpense)
			})

			r.Route("/trips", func(r chi.Router) {
				r.Get("/", s.handleListTrips)
				r.Post("/", s.handleCreateTrip)
				r.Get("/{id}", s.handleGetTrip)
				r.Put("/{id}", s.handleUpdateTrip)
				r.Put("/{id}/expenses", s.handleReconcileTrip)
				r.Delete("/{id}", s.handleDeleteTrip)
			})

			r.Get("/dashboard/summary", s.handleSummary)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	})
	return r
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded", applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests, please try again later"})
}

// Shutdown stops background work and then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	if err := s.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	slog.InfoContext(ctx, "HTTP server stopped")
	return nil
}
