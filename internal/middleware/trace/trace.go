// Package trace logs and measures every HTTP request.
package trace

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "tripledger/internal/log"
	"tripledger/internal/metrics"
)

// unmatchedRoute labels requests no route matched, keeping metric
// cardinality bounded.
const unmatchedRoute = "unmatched"

type Middleware struct {
	logger    *applog.Logger
	metrics   *metrics.Metrics
	extractIP func(*http.Request) string
}

// NewMiddleware runs after chi's RequestID middleware so the ID is known.
func NewMiddleware(logger *applog.Logger, m *metrics.Metrics, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		logger:    logger,
		metrics:   m,
		extractIP: extractIP,
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		logger := m.logger
		if id := middleware.GetReqID(r.Context()); id != "" {
			logger = logger.With(applog.FieldRequestID, id)
		}
		ctx := applog.NewContext(r.Context(), logger)
		r = r.WithContext(ctx)

		access := applog.NewStructuredLogger(logger)
		access.LogHTTPStart(ctx, r, clientIP)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		m.metrics.ObserveHTTP(r.Method, routePattern(r), status, elapsed)
		access.LogHTTPEnd(ctx, r, status, elapsed.Milliseconds(), clientIP)
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}
