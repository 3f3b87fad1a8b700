package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

const requestIDHeader = "X-Request-ID"

// Middleware wraps every route with request ids, access logging, metrics
// and panic recovery.
type Middleware struct {
	responder
}

func NewMiddleware(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Middleware {
	return &Middleware{responder{logger: logger, metrics: metricsCollector}}
}

// RequestID reuses an incoming X-Request-ID or mints a new one, stores it
// in the context for the logger and echoes it on the response.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := logging.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Instrument records request count, latency and in-flight requests under
// the route template, and writes one access log line per request.
func (m *Middleware) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := routeTemplate(r)

		m.metrics.ActiveConnections.Inc()
		defer m.metrics.ActiveConnections.Dec()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		m.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
		m.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(wrapper.statusCode))

		m.logger.Info(r.Context(), "[API_REQUEST] Request handled", logging.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"endpoint":    endpoint,
			"status":      wrapper.statusCode,
			"duration_ms": duration.Milliseconds(),
			"remote_addr": r.RemoteAddr,
		})
	})
}

// Recover turns a panic in a handler into a generic 500.
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.Error(r.Context(), "[API_PANIC] Handler panicked", logging.Fields{
					"path":  r.URL.Path,
					"panic": rec,
				}, nil)
				m.sendError(w, routeTemplate(r), "panic", internalErrorMessage, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
