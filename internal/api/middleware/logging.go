package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/hutmovies/hutmovies/internal/metrics"
	"github.com/sirupsen/logrus"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging middleware logs HTTP requests and records them in the request metrics
func Logging(next http.Handler, m *metrics.Metrics, logger *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		m.HTTPRequest(r.Method, wrapped.statusCode, elapsed.Seconds())

		entry := logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": elapsed.Milliseconds(),
			"remote_addr": r.RemoteAddr,
		})
		// Players post events every few seconds
		if wrapped.statusCode < 400 && strings.HasSuffix(r.URL.Path, "/events") {
			entry.Debug("HTTP request")
			return
		}
		entry.Info("HTTP request")
	})
}
