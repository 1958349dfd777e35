package api

import (
	"net/http"
	"time"

	"github.com/comigor/echoal-go/internal/logger"
)

// slowRequestThreshold is the duration above which requests are logged at WARN level.
// Chat requests wait on the model, so it is generous.
const slowRequestThreshold = 5 * time.Second

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every request with its status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		}
		switch {
		case rec.status >= http.StatusInternalServerError:
			logger.L.Error("request failed", attrs...)
		case duration > slowRequestThreshold:
			logger.L.Warn("slow request", attrs...)
		default:
			logger.L.Debug("request completed", attrs...)
		}
	})
}
