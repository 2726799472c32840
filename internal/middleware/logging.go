package middleware

import (
	"net/http"
	"time"

	"github.com/kvistad/russekort/internal/logging"
)

// RequestLogger logs one entry per request with method, path, status and
// duration. Severity follows the response status: 5xx logs ERROR, 4xx
// logs WARN, everything else INFO.
type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.Default
	}
	return &RequestLogger{logger: logger}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

func (rl *RequestLogger) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   GetClientIP(r),
		}
		if q := r.URL.RawQuery; q != "" {
			fields["query"] = q
		}

		switch {
		case rec.status >= http.StatusInternalServerError:
			rl.logger.Error("request", fields)
		case rec.status >= http.StatusBadRequest:
			rl.logger.Warn("request", fields)
		default:
			rl.logger.Info("request", fields)
		}
	})
}
