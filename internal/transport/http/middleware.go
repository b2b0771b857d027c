package httptransport

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/intensity/internal/observability"
)

const allowedHeaders = "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization"

// Cors allows the configured origin. "*" allows any origin.
func Cors(origin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested := r.Header.Get("Origin")
			switch {
			case origin == "" || origin == "*":
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case requested == origin:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LogRequest logs each request once it completes and counts it by status class.
func LogRequest(logger logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			observability.RecordRequest(r.Method, rw.status)
			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rw.status,
				"elapsed_ms": time.Since(start).Milliseconds(),
				"user_agent": r.UserAgent(),
			}).Debug("request served")
		})
	}
}

// PanicRecovery converts a handler panic into a 500 response.
func PanicRecovery(logger logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("http: panic serving %s: %v\n%s", req.URL.Path, r, debug.Stack())
					observability.RecordPanic()
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"status":"error","message":"internal server error","error_code":"server_error"}`))
				}
			}()

			next.ServeHTTP(w, req)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
