package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/hotspot/pkg/metrics"
)

// MetricsMiddleware records request counts, latency and error classes for
// one endpoint label.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		metrics.RecordHTTPRequest(endpoint, r.Method, strconv.Itoa(wrapped.statusCode), durationMs)

		if wrapped.statusCode >= http.StatusBadRequest {
			errorType, severity := errorClass(wrapped.statusCode)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
			metrics.RecordErrorByType(errorType, severity)
		}
	}
}

// CORSMiddleware allows browser clients on other origins.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorClass buckets a failed response for the error counters. The classes
// follow the codes the API writes in its error bodies.
func errorClass(statusCode int) (errorType, severity string) {
	switch statusCode {
	case http.StatusBadRequest:
		return "invalid_request", "low"
	case http.StatusUnauthorized:
		return "unauthorized", "medium"
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return "not_found", "low"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large", "medium"
	case http.StatusServiceUnavailable:
		return "unavailable", "high"
	}
	if statusCode >= http.StatusInternalServerError {
		return "server_error", "high"
	}
	return "client_error", "medium"
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
