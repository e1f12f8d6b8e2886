package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MetricsMiddleware counts host API requests in llmhub_requests_total
// (method, status class, route) and times them in
// llmhub_request_duration_seconds (method, route).
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := RouteLabel(r.URL.Path)
		RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(sw.status/100)+"xx", route).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RouteLabel maps a request path to its route pattern, keeping path
// parameters out of the label values.
func RouteLabel(path string) string {
	switch {
	case path == "/v1/node", path == "/v1/execute", path == "/v1/executions",
		path == "/healthz", path == "/metrics", path == "/mcp":
		return path
	case strings.HasPrefix(path, "/v1/options/"):
		return "/v1/options/{method}"
	case strings.HasPrefix(path, "/v1/executions/"):
		return "/v1/executions/{id}"
	default:
		return "other"
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

// WriteHeader records the first status written.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush keeps streamed MCP responses flowing.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
