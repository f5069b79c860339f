package httpmw

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RoutePattern returns the matched chi pattern, or the raw path when no
// route matched (404s, static files).
func RoutePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// AnnotateHTTPRoute renames the server span to "METHOD /route/{id}" once chi
// has matched, keeping span names low-cardinality.
func AnnotateHTTPRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		span := trace.SpanFromContext(r.Context())
		if !span.IsRecording() {
			return
		}
		pat := RoutePattern(r)
		span.SetAttributes(attribute.String("http.route", pat))
		span.SetName(r.Method + " " + pat)
	})
}
