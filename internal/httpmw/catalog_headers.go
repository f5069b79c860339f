package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CatalogInfo identifies the module catalog being served.
type CatalogInfo interface {
	ContentVersion() string
	ContentHash() string
}

const shortHashLen = 12

// CatalogHeaders sets X-Catalog-Version and X-Catalog-Hash (shortened) on
// every response and tags the active span with the full values.
func CatalogHeaders(info CatalogInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, h := info.ContentVersion(), info.ContentHash()
			if v != "" {
				w.Header().Set("X-Catalog-Version", v)
			}
			if h != "" {
				short := h
				if len(short) > shortHashLen {
					short = short[:shortHashLen]
				}
				w.Header().Set("X-Catalog-Hash", short)
			}
			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("catalog.version", v),
					attribute.String("catalog.hash", h),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
