package httpmw

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/jslearn-web/internal/log"
	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

const tracerName = "jslearn/httpmw"

// responseWriter records status and size, and opens a response.write child
// span on the first byte so slow clients on large PDF downloads show up in
// traces separately from handler time.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64

	ctx      context.Context
	reqStart time.Time

	writeSpan    trace.Span
	started      bool
	firstWriteAt time.Duration
	writeBlocked time.Duration
	writeErr     error
}

func (rw *responseWriter) ensureWriteSpan() {
	if rw.started {
		return
	}
	rw.started = true
	rw.firstWriteAt = time.Since(rw.reqStart)

	if !trace.SpanFromContext(rw.ctx).IsRecording() {
		return
	}
	_, rw.writeSpan = otel.Tracer(tracerName).Start(rw.ctx, "response.write",
		trace.WithAttributes(attribute.Float64("http.server.ttfb_seconds", rw.firstWriteAt.Seconds())),
	)
}

func (rw *responseWriter) finishWriteSpan() {
	if rw.writeSpan == nil {
		return
	}
	rw.writeSpan.SetAttributes(
		attribute.Int("http.response.status_code", rw.statusOrOK()),
		attribute.Int64("http.response.body.size", rw.bytes),
		attribute.Float64("http.server.write.block_seconds", rw.writeBlocked.Seconds()),
	)
	if rw.writeErr != nil {
		rw.writeSpan.RecordError(rw.writeErr)
		rw.writeSpan.SetStatus(codes.Error, rw.writeErr.Error())
	}
	rw.writeSpan.End()
}

func (rw *responseWriter) statusOrOK() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.ensureWriteSpan()
	if rw.status == 0 {
		rw.status = code
	}
	start := time.Now()
	rw.ResponseWriter.WriteHeader(code)
	rw.writeBlocked += time.Since(start)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.ensureWriteSpan()
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	start := time.Now()
	n, err := rw.ResponseWriter.Write(b)
	rw.writeBlocked += time.Since(start)
	rw.bytes += int64(n)
	if err != nil && rw.writeErr == nil {
		rw.writeErr = err
	}
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, xerrors.New("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// WithLogger stores a request-scoped logger in the context, carrying the
// request ID and resolved client address.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := RequestIDFromContext(ctx)
			clientAddr := ClientIPFromContext(ctx)

			peerAddr := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peerAddr); err == nil {
				peerAddr = host
			}
			scheme := schemeFromRequest(r)

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("request_id", reqID),
					attribute.String("client.address", clientAddr),
					attribute.String("network.peer.address", peerAddr),
					attribute.String("url.scheme", scheme),
				)
			}

			L := base.With(
				"request_id", reqID,
				"client.address", clientAddr,
				"network.peer.address", peerAddr,
				"server.address", r.Host,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, L)))
		})
	}
}

// AccessLog writes one "http request" line per request. Static assets and
// probes are skipped. Must run inside the chi router so http.route resolves.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, ctx: r.Context(), reqStart: start}

			next.ServeHTTP(rw, r)
			rw.finishWriteSpan()

			if skipAccessLog(r.URL.Path) {
				return
			}
			var reqBody int64
			if r.ContentLength > 0 {
				reqBody = r.ContentLength
			}
			log.FromContext(r.Context()).Info(r.Context(), "http request",
				"http.response.status_code", rw.statusOrOK(),
				"http.server.request.duration", time.Since(start).Seconds(),
				"http.server.ttfb", rw.firstWriteAt.Seconds(),
				"http.response.body.size", rw.bytes,
				"http.request.body.size", reqBody,
				"http.route", RoutePattern(r),
			)
		})
	}
}

func skipAccessLog(p string) bool {
	if p == "/-/ready" || p == "/-/healthy" {
		return true
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".webp", ".svg", ".ico", ".woff", ".woff2", ".map":
		return true
	}
	return false
}

func schemeFromRequest(r *http.Request) string {
	// ClientIP strips X-Forwarded-Proto unless the peer is a trusted proxy
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		s := strings.ToLower(strings.TrimSpace(strings.Split(xf, ",")[0]))
		if s == "http" || s == "https" {
			return s
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope tags the request logger and span with a handler name.
func Scope(handler string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = log.WithContext(ctx, log.FromContext(ctx).With("handler", handler))
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
