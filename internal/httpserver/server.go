package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/jslearn-web/internal/health"
	"github.com/keithlinneman/jslearn-web/internal/httpmw"
	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

// NewHandler builds an HTTP handler with routes + middleware
// main() owns *http.Server so it can do graceful shutdown
func NewHandler(opts *Options) http.Handler {
	// chi router
	r := chi.NewRouter()

	// Compress text responses (HTML/CSS/JS/JSON/SVG)
	r.Use(middleware.Compress(5,
		"text/html",
		"text/css",
		"application/javascript",
		"text/javascript",
		"application/json",
		"image/svg+xml",
		"image/x-icon",
	))

	// Annotate logger and tracer with http.route from chi route pattern if trace is recording
	r.Use(httpmw.AnnotateHTTPRoute)

	// Access log middleware
	r.Use(httpmw.AccessLog())

	r.Use(httpmw.MaxBody(1024)) // every route is GET; nothing should send a body

	// HEAD falls through to the GET route of the same path
	r.Use(middleware.GetHead)

	// Register health routes at /-/healthy and /-/ready if probes provided
	if opts.Health != nil {
		r.Get("/-/healthy", health.HealthzHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Get("/-/ready", health.ReadyzHandler(opts.Readiness))
	}

	if opts.SiteRoutes != nil {
		opts.SiteRoutes(r)
	}

	// Anything unrouted goes to the static file server, which owns the 404 page
	if opts.StaticHandler != nil {
		r.NotFound(opts.StaticHandler.ServeHTTP)
		r.MethodNotAllowed(opts.StaticHandler.ServeHTTP)
	}

	// Decide which requests get traced
	shouldTrace := func(p string) bool {
		switch p {
		case "/favicon.ico", "/favicon.svg", "/robots.txt", "/-/healthy", "/-/ready":
			return false
		}
		// pdf downloads are traced, page assets are not
		switch strings.ToLower(path.Ext(p)) {
		case ".css", ".js", ".png", ".jpg", ".jpeg", ".webp", ".svg", ".ico", ".woff", ".woff2", ".map":
			return false
		}
		return true
	}

	tracing := otelhttp.NewMiddleware(
		"http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTrace(r.URL.Path)
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			// AnnotateHTTPRoute will rename the span later to the final route pattern
			return r.Method + " " + r.URL.Path
		}),
		// WithPublicEndpointFn is the replacement for WithPublicEndpoint()
		otelhttp.WithPublicEndpointFn(func(r *http.Request) bool { return true }),
	)

	var recoverMW, catalogMW func(http.Handler) http.Handler
	if opts.UseRecoverMW {
		recoverMW = httpmw.Recover(opts.Logger, opts.OnPanic)
	}
	if opts.CatalogInfo != nil {
		catalogMW = httpmw.CatalogHeaders(opts.CatalogInfo)
	}

	// Outermost first. nil entries (disabled features) are skipped.
	return httpmw.Chain(r,
		// on every response, including panics
		httpmw.SecurityHeaders,
		recoverMW,
		// outer so everything downstream sees it
		httpmw.RequestID("X-Request-Id"),
		// must run before the rate limiter and logging
		httpmw.ClientIPWithOptions(opts.ClientIPOpts),
		opts.RateLimitMW,
		tracing,
		catalogMW,
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		opts.MetricsMW,
		// inner so it sees trace_id, etc
		httpmw.WithLogger(opts.Logger),
	)
}

// Server timeout defaults. The write timeout covers a whole PDF download.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 120 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20 // 1 MB
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start the site listener.
// Returns stop(ctx) for graceful shutdown
func Start(ctx context.Context, opts *Options) (func(context.Context) error, error) {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf(":%d", port)

	handler := NewHandler(opts)
	srv := NewServer(addr, handler)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "could not listen for site port on addr=%v", addr)
	}

	go func() {
		opts.Logger.Info(ctx, "http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			opts.Logger.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			opts.Logger.Info(sctx, "http server shutting down")
			// in-flight downloads get the same budget as the write timeout
			c, cancel := context.WithTimeout(sctx, DefaultWriteTimeout)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
