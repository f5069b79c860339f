package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/jslearn-web/internal/health"
	"github.com/keithlinneman/jslearn-web/internal/httpmw"
	"github.com/keithlinneman/jslearn-web/internal/log"
)

// DefaultPort is the site listener port when Options.Port is zero.
const DefaultPort = 3000

type Options struct {
	Logger log.Logger
	Port   int

	UseRecoverMW bool
	OnPanic      func()

	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions

	Health    health.Probe
	Readiness health.Probe

	// SiteRoutes registers the page, download and API routes.
	SiteRoutes func(chi.Router)
	// StaticHandler serves every path no route matched (assets, 404 page).
	StaticHandler http.Handler

	// Sets X-Catalog-Version and X-Catalog-Hash when non-nil
	CatalogInfo httpmw.CatalogInfo
}
