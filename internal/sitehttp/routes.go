// Package sitehttp holds the course routes: the HTML pages, PDF downloads
// and the JSON API. Every handler reads the immutable catalog passed in
// Options, so the package keeps no state of its own.
package sitehttp

import (
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/jslearn-web/internal/catalog"
	"github.com/keithlinneman/jslearn-web/internal/httpmw"
	"github.com/keithlinneman/jslearn-web/internal/pdfstore"
	"github.com/keithlinneman/jslearn-web/internal/views"
	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

// Metrics receives download and demo outcomes. *metrics.ServerMetrics
// satisfies it.
type Metrics interface {
	IncDownload(result string)
	AddDownloadBytes(n int64)
	IncDemoRenderFailure(reason string)
}

type Options struct {
	Catalog *catalog.Registry
	Views   *views.Renderer
	Store   pdfstore.Store
	Metrics Metrics // optional
}

type Routes struct {
	cat     *catalog.Registry
	views   *views.Renderer
	store   pdfstore.Store
	metrics Metrics
}

func New(opts Options) (*Routes, error) {
	if opts.Catalog == nil {
		return nil, xerrors.New("sitehttp: Catalog is nil")
	}
	if opts.Views == nil {
		return nil, xerrors.New("sitehttp: Views is nil")
	}
	if opts.Store == nil {
		return nil, xerrors.New("sitehttp: Store is nil")
	}
	m := opts.Metrics
	if m == nil {
		m = nopMetrics{}
	}
	return &Routes{cat: opts.Catalog, views: opts.Views, store: opts.Store, metrics: m}, nil
}

// RegisterRoutes mounts every course route on r. Unmatched paths are left to
// the router's NotFound handler.
func (rt *Routes) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httpmw.Scope("pages"))
		r.Get("/", rt.index)
		r.Get("/module/{id}", rt.module)
		r.Get("/demo/{id}", rt.demo)
	})
	r.With(httpmw.Scope("download")).Get("/download/{id}", rt.download)
	r.Route("/api", func(r chi.Router) {
		r.Use(httpmw.Scope("api"))
		r.Get("/modules", rt.apiModules)
		r.Get("/module/{id}", rt.apiModule)
	})
}

// parseID accepts only plain base-10 digits. Anything else, signs included,
// cannot name a module and is reported as not found by the callers.
func parseID(s string) (int, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}

// lookup resolves the {id} URL param to a module.
func (rt *Routes) lookup(idParam string) (catalog.Module, error) {
	id, ok := parseID(idParam)
	if !ok {
		return catalog.Module{}, catalog.ErrNotFound
	}
	return rt.cat.Get(id)
}

type nopMetrics struct{}

func (nopMetrics) IncDownload(string)          {}
func (nopMetrics) AddDownloadBytes(int64)      {}
func (nopMetrics) IncDemoRenderFailure(string) {}
