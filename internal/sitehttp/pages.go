package sitehttp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/jslearn-web/internal/log"
	"github.com/keithlinneman/jslearn-web/internal/views"
)

func (rt *Routes) index(w http.ResponseWriter, r *http.Request) {
	rt.render(w, r, http.StatusOK, "index", views.Page{Modules: rt.cat.List()})
}

func (rt *Routes) module(w http.ResponseWriter, r *http.Request) {
	m, err := rt.lookup(chi.URLParam(r, "id"))
	if err != nil {
		rt.renderError(w, r, http.StatusNotFound, "Module not found")
		return
	}
	rt.render(w, r, http.StatusOK, "module", views.Page{Module: &m})
}

func (rt *Routes) demo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := rt.lookup(chi.URLParam(r, "id"))
	if err != nil {
		rt.renderError(w, r, http.StatusNotFound, "Module not found")
		return
	}

	if !m.Demo {
		rt.renderError(w, r, http.StatusNotFound, fmt.Sprintf(
			"Interactive demo for Module %d: %s is coming soon! Currently available: %s.",
			m.ID, m.Title, describeIDs(rt.cat.DemoIDs())))
		return
	}

	page := views.DemoPage(m.ID)
	body, err := rt.views.Render(page, rt.page(views.Page{Module: &m}))
	if errors.Is(err, views.ErrTemplateMissing) {
		rt.metrics.IncDemoRenderFailure("missing")
		log.FromContext(ctx).Warn(ctx, "demo template missing", "module_id", m.ID, "template", page)
		rt.renderError(w, r, http.StatusNotFound, fmt.Sprintf(
			"Demo template for Module %d is being prepared. Please check back later!", m.ID))
		return
	}
	if err != nil {
		rt.metrics.IncDemoRenderFailure("error")
		log.FromContext(ctx).Error(ctx, err, "demo render failed", "module_id", m.ID, "template", page)
		internalError(w)
		return
	}
	writeHTML(w, http.StatusOK, body)
}

// page fills the fields every layout needs.
func (rt *Routes) page(p views.Page) views.Page {
	p.CatalogVersion = rt.cat.Version()
	return p
}

func (rt *Routes) render(w http.ResponseWriter, r *http.Request, status int, name string, p views.Page) {
	body, err := rt.views.Render(name, rt.page(p))
	if err != nil {
		ctx := r.Context()
		log.FromContext(ctx).Error(ctx, err, "page render failed", "template", name)
		internalError(w)
		return
	}
	writeHTML(w, status, body)
}

func (rt *Routes) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	rt.render(w, r, status, "error", views.Page{Message: msg})
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if status != http.StatusOK {
		h.Set("Cache-Control", "no-store")
	} else {
		h.Set("Cache-Control", "no-cache")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func internalError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// describeIDs renders demo ids the way the site words them:
// "Module 4", "Modules 1 and 2", "Modules 1, 2, and 3".
func describeIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	switch len(parts) {
	case 0:
		return "none"
	case 1:
		return "Module " + parts[0]
	case 2:
		return "Modules " + parts[0] + " and " + parts[1]
	default:
		return "Modules " + strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}
