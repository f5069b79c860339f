package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keithlinneman/jslearn-web/internal/catalog"
	"github.com/keithlinneman/jslearn-web/internal/health"
	"github.com/keithlinneman/jslearn-web/internal/httpserver"
	"github.com/keithlinneman/jslearn-web/internal/log"
	"github.com/keithlinneman/jslearn-web/internal/metrics"
	"github.com/keithlinneman/jslearn-web/internal/pdfstore"
	"github.com/keithlinneman/jslearn-web/internal/ratelimit"
	"github.com/keithlinneman/jslearn-web/internal/sitehandler"
	"github.com/keithlinneman/jslearn-web/internal/sitehttp"
	"github.com/keithlinneman/jslearn-web/internal/views"
	"github.com/keithlinneman/jslearn-web/internal/webassets"
)

// newSite wires the full site handler the way main does, over a temp
// modules directory.
func newSite(t *testing.T, rlOpts ...ratelimit.Option) (http.Handler, string, *metrics.ServerMetrics) {
	t.Helper()

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	v, err := views.New(webassets.TemplatesFS())
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	dir := t.TempDir()
	m := metrics.New()

	routes, err := sitehttp.New(sitehttp.Options{
		Catalog: cat,
		Views:   v,
		Store:   pdfstore.NewDiskStore(dir),
		Metrics: m,
	})
	if err != nil {
		t.Fatalf("sitehttp: %v", err)
	}
	static, err := sitehandler.New(sitehandler.Options{PublicFS: webassets.PublicFS()})
	if err != nil {
		t.Fatalf("sitehandler: %v", err)
	}

	opts := &httpserver.Options{
		Logger:        log.Nop(),
		UseRecoverMW:  true,
		OnPanic:       m.IncHttpPanic,
		MetricsMW:     m.Middleware,
		Health:        health.Fixed(true, ""),
		Readiness:     health.Fixed(true, ""),
		SiteRoutes:    routes.RegisterRoutes,
		StaticHandler: static,
		CatalogInfo:   cat,
	}
	if len(rlOpts) > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		opts.RateLimitMW = ratelimit.New(ctx, rlOpts...).Middleware
	}
	return httpserver.NewHandler(opts), dir, m
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIntegration_Pages(t *testing.T) {
	h, _, _ := newSite(t)

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/", http.StatusOK, "Module 3: Functions"},
		{"/module/3", http.StatusOK, "Arrow Functions"},
		{"/module/11", http.StatusNotFound, "Module not found"},
		{"/demo/1", http.StatusOK, "Interactive demo"},
		{"/demo/10", http.StatusNotFound, "Final Project - University Management System is coming soon!"},
		{"/css/style.css", http.StatusOK, ""},
		{"/js/main.js", http.StatusOK, ""},
		{"/no/such/page", http.StatusNotFound, "Page not found"},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.path)
		if rec.Code != tt.status {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.status)
			continue
		}
		if tt.want != "" && !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("GET %s body missing %q", tt.path, tt.want)
		}
		if rec.Header().Get("Content-Security-Policy") == "" {
			t.Errorf("GET %s missing security headers", tt.path)
		}
		if rec.Header().Get("X-Catalog-Version") != "2025.1" {
			t.Errorf("GET %s X-Catalog-Version = %q", tt.path, rec.Header().Get("X-Catalog-Version"))
		}
	}
}

func TestIntegration_MethodNotAllowed(t *testing.T) {
	h, _, _ := newSite(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/download/1", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestIntegration_Download(t *testing.T) {
	h, dir, m := newSite(t)
	name := "Module 3_ Functions Presentation.pdf"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := get(t, h, "/download/3")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, name) {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	rec = get(t, h, "/download/4")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"File not found"`) {
		t.Fatalf("missing file: %d %q", rec.Code, rec.Body.String())
	}
	rec = get(t, h, "/download/99")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"Module not found"`) {
		t.Fatalf("unknown module: %d %q", rec.Code, rec.Body.String())
	}

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, want := range []string{
		`jslearn_downloads_total{result="ok"} 1`,
		`jslearn_downloads_total{result="file_missing"} 1`,
		`jslearn_downloads_total{result="unknown_module"} 1`,
		`route="/download/{id}"`,
	} {
		if !strings.Contains(scrape.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestIntegration_API(t *testing.T) {
	h, _, _ := newSite(t)

	rec := get(t, h, "/api/modules")
	var mods []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &mods); err != nil || len(mods) != 10 {
		t.Fatalf("api/modules: len=%d err=%v", len(mods), err)
	}
	if _, leaked := mods[0]["demo"]; leaked {
		t.Fatal("demo flag should not be part of the API payload")
	}

	rec = get(t, h, "/api/module/3")
	var mod map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &mod); err != nil {
		t.Fatal(err)
	}
	if mod["title"] != "Functions" || mod["filename"] != "Module 3_ Functions Presentation.pdf" {
		t.Fatalf("module 3 = %v", mod)
	}
}

func TestIntegration_RateLimit(t *testing.T) {
	var denied int
	h, _, _ := newSite(t, ratelimit.WithRate(0.001, 2), ratelimit.WithOnDenied(func(string) { denied++ }))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, h, "/api/modules").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	if denied != 1 {
		t.Fatalf("denied = %d", denied)
	}
}

func TestIntegration_HeadFollowsGetRoutes(t *testing.T) {
	h, dir, _ := newSite(t)
	name := "Module 3_ Functions Presentation.pdf"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4 head"), 0o644); err != nil {
		t.Fatal(err)
	}

	head := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, path, nil))
		return rec
	}

	rec := head("/download/3")
	if rec.Code != http.StatusOK {
		t.Fatalf("HEAD /download/3 status = %d, Content-Type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, name) {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("HEAD body = %q", rec.Body.String())
	}

	for _, path := range []string{"/", "/module/3", "/demo/1", "/api/modules", "/api/module/3", "/css/style.css"} {
		if rec := head(path); rec.Code != http.StatusOK {
			t.Errorf("HEAD %s status = %d", path, rec.Code)
		}
	}
	for _, path := range []string{"/module/99", "/download/99", "/no/such/page"} {
		if rec := head(path); rec.Code != http.StatusNotFound {
			t.Errorf("HEAD %s status = %d, want 404", path, rec.Code)
		}
	}
}
