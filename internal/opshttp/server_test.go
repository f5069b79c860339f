package opshttp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/keithlinneman/jslearn-web/internal/health"
	"github.com/keithlinneman/jslearn-web/internal/log"
)

func getFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func get(t *testing.T, h http.Handler, path, remote string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = remote
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_Routes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jslearn_downloads_total 0\n"))
	})
	h := NewHandler(log.Nop(), &Options{
		Metrics:   metrics,
		Health:    health.Fixed(true, ""),
		Readiness: health.Fixed(false, "catalog not loaded"),
	})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/-/healthy", http.StatusOK, "ok"},
		{"/-/ready", http.StatusServiceUnavailable, "catalog not loaded"},
		{"/metrics", http.StatusOK, "jslearn_downloads_total"},
		{"/debug/pprof/", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.path, "127.0.0.1:5000")
		if rec.Code != tt.wantCode {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, tt.wantCode)
		}
		if !strings.Contains(rec.Body.String(), tt.wantBody) {
			t.Errorf("%s: body = %q, want %q", tt.path, rec.Body.String(), tt.wantBody)
		}
	}
}

func TestNewHandler_PprofEnabled(t *testing.T) {
	h := NewHandler(log.Nop(), &Options{EnablePprof: true})
	rec := get(t, h, "/debug/pprof/", "127.0.0.1:5000")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestNewHandler_AllowPublic(t *testing.T) {
	h := NewHandler(log.Nop(), &Options{AllowPublic: true})
	if rec := get(t, h, "/-/healthy", "8.8.8.8:1234"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireNonPublicNetwork(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := requireNonPublicNetwork(log.Nop(), inner)

	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:12345", http.StatusOK},
		{"[::1]:12345", http.StatusOK},
		{"10.0.0.1:8080", http.StatusOK},
		{"172.16.0.1:8080", http.StatusOK},
		{"192.168.1.1:8080", http.StatusOK},
		{"169.254.1.1:8080", http.StatusOK},
		{"[::ffff:10.0.0.1]:12345", http.StatusOK},
		{"8.8.8.8:12345", http.StatusForbidden},
		{"203.0.113.1:80", http.StatusForbidden},
		{"[::ffff:8.8.8.8]:12345", http.StatusForbidden},
		{"not-an-address", http.StatusForbidden},
		{"", http.StatusForbidden},
		{"999.999.999.999:8080", http.StatusForbidden},
	}
	for _, tt := range tests {
		if got := get(t, h, "/metrics", tt.remote).Code; got != tt.want {
			t.Errorf("%q: status = %d, want %d", tt.remote, got, tt.want)
		}
	}
}

func TestStart_ServesAndStops(t *testing.T) {
	port := getFreePort(t)
	ctx := context.Background()
	stop, err := Start(ctx, log.Nop(), &Options{Port: port})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/-/healthy", port))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("status=%d body=%q", resp.StatusCode, body)
	}

	if err := stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// second stop is a no-op
	if err := stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestStart_PortConflict(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	if _, err := Start(context.Background(), log.Nop(), &Options{Port: port}); err == nil {
		t.Fatal("expected listen error on busy port")
	}
}
