package health

import "net/http"

// HealthzHandler answers liveness checks: 200 "ok" when p passes, 503 with
// the failure reason otherwise. A nil probe always passes.
func HealthzHandler(p Probe) http.HandlerFunc { return probeHandler(p, "ok\n") }

// ReadyzHandler answers readiness checks the same way with a "ready" body.
func ReadyzHandler(p Probe) http.HandlerFunc { return probeHandler(p, "ready\n") }

func probeHandler(p Probe, okBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		if p != nil {
			if err := p.Check(r.Context()); err != nil {
				http.Error(w, err.Error()+"\n", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(okBody))
	}
}
