package opshttp

import (
	"net/http"

	"github.com/keithlinneman/jslearn-web/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	// AllowPublic disables the private-network guard, for local runs behind NAT.
	AllowPublic bool
}
