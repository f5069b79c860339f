package httpmw

import (
	"context"
	"net/http"
	"net/netip"
	"strings"
)

type clientIPKey struct{}

// ClientIPOptions configures client IP extraction.
type ClientIPOptions struct {
	// TrustedHops is the number of reverse proxies in front of the server.
	// 0 ignores X-Forwarded-For, 1 takes the rightmost entry (single load
	// balancer), 2 the second from the end (CDN then load balancer), and so on.
	TrustedHops int
}

// ClientIP resolves the client address with no trusted proxies.
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

// ClientIPWithOptions stores the resolved client address in the request
// context. Forwarded headers are stripped whenever they are not trusted so
// later handlers cannot read them by accident.
func ClientIPWithOptions(opts ClientIPOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientAddr(r, opts.TrustedHops)
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}

func resolveClientAddr(r *http.Request, trustedHops int) string {
	if r.RemoteAddr == "" {
		return "0.0.0.0"
	}
	ap, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		// not host:port, maybe a bare address from a test or a unix socket
		if a, aerr := netip.ParseAddr(r.RemoteAddr); aerr == nil {
			stripForwarded(r)
			return a.Unmap().String()
		}
		stripForwarded(r)
		return "0.0.0.0"
	}
	peer := ap.Addr().Unmap()

	// forwarded headers only count when the peer is our own infrastructure
	if (!peer.IsPrivate() && !peer.IsLoopback()) || trustedHops <= 0 {
		stripForwarded(r)
		return peer.String()
	}

	xf := r.Header.Get("X-Forwarded-For")
	if xf == "" {
		return peer.String()
	}
	parts := strings.Split(xf, ",")
	idx := len(parts) - trustedHops
	if idx < 0 {
		// fewer hops than configured proxies, fail closed
		stripForwarded(r)
		return peer.String()
	}
	cand, err := netip.ParseAddr(strings.TrimSpace(parts[idx]))
	if err != nil {
		return peer.String()
	}
	return cand.Unmap().String()
}

func stripForwarded(r *http.Request) {
	r.Header.Del("X-Forwarded-For")
	r.Header.Del("X-Forwarded-Proto")
}

func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}
