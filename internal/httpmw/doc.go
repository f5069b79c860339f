// Package httpmw provides the middleware of the public site listener.
//
// httpserver.NewHandler composes them outermost first: security headers,
// panic recovery, request ID, client IP, rate limiting, OTel tracing,
// catalog headers, trace headers, metrics, request-scoped logging, then the
// chi router with access logging inside it.
//
// Query strings and user agents are never logged.
package httpmw
