// Package ratelimit is per-IP token bucket middleware for the public site.
//
// State is in memory and per instance. It blunts a single client hammering
// PDF downloads or demo pages; distributed floods belong to an upstream WAF
// or CDN. One log line is emitted per offender (OnFirstDenied) while every
// denial can feed a counter (OnDenied).
package ratelimit
