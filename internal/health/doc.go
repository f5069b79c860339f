// Package health provides composable probes and the HTTP handlers behind the
// liveness and readiness endpoints.
//
// Probes combine with [All] (AND), [Any] (OR) and [Fixed] (static);
// [CheckFunc] adapts a plain function.
//
// [ShutdownGate] fails readiness as soon as drain starts, so load balancers
// stop routing new requests before the listeners shut down.
package health
