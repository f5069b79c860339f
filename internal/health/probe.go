package health

import (
	"context"
	"sync/atomic"

	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

// Probe is evaluated at request time. nil means OK, an error fails the
// check with err.Error() as the reason.
type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed always passes, or always fails with reason ("unhealthy" if empty).
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	return func(context.Context) error { return xerrors.New(reason) }
}

// Named prefixes failures of p with name, so a composed readiness check
// reports which dependency failed.
func Named(name string, p Probe) CheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return nil
		}
		if err := p.Check(ctx); err != nil {
			return xerrors.Wrap(err, name)
		}
		return nil
	}
}

// All passes only if every probe passes and returns the first error.
// nil probes are skipped.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Any passes if at least one probe passes, otherwise returns the last error.
func Any(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		var last error
		for _, p := range ps {
			if p == nil {
				continue
			}
			err := p.Check(ctx)
			if err == nil {
				return nil
			}
			last = err
		}
		if last != nil {
			return last
		}
		return xerrors.New("no healthy probes")
	}
}

// ShutdownGate flips readiness to false during drain.
type ShutdownGate struct {
	draining atomic.Bool
	reason   atomic.Value
}

func (g *ShutdownGate) Set(reason string) {
	g.reason.Store(reason)
	g.draining.Store(true)
}

func (g *ShutdownGate) Clear() {
	g.draining.Store(false)
	g.reason.Store("")
}

func (g *ShutdownGate) Draining() bool { return g.draining.Load() }

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if !g.draining.Load() {
			return nil
		}
		r, _ := g.reason.Load().(string)
		if r == "" {
			r = "draining"
		}
		return xerrors.New(r)
	}
}
