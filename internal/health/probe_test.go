package health

import (
	"context"
	"errors"
	"sync"
	"testing"
)

var (
	pass = Fixed(true, "")
	errA = errors.New("a")
	errB = errors.New("b")
)

func fail(err error) CheckFunc { return func(context.Context) error { return err } }

func TestFixed(t *testing.T) {
	if err := Fixed(true, "ignored").Check(context.Background()); err != nil {
		t.Fatalf("Fixed(true) = %v", err)
	}
	if err := Fixed(false, "db offline").Check(context.Background()); err == nil || err.Error() != "db offline" {
		t.Fatalf("Fixed(false, reason) = %v", err)
	}
	if err := Fixed(false, "").Check(context.Background()); err == nil || err.Error() != "unhealthy" {
		t.Fatalf("Fixed(false, \"\") = %v", err)
	}
}

func TestAll(t *testing.T) {
	tests := []struct {
		name  string
		probe CheckFunc
		want  error
	}{
		{"empty", All(), nil},
		{"all pass", All(pass, pass), nil},
		{"nil skipped", All(nil, pass, nil), nil},
		{"first failure wins", All(pass, fail(errA), fail(errB)), errA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.probe.Check(context.Background()); !errors.Is(got, tt.want) || (tt.want == nil && got != nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAll_ShortCircuits(t *testing.T) {
	called := false
	second := CheckFunc(func(context.Context) error { called = true; return nil })
	_ = All(fail(errA), second).Check(context.Background())
	if called {
		t.Fatal("probe after a failure should not run")
	}
}

func TestAny(t *testing.T) {
	if err := Any(fail(errA), pass).Check(context.Background()); err != nil {
		t.Fatalf("one passing: %v", err)
	}
	if err := Any(fail(errA), fail(errB)).Check(context.Background()); !errors.Is(err, errB) {
		t.Fatalf("all failing: got %v, want last error", err)
	}
	if err := Any(nil, nil).Check(context.Background()); err == nil {
		t.Fatal("no probes should fail")
	}
}

func TestNamed(t *testing.T) {
	err := Named("catalog", fail(errA)).Check(context.Background())
	if !errors.Is(err, errA) || err.Error() != "catalog: a" {
		t.Fatalf("got %v", err)
	}
	if err := Named("x", nil).Check(context.Background()); err != nil {
		t.Fatalf("nil probe: %v", err)
	}
}

func TestShutdownGate(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()
	if err := p.Check(context.Background()); err != nil || g.Draining() {
		t.Fatalf("new gate should be open: %v", err)
	}

	g.Set("")
	if err := p.Check(context.Background()); err == nil || err.Error() != "draining" {
		t.Fatalf("default reason: %v", err)
	}
	g.Set("shutting down")
	if err := p.Check(context.Background()); err == nil || err.Error() != "shutting down" {
		t.Fatalf("reason: %v", err)
	}

	g.Clear()
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("after Clear: %v", err)
	}
}

func TestShutdownGate_Concurrent(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); g.Set("x"); g.Clear() }()
		go func() { defer wg.Done(); _ = p.Check(context.Background()) }()
	}
	wg.Wait()
}
