package xerrors

import (
	"errors"
	"io/fs"
	"runtime"
	"strings"
	"testing"
)

var errSentinel = errors.New("sentinel")

func stackContains(pcs []uintptr, substr string) bool {
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if strings.Contains(fr.Function, substr) {
			return true
		}
		if !more {
			return false
		}
	}
}

func TestNew_CapturesCaller(t *testing.T) {
	err := New("catalog empty")
	if err.Error() != "catalog empty" {
		t.Fatalf("Error() = %q", err.Error())
	}
	var ws *withStack
	if !errors.As(err, &ws) {
		t.Fatal("New should carry a stack")
	}
	if !stackContains(ws.StackPCs(), "TestNew_CapturesCaller") {
		t.Fatal("stack does not start at the caller")
	}
	if stackContains(ws.StackPCs(), "withStackSkip") {
		t.Fatal("stack includes xerrors internals")
	}
}

func TestNewf(t *testing.T) {
	if got := Newf("module %d missing", 3).Error(); got != "module 3 missing" {
		t.Fatalf("got %q", got)
	}
}

func TestWrap(t *testing.T) {
	err := Wrapf(errSentinel, "open %s", "Module1.pdf")
	if err.Error() != "open Module1.pdf: sentinel" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, errSentinel) {
		t.Fatal("errors.Is lost through Wrapf")
	}
	w := err.(*wrap)
	fn := runtime.FuncForPC(w.PC())
	if fn == nil || !strings.Contains(fn.Name(), "TestWrap") {
		t.Fatalf("PC points at %v, want caller", fn)
	}
	if Wrap(nil, "x") != nil || Wrapf(nil, "x") != nil {
		t.Fatal("wrapping nil must return nil")
	}
}

func TestWrap_ErrorsAs(t *testing.T) {
	pe := &fs.PathError{Op: "open", Path: "Modules/x.pdf", Err: fs.ErrNotExist}
	err := Wrap(WithStack(pe), "download")
	var got *fs.PathError
	if !errors.As(err, &got) || got != pe {
		t.Fatal("errors.As lost through wrappers")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("errors.Is lost through wrappers")
	}
}

func TestEnsureTrace(t *testing.T) {
	if EnsureTrace(nil) != nil {
		t.Fatal("nil in, nil out")
	}

	plain := errors.New("plain")
	traced := EnsureTrace(plain)
	if _, ok := traced.(*withStack); !ok {
		t.Fatalf("EnsureTrace(plain) = %T, want stack", traced)
	}

	already := New("stacked")
	if EnsureTrace(already) != already {
		t.Fatal("already-stacked error should be returned unchanged")
	}
	wrapped := Wrap(already, "ctx")
	if EnsureTrace(wrapped) != wrapped {
		t.Fatal("stack deeper in the chain should be detected")
	}
}

func TestWithStack_Nil(t *testing.T) {
	if WithStack(nil) != nil {
		t.Fatal("WithStack(nil) should be nil")
	}
}
