package cfg

import (
	"flag"
	"fmt"
	"strings"
	"testing"
)

func wantErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got <nil>", sub)
	}
	if !strings.Contains(err.Error(), sub) {
		t.Fatalf("error %q does not contain %q", err.Error(), sub)
	}
}

// newFlagSet registers flags on a fresh FlagSet and parses args, keeping
// tests isolated from flag.CommandLine.
func newFlagSet(t *testing.T, args []string) (*flag.FlagSet, *App) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := &App{}
	Register(fs, c)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	return fs, c
}

func TestRegister_Defaults(t *testing.T) {
	_, c := newFlagSet(t, nil)

	if c.HTTPPort != 3000 {
		t.Errorf("HTTPPort = %d, want 3000", c.HTTPPort)
	}
	if c.AdminPort != 9000 {
		t.Errorf("AdminPort = %d, want 9000", c.AdminPort)
	}
	if c.ModulesDir != "Modules" {
		t.Errorf("ModulesDir = %q, want Modules", c.ModulesDir)
	}
	if c.PDFStore != PDFStoreDisk {
		t.Errorf("PDFStore = %q, want disk", c.PDFStore)
	}
	if !c.LogJSON || c.LogLevel != "info" {
		t.Errorf("LogJSON=%v LogLevel=%q", c.LogJSON, c.LogLevel)
	}
	if c.EnableTracing || c.EnablePyroscope {
		t.Error("tracing and pyroscope should default off")
	}
	if !c.EnableRateLimit || c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		t.Errorf("rate limit defaults: %v %g %d", c.EnableRateLimit, c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.CatalogFile != "" || c.DemoIDs != "" || c.DemoSSMParam != "" {
		t.Error("catalog overrides should default empty")
	}

	if err := Validate(*c); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFillFromEnv(t *testing.T) {
	pfx := "TESTCFG1_"
	t.Setenv(pfx+"LOG_JSON", "false")
	t.Setenv(pfx+"HTTP_PORT", "8088")
	t.Setenv(pfx+"MODULES_DIR", "/srv/pdfs")
	t.Setenv(pfx+"PDF_STORE", "s3")
	t.Setenv(pfx+"PDF_S3_BUCKET", "course-pdfs")
	t.Setenv(pfx+"DEMO_IDS", "1-5")
	t.Setenv(pfx+"RATE_LIMIT_RPS", "2.5")

	fs, c := newFlagSet(t, nil)
	FillFromEnv(fs, pfx, nil)

	if c.LogJSON {
		t.Error("LogJSON: want false from env")
	}
	if c.HTTPPort != 8088 {
		t.Errorf("HTTPPort = %d, want 8088", c.HTTPPort)
	}
	if c.ModulesDir != "/srv/pdfs" || c.PDFStore != "s3" || c.PDFS3Bucket != "course-pdfs" {
		t.Errorf("store settings = %q %q %q", c.ModulesDir, c.PDFStore, c.PDFS3Bucket)
	}
	if c.DemoIDs != "1-5" {
		t.Errorf("DemoIDs = %q", c.DemoIDs)
	}
	if c.RateLimitRPS != 2.5 {
		t.Errorf("RateLimitRPS = %g", c.RateLimitRPS)
	}
}

func TestFillFromEnv_CLITakesPrecedence(t *testing.T) {
	pfx := "TESTCFG2_"
	t.Setenv(pfx+"HTTP_PORT", "7777")
	t.Setenv(pfx+"LOG_LEVEL", "warn")

	fs, c := newFlagSet(t, []string{"-http-port=9090", "-log-level=debug"})

	var msgs []string
	FillFromEnv(fs, pfx, func(format string, args ...any) {
		msgs = append(msgs, fmt.Sprintf(format, args...))
	})

	if c.HTTPPort != 9090 || c.LogLevel != "debug" {
		t.Errorf("cli should win: HTTPPort=%d LogLevel=%q", c.HTTPPort, c.LogLevel)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 override messages, got %v", msgs)
	}
	for _, m := range msgs {
		if !strings.Contains(m, "overrides env") {
			t.Errorf("unexpected message: %s", m)
		}
	}
}

func TestFillFromEnv_InvalidEnvIgnored(t *testing.T) {
	pfx := "TESTCFG3_"
	t.Setenv(pfx+"HTTP_PORT", "not-a-number")

	fs, c := newFlagSet(t, nil)
	var msgs []string
	FillFromEnv(fs, pfx, func(format string, args ...any) {
		msgs = append(msgs, fmt.Sprintf(format, args...))
	})

	if c.HTTPPort != 3000 {
		t.Errorf("HTTPPort = %d, want default 3000", c.HTTPPort)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0], "ignoring invalid env") {
		t.Fatalf("messages = %v", msgs)
	}
}

func TestApplyPortFallback(t *testing.T) {
	pfx := "TESTCFG4_"

	t.Run("uses PORT when nothing else set", func(t *testing.T) {
		t.Setenv("PORT", "5000")
		fs, c := newFlagSet(t, nil)
		FillFromEnv(fs, pfx, nil)
		ApplyPortFallback(fs, pfx, nil)
		if c.HTTPPort != 5000 {
			t.Fatalf("HTTPPort = %d, want 5000", c.HTTPPort)
		}
	})

	t.Run("prefixed env wins over PORT", func(t *testing.T) {
		t.Setenv("PORT", "5000")
		t.Setenv(pfx+"HTTP_PORT", "6000")
		fs, c := newFlagSet(t, nil)
		FillFromEnv(fs, pfx, nil)
		ApplyPortFallback(fs, pfx, nil)
		if c.HTTPPort != 6000 {
			t.Fatalf("HTTPPort = %d, want 6000", c.HTTPPort)
		}
	})

	t.Run("cli wins over PORT", func(t *testing.T) {
		t.Setenv("PORT", "5000")
		fs, c := newFlagSet(t, []string{"-http-port=4000"})
		ApplyPortFallback(fs, pfx, nil)
		if c.HTTPPort != 4000 {
			t.Fatalf("HTTPPort = %d, want 4000", c.HTTPPort)
		}
	})

	t.Run("invalid PORT keeps default", func(t *testing.T) {
		t.Setenv("PORT", "abc")
		fs, c := newFlagSet(t, nil)
		var msgs []string
		ApplyPortFallback(fs, pfx, func(format string, args ...any) {
			msgs = append(msgs, fmt.Sprintf(format, args...))
		})
		if c.HTTPPort != 3000 {
			t.Fatalf("HTTPPort = %d, want 3000", c.HTTPPort)
		}
		if len(msgs) != 1 {
			t.Fatalf("messages = %v", msgs)
		}
	})
}

func TestValidate_OK(t *testing.T) {
	_, c := newFlagSet(t, []string{
		"-enable-pyroscope=true",
		"-pyro-server=https://pyro:4040",
		"-pyro-tenant=test-tenant",
		"-enable-tracing=true",
		"-otlp-endpoint=otel:4317",
		"-trace-sample=0.2",
		"-pdf-store=s3",
		"-pdf-s3-bucket=course-pdfs",
		"-demo-ids=1-9",
	})
	if err := Validate(*c); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_InvalidCombined(t *testing.T) {
	_, c := newFlagSet(t, []string{
		"-http-port=0",
		"-admin-port=70000",
		"-log-level=nope",
		"-stacktrace-level=alsonope",
		"-trace-sample=2.0",
		"-enable-pyroscope=true",
		"-pyro-server=not-a-url",
		"-enable-tracing=true",
		"-otlp-endpoint=otel",
		"-max-error-links=0",
		"-rate-limit-rps=0",
		"-rate-limit-burst=0",
		"-trusted-proxy-hops=-1",
		"-demo-ids=3-1",
		"-pdf-store=ftp",
		"-drain-seconds=-1",
	})

	err := Validate(*c)
	for _, want := range []string{
		"invalid HTTP_PORT",
		"invalid ADMIN_PORT",
		"invalid LOG_LEVEL",
		"invalid STACKTRACE_LEVEL",
		"invalid TRACE_SAMPLE",
		"PYRO_SERVER must be a URL",
		"PYRO_TENANT required",
		"OTLP_ENDPOINT must be host:port",
		"MAX_ERROR_LINKS",
		"RATE_LIMIT_RPS",
		"RATE_LIMIT_BURST",
		"TRUSTED_PROXY_HOPS",
		"invalid DEMO_IDS",
		"invalid PDF_STORE",
		"DRAIN_SECONDS",
	} {
		wantErrContains(t, err, want)
	}
}

func TestValidate_StoreRequirements(t *testing.T) {
	_, c := newFlagSet(t, []string{"-pdf-store=s3"})
	wantErrContains(t, Validate(*c), "PDF_S3_BUCKET is required")

	_, c = newFlagSet(t, []string{"-modules-dir= "})
	wantErrContains(t, Validate(*c), "MODULES_DIR is required")
}

func TestValidate_SamePorts(t *testing.T) {
	_, c := newFlagSet(t, []string{"-http-port=9000"})
	wantErrContains(t, Validate(*c), "must differ")
}

func TestValidate_DemoSourcesExclusive(t *testing.T) {
	_, c := newFlagSet(t, []string{"-demo-ids=1,2", "-demo-ssm-param=/jslearn/demos"})
	wantErrContains(t, Validate(*c), "mutually exclusive")
}

func TestValidate_RateLimitDisabledSkipsValues(t *testing.T) {
	_, c := newFlagSet(t, []string{"-enable-rate-limit=false", "-rate-limit-rps=0"})
	if err := Validate(*c); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}
