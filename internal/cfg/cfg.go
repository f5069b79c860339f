package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/keithlinneman/jslearn-web/internal/catalog"
	"github.com/keithlinneman/jslearn-web/internal/log"
)

// EnvPrefix is prepended to upper-cased flag names when reading the environment.
const EnvPrefix = "JSLEARN_"

const (
	PDFStoreDisk = "disk"
	PDFStoreS3   = "s3"
)

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	HTTPPort    int
	AdminPort   int
	EnablePprof bool

	EnableTracing   bool
	OTLPEndpoint    string
	TraceSample     float64
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string

	EnableRateLimit  bool
	RateLimitRPS     float64
	RateLimitBurst   int
	TrustedProxyHops int

	CatalogFile  string
	DemoIDs      string
	DemoSSMParam string

	ModulesDir  string
	PDFStore    string
	PDFS3Bucket string
	PDFS3Prefix string

	DrainSeconds int
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 3000, "site listen TCP port (1..65535); PORT is used when unset")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")

	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")

	fs.BoolVar(&c.EnableRateLimit, "enable-rate-limit", true, "Enable per-client rate limiting on the site listener")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 20, "sustained requests per second per client")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 40, "burst size per client")
	fs.IntVar(&c.TrustedProxyHops, "trusted-proxy-hops", 0, "number of trusted reverse proxies in front of the server (0..10)")

	fs.StringVar(&c.CatalogFile, "catalog-file", "", "YAML catalog to load instead of the built-in one")
	fs.StringVar(&c.DemoIDs, "demo-ids", "", "override demo availability, e.g. \"1-9\" or \"none\"")
	fs.StringVar(&c.DemoSSMParam, "demo-ssm-param", "", "ssm parameter holding the demo id list")

	fs.StringVar(&c.ModulesDir, "modules-dir", "Modules", "directory holding the module PDFs (disk store)")
	fs.StringVar(&c.PDFStore, "pdf-store", PDFStoreDisk, "where PDFs are served from: disk|s3")
	fs.StringVar(&c.PDFS3Bucket, "pdf-s3-bucket", "", "s3 bucket holding the module PDFs")
	fs.StringVar(&c.PDFS3Prefix, "pdf-s3-prefix", "", "s3 key prefix for the module PDFs")

	fs.IntVar(&c.DrainSeconds, "drain-seconds", 5, "seconds to report not-ready before shutting down listeners")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := envKey(prefix, f.Name)
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// ApplyPortFallback honours the platform-style PORT variable for the site
// listener when neither -http-port nor PREFIX_HTTP_PORT was given.
func ApplyPortFallback(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "http-port" {
			explicit = true
		}
	})
	if explicit {
		return
	}
	if _, ok := os.LookupEnv(envKey(prefix, "http-port")); ok {
		return
	}
	v, ok := os.LookupEnv("PORT")
	if !ok || v == "" {
		return
	}
	if err := fs.Set("http-port", strings.TrimSpace(v)); err != nil && logf != nil {
		logf("ignoring invalid env PORT=%q: %v", v, err)
	}
}

func envKey(prefix, name string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	if c.EnableRateLimit {
		if c.RateLimitRPS <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be > 0 (got %g)", c.RateLimitRPS))
		}
		if c.RateLimitBurst < 1 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be >= 1 (got %d)", c.RateLimitBurst))
		}
	}
	if c.TrustedProxyHops < 0 || c.TrustedProxyHops > 10 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must be 0..10 (got %d)", c.TrustedProxyHops))
	}

	// Demo override; the ids themselves are checked against the catalog at startup
	if c.DemoIDs != "" {
		if _, err := catalog.ParseIDs(c.DemoIDs); err != nil {
			errs = append(errs, fmt.Errorf("invalid DEMO_IDS %q: %w", c.DemoIDs, err))
		}
		if c.DemoSSMParam != "" {
			errs = append(errs, fmt.Errorf("DEMO_IDS and DEMO_SSM_PARAM are mutually exclusive"))
		}
	}

	// PDF store
	switch c.PDFStore {
	case PDFStoreDisk:
		if strings.TrimSpace(c.ModulesDir) == "" {
			errs = append(errs, fmt.Errorf("MODULES_DIR is required when PDF_STORE=disk"))
		}
	case PDFStoreS3:
		if c.PDFS3Bucket == "" {
			errs = append(errs, fmt.Errorf("PDF_S3_BUCKET is required when PDF_STORE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid PDF_STORE %q (must be disk or s3)", c.PDFStore))
	}

	if c.DrainSeconds < 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("DRAIN_SECONDS must be 0..300 (got %d)", c.DrainSeconds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
