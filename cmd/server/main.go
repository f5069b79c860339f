package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/jslearn-web/internal/cfg"
	"github.com/keithlinneman/jslearn-web/internal/health"
	"github.com/keithlinneman/jslearn-web/internal/httpmw"
	"github.com/keithlinneman/jslearn-web/internal/httpserver"
	"github.com/keithlinneman/jslearn-web/internal/log"
	"github.com/keithlinneman/jslearn-web/internal/metrics"
	"github.com/keithlinneman/jslearn-web/internal/opshttp"
	"github.com/keithlinneman/jslearn-web/internal/otelx"
	"github.com/keithlinneman/jslearn-web/internal/paramstore"
	"github.com/keithlinneman/jslearn-web/internal/prof"
	"github.com/keithlinneman/jslearn-web/internal/ratelimit"
	"github.com/keithlinneman/jslearn-web/internal/sitehandler"
	"github.com/keithlinneman/jslearn-web/internal/sitehttp"
	v "github.com/keithlinneman/jslearn-web/internal/version"
	"github.com/keithlinneman/jslearn-web/internal/views"
	"github.com/keithlinneman/jslearn-web/internal/webassets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.String())
		os.Exit(0)
	}

	envLog := func(format string, args ...any) { fmt.Fprintf(os.Stderr, format+"\n", args...) }
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, envLog)
	cfg.ApplyPortFallback(flag.CommandLine, cfg.EnvPrefix, envLog)

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging; levels were checked by Validate
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:               vi.AppName,
		Version:           vi.Version,
		Commit:            vi.Commit,
		BuildId:           vi.BuildId,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JsonFormat:        conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"enable_rate_limit", conf.EnableRateLimit,
		"trusted_proxy_hops", conf.TrustedProxyHops,
		"catalog_file", conf.CatalogFile,
		"pdf_store", conf.PDFStore,
		"modules_dir", conf.ModulesDir,
		"pdf_s3_bucket", conf.PDFS3Bucket,
		"pdf_s3_prefix", conf.PDFS3Prefix,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion("server", vi)

	// Setup pyroscope profiling
	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       vi.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer stopProf()

	// Insecure because the collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   vi.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed, continuing without trace export")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// AWS is only needed for the s3 store or the ssm demo override
	var awsCfg *aws.Config
	if conf.PDFStore == cfg.PDFStoreS3 || conf.DemoSSMParam != "" {
		c, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			L.Error(ctx, err, "failed to load AWS config")
			os.Exit(1)
		}
		awsCfg = &c
	}

	// Catalog, loaded before any listener starts so readiness never waits on it
	reg, err := loadCatalog(conf.CatalogFile)
	if err != nil {
		L.Error(ctx, err, "failed to load module catalog", "catalog_file", conf.CatalogFile)
		os.Exit(1)
	}
	var params paramGetter
	if conf.DemoSSMParam != "" {
		p, err := paramstore.New(ssm.NewFromConfig(*awsCfg))
		if err != nil {
			L.Error(ctx, err, "failed to create parameter store reader")
			os.Exit(1)
		}
		params = p
	}
	reg, demoSource, err := applyDemoOverride(ctx, reg, conf.DemoIDs, params, conf.DemoSSMParam)
	if err != nil {
		L.Error(ctx, err, "invalid demo override")
		os.Exit(1)
	}
	m.SetCatalog(reg.Version(), reg.Hash(), reg.Len(), len(reg.DemoIDs()))

	L.Info(ctx, "module catalog loaded",
		"catalog_version", reg.Version(),
		"catalog_hash", reg.Hash(),
		"modules", reg.Len(),
		"demo_source", demoSource,
	)
	for _, mod := range reg.List() {
		L.Info(ctx, "available module", "module_id", mod.ID, "title", mod.Title, "demo", mod.Demo)
	}
	L.Info(ctx, "available demos", "module_ids", reg.DemoIDs())

	store, err := newPDFStore(conf, awsCfg)
	if err != nil {
		L.Error(ctx, err, "failed to create pdf store", "pdf_store", conf.PDFStore)
		os.Exit(1)
	}
	missing, err := checkPDFs(ctx, L, store, reg)
	if err != nil {
		L.Error(ctx, err, "pdf startup check failed")
	}
	m.SetPDFMissing(missing)

	pages, err := views.New(webassets.TemplatesFS())
	if err != nil {
		L.Error(ctx, err, "failed to parse templates")
		os.Exit(1)
	}
	for _, id := range reg.DemoIDs() {
		if !pages.Has(views.DemoPage(id)) {
			L.Warn(ctx, "demo enabled but template missing; the page will report it as being prepared", "module_id", id)
		}
	}

	routes, err := sitehttp.New(sitehttp.Options{
		Catalog: reg,
		Views:   pages,
		Store:   store,
		Metrics: m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site routes")
		os.Exit(1)
	}

	static, err := sitehandler.New(sitehandler.Options{
		Logger:   L,
		PublicFS: webassets.PublicFS(),
	})
	if err != nil {
		L.Error(ctx, err, "failed to create static handler")
		os.Exit(1)
	}

	// toggled on shutdown so load balancers stop routing before listeners close
	var gate health.ShutdownGate
	readiness := health.All(health.Named("shutdown", gate.Probe()))

	var rateLimitMW func(next http.Handler) http.Handler
	if conf.EnableRateLimit {
		limiter := ratelimit.New(ctx,
			ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
			ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
			// only the first denial per visitor is logged until it is evicted
			ratelimit.WithOnFirstDenied(func(ip string) {
				L.Warn(ctx, "rate limit triggered", "client.address", ip)
			}),
			ratelimit.WithOnCapacity(func(string) { m.IncRateLimitCapacity() }),
		)
		rateLimitMW = limiter.Middleware
	}

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:        L,
		Port:          conf.HTTPPort,
		UseRecoverMW:  true,
		OnPanic:       m.IncHttpPanic,
		MetricsMW:     m.Middleware,
		RateLimitMW:   rateLimitMW,
		ClientIPOpts:  httpmw.ClientIPOptions{TrustedHops: conf.TrustedProxyHops},
		Health:        health.Fixed(true, ""),
		Readiness:     readiness,
		SiteRoutes:    routes.RegisterRoutes,
		StaticHandler: static,
		CatalogInfo:   reg,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// admin listener rejects public peers; metrics, probes and pprof live here
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	L.Info(ctx, "JavaScript learning server running", "url", fmt.Sprintf("http://localhost:%d", conf.HTTPPort))

	if err := notifySystemd(); err != nil {
		// systemd kills us after its timeout if this really failed
		L.Warn(ctx, "failed to notify systemd of readiness", "err", err)
	}

	<-ctx.Done()
	stop()

	bg := context.Background()
	L.Info(bg, "shutdown signal received")
	gate.Set("draining")

	drain := time.Duration(conf.DrainSeconds) * time.Second
	if drain > 0 {
		L.Info(bg, "draining before closing listeners", "drain", drain.String())
		forceCh := make(chan os.Signal, 1)
		signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-time.After(drain):
			L.Info(bg, "drain period complete")
		case <-forceCh:
			L.Warn(bg, "second signal received, skipping drain")
		}
		signal.Stop(forceCh)
	}

	shutdownCtx, cancel := context.WithTimeout(bg, 30*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}
