// Package metrics owns the Prometheus registry served on the admin
// listener: HTTP RED metrics plus the catalog, download and demo series.
//
// Labels are limited to bounded sets (method, route pattern, status,
// result) so arbitrary request paths can never blow up cardinality.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/jslearn-web/internal/version"
)

const namespace = "jslearn"

// Download results, the only values of the downloads_total "result" label.
const (
	DownloadOK          = "ok"
	DownloadUnknown     = "unknown_module"
	DownloadFileMissing = "file_missing"
	DownloadError       = "error"
	DownloadNotModified = "not_modified"
	DownloadBadRange    = "range_not_satisfiable"
	DownloadInterrupted = "interrupted"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight    prometheus.Gauge
	reqTotal    *prometheus.CounterVec
	reqDur      *prometheus.HistogramVec
	respBytes   *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	panicTotal  prometheus.Counter
	buildInfo   *prometheus.GaugeVec

	ratelimitDeniedTotal   prometheus.Counter
	ratelimitCapacityTotal prometheus.Counter
	profilingActive        prometheus.Gauge

	catalogInfo        *prometheus.GaugeVec
	catalogModules     prometheus.Gauge
	demoModules        prometheus.Gauge
	pdfMissing         prometheus.Gauge
	downloadsTotal     *prometheus.CounterVec
	downloadBytesTotal prometheus.Counter
	demoRenderFailures *prometheus.CounterVec
}

// New returns a fresh registry with the Go and process collectors and every
// server series registered.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		panicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "build_id", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		ratelimitCapacityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total requests rejected because the rate limiter table was full",
		}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		catalogInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_info",
			Help:      "Active module catalog (labels carry identity, value is always 1)",
		}, []string{"version", "hash"}),
		catalogModules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_modules",
			Help:      "Number of modules in the catalog",
		}),
		demoModules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "demo_modules",
			Help:      "Number of modules with an interactive demo enabled",
		}),
		pdfMissing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pdf_files_missing",
			Help:      "Catalog PDFs absent from the store at the last check",
		}),
		downloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "PDF download attempts by result",
		}, []string{"result"}),
		downloadBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "PDF bytes handed to clients",
		}),
		demoRenderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "demo_render_failures_total",
			Help:      "Demo pages that failed to render by reason (missing, error)",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.panicTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.ratelimitCapacityTotal,
		m.profilingActive,
		m.catalogInfo,
		m.catalogModules,
		m.demoModules,
		m.pdfMissing,
		m.downloadsTotal,
		m.downloadBytesTotal,
		m.demoRenderFailures,
	)

	// pre-create result series so rate() works before the first download
	for _, r := range []string{
		DownloadOK, DownloadUnknown, DownloadFileMissing, DownloadError,
		DownloadNotModified, DownloadBadRange, DownloadInterrupted,
	} {
		m.downloadsTotal.WithLabelValues(r)
	}

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry is exposed for tests and ad-hoc collectors.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

// SetBuildInfoFromVersion is called once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":        vi.AppName,
		"component":  component,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_id":   vi.BuildId,
		"build_date": vi.BuildDate,
		"go_version": vi.GoVersion,
		"vcs_dirty":  dirty,
	}).Set(1)
}

func (m *ServerMetrics) IncHttpPanic()         { m.panicTotal.Inc() }
func (m *ServerMetrics) IncRateLimitDenied()   { m.ratelimitDeniedTotal.Inc() }
func (m *ServerMetrics) IncRateLimitCapacity() { m.ratelimitCapacityTotal.Inc() }

func (m *ServerMetrics) SetProfilingActive(active bool) { m.profilingActive.Set(boolGauge(active)) }

// SetCatalog records the active catalog identity and sizes.
func (m *ServerMetrics) SetCatalog(version, hash string, modules, demos int) {
	m.catalogInfo.Reset()
	m.catalogInfo.WithLabelValues(version, hash).Set(1)
	m.catalogModules.Set(float64(modules))
	m.demoModules.Set(float64(demos))
}

func (m *ServerMetrics) SetPDFMissing(n int) { m.pdfMissing.Set(float64(n)) }

// IncDownload counts a download attempt. result should be one of the
// Download* constants.
func (m *ServerMetrics) IncDownload(result string) { m.downloadsTotal.WithLabelValues(result).Inc() }

func (m *ServerMetrics) AddDownloadBytes(n int64) {
	if n > 0 {
		m.downloadBytesTotal.Add(float64(n))
	}
}

// IncDemoRenderFailure counts a demo page that could not be served.
// reason is "missing" or "error".
func (m *ServerMetrics) IncDemoRenderFailure(reason string) {
	m.demoRenderFailures.WithLabelValues(reason).Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
