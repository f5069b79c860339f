// Package otelx installs the global OpenTelemetry tracer provider and
// propagators. Spans are exported over OTLP/gRPC to a local collector.
package otelx

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"

	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

const dialTimeout = 3 * time.Second

type Options struct {
	Enabled   bool
	Endpoint  string
	Insecure  bool
	Sample    float64
	Service   string
	Component string
	Version   string
}

func setPropagators() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
}

// Init installs a tracer provider. When disabled, an SDK provider with no
// exporter is installed so trace IDs still exist for log correlation and
// response headers. The returned func flushes and shuts down the provider.
func Init(ctx context.Context, o Options) (func(context.Context) error, error) {
	setPropagators()
	if !o.Enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil
	}
	if o.Endpoint == "" {
		return nil, xerrors.New("otlp endpoint is required when tracing is enabled")
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(o.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(o.Service + "/" + o.Version)),
	}
	if o.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	exp, err := otlptracegrpc.New(dialCtx, opts...)
	if err != nil {
		return nil, xerrors.Wrapf(err, "create otlp exporter for %s", o.Endpoint)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(Sampler(o.Sample)),
		sdktrace.WithBatcher(exp,
			sdktrace.WithMaxQueueSize(2048),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(newResource(ctx, o)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Sampler honors the parent decision and samples root spans at ratio,
// clamped to [0, 1].
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// ServiceName joins service and component as "service.component".
func ServiceName(service, component string) string {
	if component == "" {
		return service
	}
	return service + "." + component
}

func newResource(ctx context.Context, o Options) *resource.Resource {
	attrs := resource.WithAttributes(
		semconv.ServiceNameKey.String(ServiceName(o.Service, o.Component)),
		semconv.ServiceVersionKey.String(o.Version),
	)
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithHost(),
		attrs,
	)
	if err != nil {
		// partial detection still returns a usable resource
		if res != nil {
			return res
		}
		res, _ = resource.New(ctx, attrs)
	}
	return res
}
