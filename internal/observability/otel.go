// Package observability sets up OpenTelemetry tracing for the service. Spans
// come from otelgin (HTTP), the GORM tracing plugin (favorites store), the
// GitHub client and the resolver.
package observability

import (
	"context"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-gist-favorites/internal/config"
)

// githubHostKey tags the resource with the GitHub deployment in use.
const githubHostKey = attribute.Key("github.api.host")

// Test seams.
var (
	newExporter = func(ctx context.Context, opts ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	}
	newResource = serviceResource
)

// UpstreamAttrs describes the GitHub deployment the service talks to, so
// traces from a GitHub Enterprise install are told apart from api.github.com.
func UpstreamAttrs(baseURL string) []attribute.KeyValue {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return []attribute.KeyValue{githubHostKey.String(host)}
}

// SetupOTel installs a batching OTLP/gRPC tracer provider and the W3C
// propagators, returning the provider's shutdown. When tracing is disabled
// it returns a no-op and leaves the globals alone; on error the globals are
// also untouched. extra is added to the service resource.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version string, extra ...attribute.KeyValue) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, exporterOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg.ServiceName, version, extra...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// exporterOptions targets cfg.Endpoint, over TLS with the system roots
// unless cfg.Insecure is set.
func exporterOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		return append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
}

func serviceResource(ctx context.Context, service, version string, extra ...attribute.KeyValue) (*resource.Resource, error) {
	attrs := append([]attribute.KeyValue{
		semconv.ServiceName(service),
		semconv.ServiceVersion(version),
	}, extra...)
	return resource.New(ctx, resource.WithAttributes(attrs...))
}
