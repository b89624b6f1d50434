package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// exportTarget is an OTLP endpoint split into host and per-signal paths.
type exportTarget struct {
	Host       string
	Insecure   bool
	TracePath  string
	LogPath    string
	MetricPath string
}

// resolveEndpoint accepts "host:port", "http(s)://host[:port]" or a URL with a
// base path such as ".../otlp" and derives the per-signal URL paths.
func resolveEndpoint(raw string) exportTarget {
	target := exportTarget{
		TracePath:  "/v1/traces",
		LogPath:    "/v1/logs",
		MetricPath: "/v1/metrics",
	}

	endpoint := raw
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		target.Insecure = true
	}

	basePath := ""
	if idx := strings.Index(endpoint, "/"); idx > 0 {
		basePath = endpoint[idx:]
		endpoint = endpoint[:idx]
	}
	target.Host = endpoint

	for _, suffix := range []string{"/v1/traces", "/v1/logs", "/v1/metrics"} {
		basePath = strings.TrimSuffix(basePath, suffix)
	}
	basePath = strings.TrimSuffix(basePath, "/")
	if basePath != "" {
		target.TracePath = basePath + target.TracePath
		target.LogPath = basePath + target.LogPath
		target.MetricPath = basePath + target.MetricPath
	}
	return target
}

// InitTelemetry installs global trace, log and meter providers exporting to
// otlpEndpoint. With an empty endpoint only the resource and propagators are set.
// The returned function flushes and shuts all providers down.
func InitTelemetry(ctx context.Context, serviceName, serviceVersion, env, otlpEndpoint string, headers map[string]string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.DeploymentEnvironmentKey.String(env),
		),
	)
	if err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if otlpEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	target := resolveEndpoint(otlpEndpoint)

	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(target.Host),
		otlptracehttp.WithURLPath(target.TracePath),
	}
	logOpts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(target.Host),
		otlploghttp.WithURLPath(target.LogPath),
	}
	metricOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(target.Host),
		otlpmetrichttp.WithURLPath(target.MetricPath),
	}
	if len(headers) > 0 {
		traceOpts = append(traceOpts, otlptracehttp.WithHeaders(headers))
		logOpts = append(logOpts, otlploghttp.WithHeaders(headers))
		metricOpts = append(metricOpts, otlpmetrichttp.WithHeaders(headers))
	}
	if target.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		logOpts = append(logOpts, otlploghttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, err
	}
	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		return nil, err
	}
	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Telemetry initialized",
		"endpoint", target.Host,
		"trace_path", target.TracePath,
		"log_path", target.LogPath,
		"metric_path", target.MetricPath,
		"insecure", target.Insecure,
	)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), lp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// Tracer returns a tracer with the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
