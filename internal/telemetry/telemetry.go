// Package telemetry wires OpenTelemetry trace and metric export over OTLP/gRPC.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
	"google.golang.org/grpc/credentials"

	"github.com/Ch00k/place-picker/internal/logging"
)

// Settings selects the collector and identifies this process
type Settings struct {
	Endpoint       string
	Insecure       bool
	MeterInterval  time.Duration
	ServiceName    string
	ServiceVersion string
}

// ShutdownFunc flushes and stops the providers
type ShutdownFunc func(ctx context.Context) error

// Enabled reports whether a collector endpoint is configured
func (s Settings) Enabled() bool {
	return s.Endpoint != ""
}

func newResource(s Settings) *resource.Resource {
	hostname, _ := os.Hostname()
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.TelemetrySDKLanguageGo,
		semconv.ServiceName(s.ServiceName),
		semconv.ServiceVersion(s.ServiceVersion),
		semconv.HostName(hostname),
		semconv.ProcessPID(os.Getpid()),
	)
}

func traceOptions(s Settings) []otlptracegrpc.Option {
	options := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(s.Endpoint)}
	if s.Insecure {
		options = append(options, otlptracegrpc.WithInsecure())
	} else {
		options = append(options, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	return options
}

func metricOptions(s Settings) []otlpmetricgrpc.Option {
	options := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(s.Endpoint)}
	if s.Insecure {
		options = append(options, otlpmetricgrpc.WithInsecure())
	} else {
		options = append(options, otlpmetricgrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	return options
}

// Init installs global tracer and meter providers exporting to s.Endpoint.
// Without an endpoint it leaves the no-op globals in place.
func Init(ctx context.Context, s Settings, logger *slog.Logger) (ShutdownFunc, error) {
	if !s.Enabled() {
		return func(context.Context) error { return nil }, nil
	}

	res := newResource(s)

	traceExporter, err := otlptracegrpc.New(ctx, traceOptions(s)...)
	if err != nil {
		logger.Warn("Unable to initialize OTEL trace exporter", logging.ErrAttr(err))
		return nil, err
	}
	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithSampler(trace.ParentBased(trace.AlwaysSample())),
		trace.WithResource(res),
	)

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOptions(s)...)
	if err != nil {
		logger.Warn("Unable to initialize OTEL metric exporter", logging.ErrAttr(err))
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}
	interval := s.MeterInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(interval))),
		metric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	)

	logger.Info("Telemetry export enabled", slog.String("endpoint", s.Endpoint))

	return func(ctx context.Context) error {
		return errors.Join(
			meterProvider.Shutdown(ctx),
			tracerProvider.Shutdown(ctx),
		)
	}, nil
}
