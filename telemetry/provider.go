package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/agentlaunch/core"
)

const instrumentationName = "github.com/itsneelabh/agentlaunch"

// Provider implements core.Telemetry on top of OpenTelemetry
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider // nil when Options.MeterProvider was supplied
	tracer         trace.Tracer
	meter          metric.Meter
	serviceName    string

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
}

// Options configures a Provider
type Options struct {
	ServiceName string
	AgentID     string

	// Exporter is "stdout", "otlp" or "none"
	Exporter string
	// Writer receives stdout exporter output, os.Stderr when nil
	Writer io.Writer
	// Endpoint and Insecure configure the otlp exporters.
	// Traces use OTLP/gRPC, metrics OTLP/HTTP.
	Endpoint        string
	MetricsEndpoint string // defaults to Endpoint
	Insecure        bool

	// SpanProcessor is registered in addition to the exporter, used by tests
	SpanProcessor sdktrace.SpanProcessor
	// MetricReader is registered in addition to the exporter's reader, used by tests
	MetricReader sdkmetric.Reader
	// MeterProvider replaces the SDK meter provider built from Exporter.
	// The caller owns its shutdown.
	MeterProvider metric.MeterProvider
}

// New creates a Provider. The tracer provider is not installed globally.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = os.Getenv(core.EnvOTELServiceName)
	}
	if opts.ServiceName == "" {
		return nil, fmt.Errorf("telemetry service name is required: %w", core.ErrMissingConfiguration)
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", opts.ServiceName),
	}
	if opts.AgentID != "" {
		attrs = append(attrs, attribute.String("agent.id", opts.AgentID))
	}

	res := resource.NewSchemaless(attrs...)
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	switch opts.Exporter {
	case "", core.ExporterNone:
	case core.ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithSyncer(exp))
	case core.ExporterOTLP:
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("otlp endpoint is required: %w", core.ErrMissingConfiguration)
		}
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q: %w", opts.Exporter, core.ErrInvalidConfiguration)
	}

	if opts.SpanProcessor != nil {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(opts.SpanProcessor))
	}

	var sdkMP *sdkmetric.MeterProvider
	mp := opts.MeterProvider
	if mp == nil {
		readers, err := newMetricReaders(ctx, opts)
		if err != nil {
			return nil, err
		}
		mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		for _, r := range readers {
			mpOpts = append(mpOpts, sdkmetric.WithReader(r))
		}
		sdkMP = sdkmetric.NewMeterProvider(mpOpts...)
		mp = sdkMP
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &Provider{
		tracerProvider: tp,
		meterProvider:  sdkMP,
		tracer:         tp.Tracer(instrumentationName),
		meter:          mp.Meter(instrumentationName),
		serviceName:    opts.ServiceName,
		histograms:     make(map[string]metric.Float64Histogram),
	}, nil
}

// newMetricReaders returns the readers feeding the SDK meter provider:
// a periodic reader over the configured exporter plus opts.MetricReader.
func newMetricReaders(ctx context.Context, opts Options) ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	switch opts.Exporter {
	case "", core.ExporterNone:
	case core.ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp))
	case core.ExporterOTLP:
		endpoint := opts.MetricsEndpoint
		if endpoint == "" {
			endpoint = opts.Endpoint
		}
		clientOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
		if opts.Insecure {
			clientOpts = append(clientOpts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp))
	}

	if opts.MetricReader != nil {
		readers = append(readers, opts.MetricReader)
	}
	return readers, nil
}

// NewFromConfig builds a Provider from agent configuration.
// It returns core.NoOpTelemetry when telemetry is disabled.
func NewFromConfig(ctx context.Context, cfg core.TelemetryConfig, agentName string, w io.Writer) (core.Telemetry, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return &core.NoOpTelemetry{}, noop, nil
	}

	name := cfg.ServiceName
	if name == "" {
		name = agentName
	}
	p, err := New(ctx, Options{
		ServiceName:     name,
		Exporter:        cfg.Exporter,
		Writer:          w,
		Endpoint:        cfg.Endpoint,
		MetricsEndpoint: cfg.MetricsEndpoint,
		Insecure:        cfg.Insecure,
	})
	if err != nil {
		return nil, noop, err
	}
	return p, p.Shutdown, nil
}

// StartSpan starts a span as a child of any span in ctx
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric records value on a histogram named name
func (p *Provider) RecordMetric(name string, value float64, labels map[string]string) {
	h, err := p.histogram(name)
	if err != nil {
		otel.Handle(err)
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(labels)+1)
	attrs = append(attrs, attribute.String("service.name", p.serviceName))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	h.Record(context.Background(), value, metric.WithAttributes(attrs...))
}

func (p *Provider) histogram(name string) (metric.Float64Histogram, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.histograms[name]; ok {
		return h, nil
	}
	h, err := p.meter.Float64Histogram(name)
	if err != nil {
		return nil, err
	}
	p.histograms[name] = h
	return h, nil
}

// Shutdown flushes pending spans and metrics and stops exporters
func (p *Provider) Shutdown(ctx context.Context) error {
	err := p.tracerProvider.Shutdown(ctx)
	if p.meterProvider != nil {
		if mErr := p.meterProvider.Shutdown(ctx); mErr != nil && err == nil {
			err = mErr
		}
	}
	return err
}

// otelSpan adapts a trace.Span to core.Span
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(toAttribute(key, value))
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
