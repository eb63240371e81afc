package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/itsneelabh/agentlaunch/core"
)

func newRecordingProvider(t *testing.T) (*Provider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	p, err := New(context.Background(), Options{
		ServiceName:   "test-service",
		AgentID:       "agent-1",
		Exporter:      core.ExporterNone,
		SpanProcessor: recorder,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p, recorder
}

func TestNewRequiresServiceName(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")

	_, err := New(context.Background(), Options{Exporter: core.ExporterNone})
	assert.ErrorIs(t, err, core.ErrMissingConfiguration)
}

func TestNewServiceNameFromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "env-service")

	p, err := New(context.Background(), Options{Exporter: core.ExporterNone})
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	assert.Equal(t, "env-service", p.serviceName)
}

func TestNewExporterValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"unknown exporter", Options{ServiceName: "svc", Exporter: "zipkin"}, core.ErrInvalidConfiguration},
		{"otlp without endpoint", Options{ServiceName: "svc", Exporter: core.ExporterOTLP}, core.ErrMissingConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProviderSpans(t *testing.T) {
	p, recorder := newRecordingProvider(t)

	_, span := p.StartSpan(context.Background(), "response.atomic.textblock")
	span.SetAttribute("event.name", "ASSIST")
	span.SetAttribute("event.stream", false)
	span.SetAttribute("event.code", 7)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "response.atomic.textblock", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("event.name", "ASSIST"))
	assert.Contains(t, ended[0].Attributes(), attribute.Bool("event.stream", false))
	assert.Contains(t, ended[0].Attributes(), attribute.Int("event.code", 7))

	res := ended[0].Resource().Attributes()
	assert.Contains(t, res, attribute.String("service.name", "test-service"))
	assert.Contains(t, res, attribute.String("agent.id", "agent-1"))
}

func TestProviderChildSpans(t *testing.T) {
	p, recorder := newRecordingProvider(t)

	ctx, parent := p.StartSpan(context.Background(), "agent.assist")
	_, child := p.StartSpan(ctx, "response.atomic.textblock")
	child.End()
	parent.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
}

func TestProviderRecordError(t *testing.T) {
	p, recorder := newRecordingProvider(t)

	_, span := p.StartSpan(context.Background(), "response.atomic.error")
	span.RecordError(nil)
	span.RecordError(errors.New("hook unavailable"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "hook unavailable", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1, "nil errors are not recorded")
}

func newMetricProvider(t *testing.T) (*Provider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	p, err := New(context.Background(), Options{
		ServiceName:  "test-service",
		Exporter:     core.ExporterNone,
		MetricReader: reader,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p, reader
}

// collectHistogram returns the data points recorded on the histogram named name
func collectHistogram(t *testing.T, reader *sdkmetric.ManualReader, name string) []metricdata.HistogramDataPoint[float64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok, "metric %s should be a float64 histogram, got %T", name, m.Data)
			return hist.DataPoints
		}
	}
	t.Fatalf("metric %s was not collected", name)
	return nil
}

func TestProviderRecordMetric(t *testing.T) {
	p, reader := newMetricProvider(t)

	p.RecordMetric("agent.events.emitted", 1, map[string]string{"content_type": "atomic.textblock"})
	p.RecordMetric("agent.events.emitted", 1, map[string]string{"content_type": "atomic.textblock"})
	assert.Len(t, p.histograms, 1, "histograms are cached by name")

	points := collectHistogram(t, reader, "agent.events.emitted")
	require.Len(t, points, 1)
	assert.Equal(t, uint64(2), points[0].Count)
	assert.Equal(t, float64(2), points[0].Sum)

	contentType, ok := points[0].Attributes.Value("content_type")
	require.True(t, ok)
	assert.Equal(t, "atomic.textblock", contentType.AsString())

	service, ok := points[0].Attributes.Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "test-service", service.AsString())
}

func TestProviderMetricsFromResponseHandler(t *testing.T) {
	p, reader := newMetricProvider(t)

	handler, err := core.NewDefaultResponseHandler(
		core.Identity{ID: "agent-1", Name: "MyAgent"},
		core.NewDefaultHook(nil),
		core.WithHandlerTelemetry(p),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, handler.EmitTextBlock(ctx, "ASSIST", "hello"))
	require.NoError(t, handler.EmitTextBlock(ctx, "ASSIST", "again"))
	require.NoError(t, handler.Complete(ctx))

	counts := map[string]uint64{}
	for _, dp := range collectHistogram(t, reader, "agent.events.emitted") {
		v, ok := dp.Attributes.Value("content_type")
		require.True(t, ok)
		counts[v.AsString()] = dp.Count
	}
	assert.Equal(t, map[string]uint64{"atomic.textblock": 2, "atomic.done": 1}, counts)
}

func TestStdoutExporterWritesMetrics(t *testing.T) {
	var buf bytes.Buffer
	tel, shutdown, err := NewFromConfig(context.Background(), core.TelemetryConfig{
		Enabled:  true,
		Exporter: core.ExporterStdout,
	}, "MyAgent", &buf)
	require.NoError(t, err)

	p, ok := tel.(*Provider)
	require.True(t, ok)
	require.NotNil(t, p.meterProvider, "an SDK meter provider must back the meter")

	tel.RecordMetric("agent.events.emitted", 1, map[string]string{"content_type": "atomic.done"})
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "agent.events.emitted")
	assert.Contains(t, buf.String(), "atomic.done")
}

func TestExternalMeterProviderIsNotOwned(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	p, err := New(context.Background(), Options{
		ServiceName:   "test-service",
		Exporter:      core.ExporterNone,
		MeterProvider: mp,
	})
	require.NoError(t, err)
	assert.Nil(t, p.meterProvider)

	p.RecordMetric("agent.events.emitted", 3, nil)
	require.NoError(t, p.Shutdown(context.Background()))

	points := collectHistogram(t, reader, "agent.events.emitted")
	require.Len(t, points, 1)
	assert.Equal(t, float64(3), points[0].Sum)
}

func TestStdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), Options{
		ServiceName: "test-service",
		Exporter:    core.ExporterStdout,
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := p.StartSpan(context.Background(), "response.atomic.done")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "response.atomic.done")
}

func TestNewFromConfig(t *testing.T) {
	t.Run("disabled returns no-op", func(t *testing.T) {
		tel, shutdown, err := NewFromConfig(context.Background(), core.TelemetryConfig{}, "MyAgent", nil)
		require.NoError(t, err)
		assert.IsType(t, &core.NoOpTelemetry{}, tel)
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("falls back to agent name", func(t *testing.T) {
		tel, shutdown, err := NewFromConfig(context.Background(), core.TelemetryConfig{
			Enabled:  true,
			Exporter: core.ExporterNone,
		}, "MyAgent", nil)
		require.NoError(t, err)
		defer shutdown(context.Background())

		p, ok := tel.(*Provider)
		require.True(t, ok)
		assert.Equal(t, "MyAgent", p.serviceName)
	})

	t.Run("invalid exporter", func(t *testing.T) {
		_, shutdown, err := NewFromConfig(context.Background(), core.TelemetryConfig{
			Enabled:  true,
			Exporter: "zipkin",
		}, "MyAgent", nil)
		assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
		assert.NoError(t, shutdown(context.Background()))
	})
}

func TestProviderWithResponseHandler(t *testing.T) {
	p, recorder := newRecordingProvider(t)

	hook := core.NewDefaultHook(nil)
	handler, err := core.NewDefaultResponseHandler(
		core.Identity{ID: "agent-1", Name: "MyAgent"},
		hook,
		core.WithHandlerTelemetry(p),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, handler.EmitTextBlock(ctx, "ASSIST", "hello"))
	require.NoError(t, handler.Complete(ctx))

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"response.atomic.textblock", "response.atomic.done"}, names)
}
