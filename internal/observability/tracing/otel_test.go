package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/bidmarket/notifier/configs"
)

// mockExporter is a simple mock implementation of sdktrace.SpanExporter
type mockExporter struct {
	exportErr   error
	shutdownErr error
	spans       []sdktrace.ReadOnlySpan
}

func (m *mockExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if m.exportErr != nil {
		return m.exportErr
	}
	m.spans = append(m.spans, spans...)
	return nil
}

func (m *mockExporter) Shutdown(ctx context.Context) error {
	return m.shutdownErr
}

var _ sdktrace.SpanExporter = (*mockExporter)(nil)

func resetGlobals() {
	otel.SetTracerProvider(noop.NewTracerProvider())
	Tracer = noop.NewTracerProvider().Tracer("noop")
	shutdownFunc = func(ctx context.Context) error { return nil }
	newExporterFunc = func(ctx context.Context, cfg *configs.Config) (sdktrace.SpanExporter, error) {
		return &mockExporter{}, nil
	}
}

func TestInitTracerSuccess(t *testing.T) {
	t.Cleanup(resetGlobals)

	exporter := &mockExporter{}
	newExporterFunc = func(ctx context.Context, cfg *configs.Config) (sdktrace.SpanExporter, error) {
		return exporter, nil
	}

	shutdown, err := InitTracer(&configs.Config{
		OtelServiceName: "notifier-test",
		OtelEndpoint:    "fake:4317",
		OtelInsecure:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NotNil(t, Tracer)

	_, span := Tracer.Start(context.Background(), "test-span")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.NotEmpty(t, exporter.spans)
}

func TestInitTracerExporterError(t *testing.T) {
	t.Cleanup(resetGlobals)

	newExporterFunc = func(ctx context.Context, cfg *configs.Config) (sdktrace.SpanExporter, error) {
		return nil, errors.New("dial failed")
	}

	_, err := InitTracer(&configs.Config{OtelServiceName: "notifier-test"})
	assert.Error(t, err)
}

func TestShutdownTracerSwallowsError(t *testing.T) {
	t.Cleanup(resetGlobals)

	shutdownFunc = func(ctx context.Context) error { return errors.New("flush failed") }
	assert.NotPanics(t, func() {
		ShutdownTracer(context.Background())
	})
}

func TestGetTracerDefaultsToNoop(t *testing.T) {
	resetGlobals()
	assert.NotNil(t, GetTracer())
}
