package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func TestSetupDisabled(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown, err := Setup(context.Background(), Config{}, "dev", zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestSetupUnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Config{Enabled: true, Exporter: "zipkin"}, "dev", zap.NewNop())
	assert.ErrorContains(t, err, "zipkin")
}

func TestSetupStdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := Setup(context.Background(), Config{Enabled: true, SampleRatio: 1}, "v1.0.0", zap.NewNop())
	require.NoError(t, err)
	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestClampRatio(t *testing.T) {
	assert.InDelta(t, 0.1, clampRatio(0), 1e-9)
	assert.InDelta(t, 0.0, clampRatio(-2), 1e-9)
	assert.InDelta(t, 1.0, clampRatio(3), 1e-9)
	assert.InDelta(t, 0.5, clampRatio(0.5), 1e-9)
}
