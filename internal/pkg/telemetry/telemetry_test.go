package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/your-org/storefront-backend/internal/config"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), &config.Config{}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupStdoutExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := &config.Config{
		App:     config.AppConfig{Name: "storefront", Version: "test", Environment: "test"},
		Tracing: config.TracingConfig{Enabled: true, Exporter: "stdout", SampleRatio: 1},
	}

	var out bytes.Buffer
	shutdown, err := setup(context.Background(), cfg, nil, &out)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "checkout.PlaceOrder")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, out.String(), "checkout.PlaceOrder")
}

func TestUnknownExporter(t *testing.T) {
	cfg := &config.Config{Tracing: config.TracingConfig{Enabled: true, Exporter: "zipkin"}}
	_, err := setup(context.Background(), cfg, nil, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 0.25, clampRatio(0.25))
	assert.Equal(t, 1.0, clampRatio(3))
}
