package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer_Disabled(t *testing.T) {
	tp, err := InitTracer(Config{ServiceName: "waxfeed-test"})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, Shutdown(tp, time.Second))
}

func TestInitTracer_RejectsBadSamplingRate(t *testing.T) {
	_, err := InitTracer(Config{Enabled: true, OTLPEndpoint: "localhost:4318", SamplingRate: 1.5})
	assert.Error(t, err)
}

func TestInitTracer_InstallsProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tp, err := InitTracer(Config{
		ServiceName:  "waxfeed-test",
		Environment:  "test",
		OTLPEndpoint: "localhost:4318",
		Enabled:      true,
		Insecure:     true,
		SamplingRate: 0.5,
	})
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.Same(t, tp, otel.GetTracerProvider())
	assert.NoError(t, Shutdown(tp, time.Second))
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}
