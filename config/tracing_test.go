package config

import (
	"testing"

	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOTLPEndpoint(t *testing.T) {
	cases := []struct {
		raw    string
		host   string
		path   string
		scheme string
	}{
		{"http://collector:4318", "collector:4318", "/v1/traces", "http"},
		{"HTTPS://otel.example.com/custom/traces", "otel.example.com", "/custom/traces", "https"},
		{"localhost:4318", "localhost:4318", "/v1/traces", "http"},
	}

	for _, tc := range cases {
		u, err := parseOTLPEndpoint(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.host, u.Host)
		assert.Equal(t, tc.path, u.Path)
		assert.Equal(t, tc.scheme, u.Scheme)
	}

	for _, raw := range []string{"", "   ", "localhost:4318/v1/traces", "grpc://collector:4317", "http://"} {
		_, err := parseOTLPEndpoint(raw)
		assert.Error(t, err, raw)
	}
}

func TestNewTracingConfig(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("APP_ENV", "Production")

	cfg := NewTracingConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "tradeworkstation-waitlist", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 0.25, cfg.SampleRatio)

	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "7")
	assert.Equal(t, float64(1), NewTracingConfig().SampleRatio)
}

func TestSetupTracing_DisabledReturnsNilShutdown(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "false")

	shutdown, err := SetupTracing(log.NewLoggerWithJSONOutput())

	require.NoError(t, err)
	assert.Nil(t, shutdown)
}
