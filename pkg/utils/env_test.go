package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetPositiveIntEnv(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 5},
		{"valid", "12", 12},
		{"padded", "  7 ", 7},
		{"zero", "0", 5},
		{"negative", "-3", 5},
		{"garbage", "five", 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_INT_ENV", tc.value)
			assert.Equal(t, tc.want, GetPositiveIntEnv("TEST_INT_ENV", 5))
		})
	}
}

func TestGetPositiveDurationEnv(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset", "", 30 * time.Minute},
		{"valid", "90s", 90 * time.Second},
		{"zero", "0s", 30 * time.Minute},
		{"bare number", "30", 30 * time.Minute},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION_ENV", tc.value)
			assert.Equal(t, tc.want, GetPositiveDurationEnv("TEST_DURATION_ENV", 30*time.Minute))
		})
	}
}

func TestGetEnvTrimmedOrDefault(t *testing.T) {
	t.Setenv("TEST_TRIMMED_ENV", "   ")
	assert.Equal(t, "fallback", GetEnvTrimmedOrDefault("TEST_TRIMMED_ENV", "fallback"))

	t.Setenv("TEST_TRIMMED_ENV", " value ")
	assert.Equal(t, "value", GetEnvTrimmedOrDefault("TEST_TRIMMED_ENV", "fallback"))
}

func TestGetBoolEnv(t *testing.T) {
	t.Setenv("TEST_BOOL_ENV", "")
	assert.True(t, GetBoolEnv("TEST_BOOL_ENV", true))

	t.Setenv("TEST_BOOL_ENV", " false ")
	assert.False(t, GetBoolEnv("TEST_BOOL_ENV", true))

	t.Setenv("TEST_BOOL_ENV", "yes please")
	assert.True(t, GetBoolEnv("TEST_BOOL_ENV", true))
}

func TestTracingDefaults(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "")
	t.Setenv("OTEL_SERVICE_NAME", "")

	assert.False(t, TracingEnabled())
	assert.Equal(t, "tradeworkstation-waitlist", TracingServiceName())
}
