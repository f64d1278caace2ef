package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))

	if v == "" {
		return defaultValue
	}

	return v
}

// GetPositiveIntEnv returns defaultValue unless key holds an integer greater than zero.
func GetPositiveIntEnv(key string, defaultValue int) int {
	raw := GetEnvTrimmed(key)
	if raw == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return defaultValue
	}

	return parsed
}

// GetPositiveDurationEnv returns defaultValue unless key holds a duration greater than zero.
func GetPositiveDurationEnv(key string, defaultValue time.Duration) time.Duration {
	raw := GetEnvTrimmed(key)
	if raw == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return defaultValue
	}

	return parsed
}

// GetBoolEnv returns defaultValue when key is unset or not a valid strconv.ParseBool value.
func GetBoolEnv(key string, defaultValue bool) bool {
	raw := GetEnvTrimmed(key)
	if raw == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}

	return parsed
}

// TracingEnabled reports OTEL_TRACES_ENABLED; tracing is off unless set to a true value.
func TracingEnabled() bool {
	return GetBoolEnv("OTEL_TRACES_ENABLED", false)
}

func TracingServiceName() string {
	return GetEnvTrimmedOrDefault("OTEL_SERVICE_NAME", "tradeworkstation-waitlist")
}
