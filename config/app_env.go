package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
)

const (
	AppEnvKey  = "APP_ENV"
	envFileKey = "ENV_FILE"
)

// schemaMutableEnvs are the APP_ENV values under which the server may create tables itself.
var schemaMutableEnvs = map[string]struct{}{
	"":            {},
	"dev":         {},
	"development": {},
	"local":       {},
	"test":        {},
	"testing":     {},
}

// envFiles returns the dotenv files to load. ENV_FILE takes a comma separated list;
// earlier files win because godotenv never overrides a variable that is already set.
func envFiles() []string {
	raw := strings.TrimSpace(os.Getenv(envFileKey))
	if raw == "" {
		return []string{".env"}
	}

	var files []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// InitializeEnvFile loads dotenv files into the process environment. SKIP_DOTENV=true
// disables it for container deployments where the environment is injected.
func InitializeEnvFile(logger *log.Logger) {
	if os.Getenv("SKIP_DOTENV") == "true" {
		logger.Info("Skipping dotenv load (SKIP_DOTENV=true)")
		return
	}

	for _, file := range envFiles() {
		if err := godotenv.Load(file); err != nil {
			logger.Warn("Env file not loaded", "file", file, "error", err.Error())
			continue
		}
		logger.Info("Env file loaded", "file", file)
	}
}

// GetValueFromEnvironmentVariable returns defaultValue only when key is unset; a set but
// empty variable is returned as is.
func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func GetAppEnv() string {
	return normalizeAppEnv(os.Getenv(AppEnvKey))
}

func normalizeAppEnv(env string) string {
	return strings.ToLower(strings.TrimSpace(env))
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	env := normalizeAppEnv(appEnv)
	if _, ok := schemaMutableEnvs[env]; ok {
		return nil
	}

	allowed := make([]string, 0, len(schemaMutableEnvs))
	for name := range schemaMutableEnvs {
		allowed = append(allowed, fmt.Sprintf("%q", name))
	}
	sort.Strings(allowed)

	return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: %s)", AppEnvKey, env, strings.Join(allowed, ", "))
}
