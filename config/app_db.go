package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/retry"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string // Default: "require" for prod safety

	// ConnectAttempts bounds retries of the initial connection (DB_CONNECT_ATTEMPTS).
	ConnectAttempts  int
	ConnectBaseDelay time.Duration
}

func (cfg *DBConfig) applyDefaults() {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 100
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = time.Minute
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "require"
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = utils.GetPositiveIntEnv("DB_CONNECT_ATTEMPTS", 3)
	}
	if cfg.ConnectBaseDelay <= 0 {
		cfg.ConnectBaseDelay = 500 * time.Millisecond
	}
}

// NewDatabase opens the waitlist store. DB_DRIVER selects postgres (default) or sqlite
// for local development. Transient connection failures are retried with backoff.
func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = &DBConfig{}
	}
	cfg.applyDefaults()

	dialector, err := buildDialector(logger, cfg)
	if err != nil {
		return nil, err
	}

	policy := retry.NewExponentialBackoff(&retry.Config{
		MaxAttempts: cfg.ConnectAttempts,
		BaseDelay:   cfg.ConnectBaseDelay,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("Database connection failed, retrying",
				"attempt", attempt,
				"max_attempts", cfg.ConnectAttempts,
				"retry_in", delay.String(),
				"error", err,
			)
		},
	})

	var gdb *gorm.DB
	err = policy.Execute(context.Background(), func() error {
		var openErr error
		gdb, openErr = openDatabase(dialector, cfg)
		return openErr
	})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Database connection established successfully", "driver", dialector.Name())
	return gdb, nil
}

func openDatabase(dialector gorm.Dialector, cfg *DBConfig) (*gorm.DB, error) {
	// TranslateError maps driver unique violations to gorm.ErrDuplicatedKey.
	gdb, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return gdb, nil
}

func buildDialector(logger *log.Logger, cfg *DBConfig) (gorm.Dialector, error) {
	driver := strings.ToLower(sanitizeEnv(GetValueFromEnvironmentVariable("DB_DRIVER", DBDriverPostgres)))

	switch driver {
	case "", DBDriverPostgres, "postgresql":
		dsn, err := buildDSNFromEnv(sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_URL", "")), logger, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	case DBDriverSQLite:
		path := sanitizeEnv(GetValueFromEnvironmentVariable("SQLITE_PATH", "waitlist.db"))
		logger.Info("Using sqlite database", "path", path)
		return sqlite.Open(path), nil
	default:
		logger.Error("Unsupported DB_DRIVER", "driver", driver)
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (allowed: postgres, sqlite)", driver)
	}
}

func buildDSNFromEnv(appDatabaseURL string, logger *log.Logger, cfg *DBConfig) (string, error) {
	if strings.TrimSpace(appDatabaseURL) != "" {
		logger.Info("Using APP_DATABASE_URL for database connection")
		return appDatabaseURL, nil
	}

	host, portStr, user, pass, dbName, ssl := getDatabaseEnvParams()
	if ssl == "" {
		ssl = cfg.SSLMode
	}

	missing := []string{}

	if host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}

	if portStr == "" {
		missing = append(missing, "POSTGRES_PORT")
	}

	if user == "" {
		missing = append(missing, "POSTGRES_USER")
	}

	if dbName == "" {
		missing = append(missing, "POSTGRES_DB_NAME")
	}

	if len(missing) > 0 {
		logger.Error("Missing required database environment variables", "missing_vars", strings.Join(missing, ", "))

		return "", fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		logger.Error("Invalid POSTGRES_PORT", "error", err)
		return "", fmt.Errorf("invalid POSTGRES_PORT %q: %w", portStr, err)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, pass, dbName, ssl,
	)

	logger.Info("Connecting to database",
		"host", host,
		"port", port,
		"user", user,
		"dbname", dbName,
		"sslmode", ssl,
	)
	return dsn, nil
}

func getDatabaseEnvParams() (host, port, user, pass, dbName, ssl string) {
	host = sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_HOST", ""))
	port = sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_PORT", ""))
	user = sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_USER", ""))
	pass = sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_PASSWORD", ""))
	dbName = sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_DB_NAME", ""))
	ssl = sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_SSLMODE", ""))

	return host, port, user, pass, dbName, ssl
}

func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)

	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}

	return s
}

func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...interface{}) error {
	if db == nil {
		logger.Error("Cannot migrate: db is empty")
		return fmt.Errorf("cannot migrate: db is empty")
	}

	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", "error", err)
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database migration completed successfully")

	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	} else {
		logger.Info("Database closed successfully")
	}
}
