package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/seirennn/tradeworkstation-waitlist/config/router"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/internal/models"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/constants"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/factory"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/utils"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	WaitlistLimiter ratelimit.WindowLimiter
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration

	// Per-identity quota on waitlist submissions.
	JoinAttempts          int
	JoinWindow            time.Duration
	JoinTrackedIdentities int
	JoinLimiterStore      string
}

func NewAppConfig() *AppConfig {
	config := &AppConfig{
		RateLimitRequests: constants.DefaultRateLimitRequests,
		RateLimitWindow:   constants.DefaultRateLimitWindow(),
		RequestTimeout:    30 * time.Second, // Default request timeout
	}

	// Override from environment variables
	if reqStr := os.Getenv("RATE_LIMIT_REQUESTS"); reqStr != "" {
		if parsed, err := strconv.Atoi(reqStr); err == nil && parsed > 0 {
			config.RateLimitRequests = parsed
		}
	}

	if winStr := os.Getenv("RATE_LIMIT_WINDOW"); winStr != "" {
		if parsed, err := time.ParseDuration(winStr); err == nil && parsed > 0 {
			config.RateLimitWindow = parsed
		}
	}

	if timeoutStr := os.Getenv("REQUEST_TIMEOUT"); timeoutStr != "" {
		if parsed, err := time.ParseDuration(timeoutStr); err == nil && parsed > 0 {
			config.RequestTimeout = parsed
		}
	}

	config.JoinAttempts = utils.GetPositiveIntEnv("WAITLIST_RATE_LIMIT_ATTEMPTS", constants.DefaultJoinAttemptsPerWindow)
	config.JoinWindow = utils.GetPositiveDurationEnv("WAITLIST_RATE_LIMIT_WINDOW", constants.DefaultJoinWindow())
	config.JoinTrackedIdentities = utils.GetPositiveIntEnv("WAITLIST_RATE_LIMIT_MAX_ENTRIES", constants.DefaultJoinTrackedIdentities)
	config.JoinLimiterStore = utils.GetEnvTrimmedOrDefault("WAITLIST_RATE_LIMIT_STORE", constants.RateLimitStoreMemory)

	return config
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.WaitlistLimiter != nil {
		if err := ac.WaitlistLimiter.Close(); err != nil {
			ac.Logger.Error("Failed to close waitlist rate limiter", "error", err)
		}
	}

	// The Redis limiters share the cache client, so the cache closes last.
	if ac.Cache != nil {
		CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	db, err := NewDatabase(logger, nil)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	appConfig := NewAppConfig()
	cache := NewCacheConfig().NewCacheOrNil(logger)

	limiters := NewFactoryContainer(logger, appConfig, cache)

	waitlistLimiter, err := NewWaitlistLimiter(logger, limiters)
	if err != nil {
		CloseDatabase(db, logger)
		return nil, err
	}

	routerService := router.CreateRouterService(logger, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
		RateLimiter:       limiters.RateLimiterFactory.CreateRateLimiter(),
	})

	logger.Info("Application configuration loaded successfully")

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Config:          appConfig,
		WaitlistLimiter: waitlistLimiter,
		TracingShutdown: tracingShutdown,
	}, nil
}

// NewFactoryContainer wires the router-wide and waitlist limiters to the shared cache.
// A nil cache selects the in-memory limiters.
func NewFactoryContainer(logger *log.Logger, appConfig *AppConfig, cache Cache) *factory.FactoryContainer {
	var factoryCache factory.Cache
	if cache != nil {
		factoryCache = cache
	}

	return factory.NewFactoryContainer(
		&factory.RateLimitConfig{
			Requests: appConfig.RateLimitRequests,
			Window:   appConfig.RateLimitWindow,
			Logger:   logger,
		},
		factory.WindowLimitConfig{
			MaxAttempts: appConfig.JoinAttempts,
			Window:      appConfig.JoinWindow,
			MaxEntries:  appConfig.JoinTrackedIdentities,
			Store:       appConfig.JoinLimiterStore,
			Logger:      logger,
		},
		factoryCache,
	)
}

// NewWaitlistLimiter builds the limiter guarding waitlist submissions.
func NewWaitlistLimiter(logger *log.Logger, limiters *factory.FactoryContainer) (ratelimit.WindowLimiter, error) {
	limiter, err := limiters.WindowLimiterFactory.CreateWindowLimiter()
	if err != nil {
		logger.Error("Failed to create waitlist rate limiter", "error", err)
		return nil, fmt.Errorf("create waitlist rate limiter: %w", err)
	}

	attempts, window := limiter.GetLimitDetails()
	logger.Info("Waitlist rate limiter initialized",
		"limiter", fmt.Sprintf("%T", limiter),
		"attempts", attempts,
		"window", window,
	)

	return limiter, nil
}
