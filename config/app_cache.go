package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	pkgredis "github.com/seirennn/tradeworkstation-waitlist/pkg/redis"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/utils"
)

// Cache is the shared Redis connection. The waitlist and router limiters reuse its
// client when WAITLIST_RATE_LIMIT_STORE=redis.
type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	// Set uses ttl=0 for no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

var ErrCacheNotConfigured = errors.New("cache host is not configured")

// CacheConfig is read from REDIS_URL when set (redis:// or rediss://), otherwise from
// REDIS_HOST, REDIS_PORT, REDIS_PASSWORD and REDIS_DB.
type CacheConfig struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

func NewCacheConfig() *CacheConfig {
	cc := &CacheConfig{
		URL:      utils.GetEnvTrimmed("REDIS_URL"),
		Host:     utils.GetEnvTrimmed("REDIS_HOST"),
		Port:     utils.GetEnvTrimmedOrDefault("REDIS_PORT", "6379"),
		Password: GetValueFromEnvironmentVariable("REDIS_PASSWORD", ""),
	}

	if db, err := strconv.Atoi(utils.GetEnvTrimmed("REDIS_DB")); err == nil && db >= 0 {
		cc.DB = db
	}

	return cc
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.URL != "" || cc.Host != ""
}

func (cc *CacheConfig) redisConfig() (*pkgredis.Config, error) {
	if cc.URL == "" {
		return &pkgredis.Config{
			Host:     cc.Host,
			Port:     cc.Port,
			Password: cc.Password,
			DB:       cc.DB,
		}, nil
	}

	opts, err := redis.ParseURL(cc.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	host, port, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL address %q: %w", opts.Addr, err)
	}

	return &pkgredis.Config{
		Host:      host,
		Port:      port,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}

func (cc *CacheConfig) NewCache(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	cfg, err := cc.redisConfig()
	if err != nil {
		logger.Error("Invalid cache (Redis) configuration", "error", err)
		return nil, err
	}

	cache, err := pkgredis.NewRedisCache(cfg)
	if err != nil {
		logger.Error("Failed to connect to cache (Redis)", "addr", cfg.Addr(), "error", err)
		return nil, err
	}

	logger.Info("Cache (Redis) connected", "addr", cfg.Addr(), "db", cfg.DB, "tls", cfg.TLSConfig != nil)
	return cache, nil
}

// NewCacheOrNil returns nil when Redis is not configured or unreachable; the limiters
// then run in process.
func (cc *CacheConfig) NewCacheOrNil(logger *log.Logger) Cache {
	if !cc.IsConfigured() {
		logger.Info("Cache (Redis) is not configured; using in-memory rate limiting")
		return nil
	}

	cache, err := cc.NewCache(logger)
	if err != nil {
		logger.Warn("Proceeding without cache (Redis); using in-memory rate limiting", "error", err)
		return nil
	}
	return cache
}

func CloseCache(cache Cache, logger *log.Logger) error {
	if cache == nil {
		return nil
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close cache", "error", err)
		return err
	}

	logger.Info("Cache connection closed")
	return nil
}
