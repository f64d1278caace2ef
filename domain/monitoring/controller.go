package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/seirennn/tradeworkstation-waitlist/config/router"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
	"gorm.io/gorm"
)

type Cache interface {
	Ping(ctx context.Context) error
}

// LimiterStats is implemented by limiters that track identities in process.
type LimiterStats interface {
	Len() int
	Evictions() uint64
}

type HealthStatus struct {
	// 1 when the dependency answered a ping. Cache is 0 when Redis is not configured.
	Database int `json:"database"`
	Cache    int `json:"cache"`
	Uptime   int `json:"uptime"` // seconds

	// Present only for the in-memory waitlist limiter.
	TrackedIdentities *int    `json:"tracked_identities,omitempty"`
	LimiterEvictions  *uint64 `json:"limiter_evictions,omitempty"`
}

type MonitoringController struct {
	db        *gorm.DB
	logger    *log.Logger
	cache     Cache
	limiter   ratelimit.WindowLimiter
	startTime time.Time
}

const (
	monitoringRequestsPerMinute = 10
	pingTimeout                 = 2 * time.Second
)

func NewMonitoringController(db *gorm.DB, logger *log.Logger, cache Cache, limiter ratelimit.WindowLimiter) *router.RESTController {
	ctrl := &MonitoringController{
		db:        db,
		logger:    logger,
		cache:     cache,
		limiter:   limiter,
		startTime: time.Now(),
	}

	return router.NewRESTController("MonitoringController", "/", func(rs *router.RouterService, controller *router.RESTController) {
		// Health endpoints share a stricter limit than the API.
		healthLimiter := ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
			Requests: monitoringRequestsPerMinute,
			Window:   time.Minute,
		})

		rs.AddGetHandler(controller, healthLimiter, "", ctrl.monitor)
		rs.AddGetHandler(controller, healthLimiter, "health", func(c *router.RequestContext) *router.ServiceResult {
			return ctrl.healthCheck(rs.GetLogger(c), c)
		})
	})
}

func (ctrl *MonitoringController) healthCheck(logger *log.Logger, c *router.RequestContext) *router.ServiceResult {
	status := ctrl.performHealthChecks(c.Request.Context(), logger)
	logger.Info("Health check completed", "database", status.Database, "cache", status.Cache)

	return router.OKResult(status, "waitlist health check completed")
}

func (ctrl *MonitoringController) monitor(*router.RequestContext) *router.ServiceResult {
	return router.OKResult("Waitlist service is operational.", "Monitoring successful")
}

// performHealthChecks always answers; a failing dependency is reported as 0.
func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
	}

	if err := ctrl.pingDatabase(ctx); err != nil {
		logger.Error("Database health check failed", "error", err)
	} else {
		status.Database = 1
	}

	switch {
	case ctrl.cache == nil:
		logger.Debug("Cache not configured, cache health check skipped")
	case ctrl.pingCache(ctx) != nil:
		logger.Error("Cache health check failed")
	default:
		status.Cache = 1
	}

	if stats, ok := ctrl.limiter.(LimiterStats); ok {
		tracked, evictions := stats.Len(), stats.Evictions()
		status.TrackedIdentities = &tracked
		status.LimiterEvictions = &evictions
	}

	return status
}

func (ctrl *MonitoringController) pingDatabase(ctx context.Context) error {
	if ctrl.db == nil {
		return errors.New("database not configured")
	}

	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (ctrl *MonitoringController) pingCache(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return ctrl.cache.Ping(ctx)
}
