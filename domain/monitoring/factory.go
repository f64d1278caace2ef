package monitoring

import (
	"context"

	"github.com/seirennn/tradeworkstation-waitlist/config/router"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
	"gorm.io/gorm"
)

// MonitoringCache is satisfied by config.Cache.
type MonitoringCache interface {
	Ping(ctx context.Context) error
}

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	db      *gorm.DB
	logger  *log.Logger
	cache   MonitoringCache
	limiter ratelimit.WindowLimiter
}

func NewMonitoringControllerFactory(db *gorm.DB, logger *log.Logger, cache MonitoringCache, limiter ratelimit.WindowLimiter) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		db:      db,
		logger:  logger,
		cache:   cache,
		limiter: limiter,
	}
}

// CreateController unwraps a nil cache so the controller sees an untyped nil.
func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	var cache Cache
	if f.cache != nil {
		cache = f.cache
	}
	return NewMonitoringController(f.db, f.logger, cache, f.limiter)
}
