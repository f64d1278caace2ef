package waitlist

import (
	"github.com/seirennn/tradeworkstation-waitlist/config/router"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
	"gorm.io/gorm"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	db      *gorm.DB
	logger  *log.Logger
	limiter ratelimit.WindowLimiter
}

func NewWaitlistServiceFactory(db *gorm.DB, logger *log.Logger, limiter ratelimit.WindowLimiter) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		db:      db,
		logger:  logger,
		limiter: limiter,
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	repository := NewWaitlistRepository(f.db, NewPersistenceBreaker(f.logger))
	return NewWaitlistService(f.logger, repository, f.limiter)
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewJoinController(f.CreateService())
}
