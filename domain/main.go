package domain

import (
	"github.com/seirennn/tradeworkstation-waitlist/config"
	"github.com/seirennn/tradeworkstation-waitlist/domain/monitoring"
	"github.com/seirennn/tradeworkstation-waitlist/domain/waitlist"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	var cache monitoring.MonitoringCache
	if appConfig.Cache != nil {
		cache = appConfig.Cache
	}

	appConfig.RouterService.MountController(
		monitoring.NewMonitoringControllerFactory(appConfig.DB, appConfig.Logger, cache, appConfig.WaitlistLimiter).CreateController(),
	)
	appConfig.RouterService.MountController(
		waitlist.NewWaitlistServiceFactory(appConfig.DB, appConfig.Logger, appConfig.WaitlistLimiter).CreateController(),
	)
}
