package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	apperrors "github.com/seirennn/tradeworkstation-waitlist/pkg/errors"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/utils"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const DefaultTimeoutDuration = 30 * time.Second

type RouterService struct {
	engine          *gin.Engine
	server          *http.Server
	logger          *log.Logger
	rateLimiter     ratelimit.RateLimiter
	requestTimeout  time.Duration
	metricsRegistry *prometheus.Registry

	// routes maps every registered method and path to its controller; limiters holds
	// per-handler overrides of rateLimiter.
	routes   map[routeKey]*RESTController
	limiters map[routeKey]ratelimit.RateLimiter
}

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration

	// RateLimiter, when set, replaces the in-memory limiter built from
	// RateLimitRequests and RateLimitWindow.
	RateLimiter ratelimit.RateLimiter
}

func CreateRouterService(logger *log.Logger, routerConfig *RouterConfig) *RouterService {
	if mode := utils.GetEnvTrimmed("GIN_MODE"); mode != "" {
		logger.Info("Setting Gin mode", "mode", mode)
		gin.SetMode(mode)
	}

	timeout := routerConfig.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeoutDuration
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = true

	rs := &RouterService{
		engine:         engine,
		logger:         logger,
		requestTimeout: timeout,
		rateLimiter:    routerConfig.RateLimiter,
		routes:         make(map[routeKey]*RESTController),
		limiters:       make(map[routeKey]ratelimit.RateLimiter),
	}

	if rs.rateLimiter == nil {
		rs.rateLimiter = ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
			Requests: routerConfig.RateLimitRequests,
			Window:   routerConfig.RateLimitWindow,
			Logger:   logger,
		})
	}
	requests, window := rs.rateLimiter.GetLimitDetails()
	logger.Info("Router rate limiting initialized",
		"limiter", fmt.Sprintf("%T", rs.rateLimiter),
		"requests", requests,
		"window", window,
	)

	engine.Use(gin.Recovery())
	if utils.TracingEnabled() {
		engine.Use(otelgin.Middleware(utils.TracingServiceName()))
		logger.Info("Tracing middleware enabled")
	}

	rs.configureTrustedProxies()

	// Mounted before the remaining middleware so scrapes bypass rate limiting.
	rs.mountMetrics()

	engine.Use(rs.securityHeadersMiddleware(), rs.maxBodySizeMiddleware())
	if corsHandler := rs.corsMiddleware(); corsHandler != nil {
		engine.Use(corsHandler)
	}
	engine.Use(
		rs.rateLimitMiddleware(),
		rs.timeoutMiddleware(),
		rs.correlationIDMiddleware(),
		rs.loggerInjectionMiddleware(),
		rs.requestLoggingMiddleware(),
	)

	engine.NoRoute(rs.fallbackHandler(apperrors.StatusNotFound, "Route not found"))
	engine.NoMethod(rs.fallbackHandler(apperrors.StatusMethodNotAllowed, "Method not allowed"))

	// Handlers run on the serving goroutine; the server timeouts bound them.
	rs.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized")
	return rs
}

func (routerService *RouterService) fallbackHandler(status int, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		routerService.GetLogger(c).Warn(message, "method", c.Request.Method, "path", c.Request.URL.Path)
		c.JSON(status, ErrorResult(status, message, nil).ToJSON())
	}
}

// MetricsRegisterer is where controllers register their own collectors. When metrics
// are disabled the registry exists but is never exposed.
func (routerService *RouterService) MetricsRegisterer() prometheus.Registerer {
	return routerService.metricsRegistry
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return routerService.logger.WithCorrelationID(c.Request.Context())
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"handlers", controller.handlerCount,
	)
}

// RunHTTPServer blocks until the server stops. A graceful Shutdown returns nil.
func (routerService *RouterService) RunHTTPServer() error {
	routerService.server.Addr = ":" + utils.GetEnvTrimmedOrDefault("APP_PORT", "8080")
	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	err := routerService.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("HTTP server: %w", err)
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server")
	return routerService.server.Shutdown(ctx)
}

func (routerService *RouterService) Cleanup() {
	closed := map[ratelimit.RateLimiter]struct{}{}
	for _, limiter := range append(mapValues(routerService.limiters), routerService.rateLimiter) {
		if _, done := closed[limiter]; done || limiter == nil {
			continue
		}
		closed[limiter] = struct{}{}
		if err := limiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func mapValues[K comparable, V any](m map[K]V) []V {
	values := make([]V, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return values
}
