package router

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seirennn/tradeworkstation-waitlist/internal/log"
	apperrors "github.com/seirennn/tradeworkstation-waitlist/pkg/errors"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
)

const correlationHeader = "X-Correlation-ID"

func (routerService *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlationHeader)
		if id == "" {
			id = log.GenerateCorrelationID()
		}
		c.Request = c.Request.WithContext(log.ContextWithCorrelationID(c.Request.Context(), id))
		c.Header(correlationHeader, id)
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		c.Request = c.Request.WithContext(log.ContextWithLogger(ctx, routerService.logger.WithCorrelationID(ctx)))
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		routerService.GetLogger(c).Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

// timeoutMiddleware puts a deadline on the request context. The chain still runs on the
// serving goroutine because gin.Context is not safe for concurrent use; a handler that
// overruns without writing gets a 408.
func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), routerService.requestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			routerService.GetLogger(c).Warn("Request timed out", "timeout", routerService.requestTimeout)
			routerService.reject(c, apperrors.StatusRequestTimeout, "Request timeout", nil)
		}
	}
}

// limiterFor returns the handler override for the matched route, or the router-wide
// limiter. Unmatched requests are limited too so that probing is not free. A nil
// limiter with ok set means the route is exempt.
func (routerService *RouterService) limiterFor(c *gin.Context) (ratelimit.RateLimiter, bool) {
	route := c.FullPath()
	if route == "" {
		return routerService.rateLimiter, true
	}

	key := routeKey{method: c.Request.Method, path: route}
	owner, ok := routerService.routes[key]
	if !ok {
		return nil, false
	}
	if limiter, ok := routerService.limiters[key]; ok {
		return limiter, true
	}
	if owner.skipRouterLimit {
		return nil, true
	}
	return routerService.rateLimiter, true
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		limiter, ok := routerService.limiterFor(c)
		if !ok {
			// Routes registered on the engine directly bypass MountController.
			routerService.logger.Error("Handler has no controller mapping", "method", c.Request.Method, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusNotFound, NotFoundResult("No handler is configured for "+c.Request.URL.Path).ToJSON())
			return
		}

		if limiter == nil {
			c.Next()
			return
		}

		limit, window := limiter.GetLimitDetails()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Window", window.String())

		limited, err := limiter.IsLimited(clientIP)
		if err != nil {
			// Fail open so a broken limiter store does not take the API down.
			routerService.logger.Error("Rate limiter error", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}
		if !limited {
			c.Next()
			return
		}

		retryAfter := strconv.Itoa(max(1, int(math.Ceil(window.Seconds()))))
		routerService.logger.Warn("Rate limit exceeded", "client_ip", clientIP, "path", c.Request.URL.Path)
		c.Header("Retry-After", retryAfter)
		routerService.reject(c, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), RateLimitResponse{
			Limit:      limit,
			Window:     window.String(),
			RetryAfter: retryAfter,
		})
	}
}
