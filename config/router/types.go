package router

import (
	"github.com/gin-gonic/gin"
)

type (
	RequestContext  = gin.Context
	MiddlewareFunc  = gin.HandlerFunc
	HandlerFunction func(*RequestContext) *ServiceResult
)

// ServiceResult is what handlers return. It is rendered as the {code,data,message}
// envelope unless Body is set.
type ServiceResult struct {
	StatusCode int    `json:"code"`
	Data       any    `json:"data"`
	Message    string `json:"message"`

	Body any `json:"-"`
}

// RateLimitResponse is the data of a router-level 429.
type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

// RESTController groups handlers under one mount point. prepare registers them when the
// controller is mounted.
type RESTController struct {
	name         string
	mountPoint   string
	handlerCount int
	prepare      func(*RouterService, *RESTController)

	rejection       RejectionRenderer
	skipRouterLimit bool
}

// RejectionRenderer shapes the responses the router writes for a controller's routes
// before the handler runs, such as 413 or 429. It returns the status and body to send.
type RejectionRenderer func(status int, message string) (int, any)

type ControllerOption func(*RESTController)

func WithRejectionRenderer(render RejectionRenderer) ControllerOption {
	return func(c *RESTController) { c.rejection = render }
}

// WithoutRouterRateLimit exempts the controller's routes from the router-wide limiter.
// Use it for routes that enforce their own quota.
func WithoutRouterRateLimit() ControllerOption {
	return func(c *RESTController) { c.skipRouterLimit = true }
}

func (result *ServiceResult) ToJSON() gin.H {
	return gin.H{
		"code":    result.StatusCode,
		"data":    result.Data,
		"message": result.Message,
	}
}

func (result *ServiceResult) Payload() any {
	if result.Body != nil {
		return result.Body
	}
	return result.ToJSON()
}
