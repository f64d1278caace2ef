package router

import (
	"fmt"
	"net/http"
	"path"

	"github.com/seirennn/tradeworkstation-waitlist/pkg/ratelimit"
)

type routeKey struct {
	method string
	path   string
}

// joinRoute cleans mountPoint/relativePath into an absolute path without a trailing slash.
func joinRoute(mountPoint, relativePath string) string {
	return path.Clean("/" + mountPoint + "/" + relativePath)
}

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController), opts ...ControllerOption) *RESTController {
	c := &RESTController{
		name:       name,
		mountPoint: joinRoute(mountPoint, ""),
		prepare:    prepare,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// controllerFor returns the controller owning the matched route, or nil.
func (routerService *RouterService) controllerFor(c *RequestContext) *RESTController {
	route := c.FullPath()
	if route == "" {
		return nil
	}
	return routerService.routes[routeKey{method: c.Request.Method, path: route}]
}

// reject aborts with the owning controller's rejection shape, or the standard envelope.
func (routerService *RouterService) reject(c *RequestContext, status int, message string, data any) {
	if owner := routerService.controllerFor(c); owner != nil && owner.rejection != nil {
		code, body := owner.rejection(status, message)
		c.AbortWithStatusJSON(code, body)
		return
	}
	c.AbortWithStatusJSON(status, ErrorResult(status, message, data).ToJSON())
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodPost, controller, limiter, path, handler, middlewares)
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodGet, controller, limiter, path, handler, middlewares)
}

// addHandler panics when the method and path are already bound. A nil limiter keeps
// the router-wide one.
func (routerService *RouterService) addHandler(
	method string,
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	relativePath string,
	handler HandlerFunction,
	middlewares []MiddlewareFunc,
) {
	key := routeKey{method: method, path: joinRoute(controller.mountPoint, relativePath)}
	if owner, taken := routerService.routes[key]; taken {
		panic(fmt.Sprintf("%s %s is already registered by controller %q", key.method, key.path, owner.name))
	}

	routerService.routes[key] = controller
	if limiter != nil {
		routerService.limiters[key] = limiter
	}
	controller.handlerCount++

	routerService.engine.Handle(method, key.path, append(middlewares, writeResult(handler))...)
	routerService.logger.Debug("Handler registered", "controller", controller.name, "method", method, "path", key.path)
}

func writeResult(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)
		if result == nil {
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("handler returned no result").ToJSON())
			return
		}
		c.JSON(result.StatusCode, result.Payload())
	}
}
