package router

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/seirennn/tradeworkstation-waitlist/pkg/utils"
)

const (
	defaultMaxBodyBytes = 1 << 20
	defaultHSTSMaxAge   = 365 * 24 * 60 * 60
)

// configureTrustedProxies reads TRUSTED_PROXIES. Gin trusts every proxy by default,
// which lets any client spoof ClientIP through X-Forwarded-For; unset means none.
func (routerService *RouterService) configureTrustedProxies() {
	proxies := parseTrustedProxiesEnv(utils.GetEnvTrimmed("TRUSTED_PROXIES"))
	if err := routerService.engine.SetTrustedProxies(proxies); err != nil {
		routerService.logger.Error("Invalid TRUSTED_PROXIES; trusting no proxies", "error", err)
		_ = routerService.engine.SetTrustedProxies(nil)
		return
	}
	if proxies == nil {
		routerService.logger.Info("Trusted proxies disabled (TRUSTED_PROXIES not set)")
	}
}

// parseTrustedProxiesEnv accepts a comma separated list of IPs or CIDRs. "*" trusts
// everything and is meant for local development.
func parseTrustedProxiesEnv(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "*" {
		return []string{"0.0.0.0/0", "::/0"}
	}

	var proxies []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	return proxies
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	hsts := hstsHeaderValue()

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if hsts != "" && isHTTPS(c) {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}

// hstsHeaderValue is empty when HSTS is off. HSTS_ENABLED defaults to true only in
// production.
func hstsHeaderValue() string {
	appEnv := strings.ToLower(utils.GetEnvTrimmed("APP_ENV"))
	if !utils.GetBoolEnv("HSTS_ENABLED", appEnv == "production" || appEnv == "prod") {
		return ""
	}

	value := fmt.Sprintf("max-age=%d", utils.GetPositiveIntEnv("HSTS_MAX_AGE", defaultHSTSMaxAge))
	if utils.GetBoolEnv("HSTS_INCLUDE_SUBDOMAINS", true) {
		value += "; includeSubDomains"
	}
	return value
}

// isHTTPS also honours X-Forwarded-Proto for TLS terminated at a reverse proxy.
func isHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := int64(utils.GetPositiveIntEnv("MAX_REQUEST_BODY_BYTES", defaultMaxBodyBytes))

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			routerService.reject(c, http.StatusRequestEntityTooLarge, "Request payload too large", nil)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// corsMiddleware returns nil when CORS_ALLOWED_ORIGIN is unset, which leaves
// cross-origin browser requests without CORS headers.
func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	cfg, ok := corsConfigFromEnv(utils.GetEnvTrimmed("CORS_ALLOWED_ORIGIN"))
	if !ok {
		routerService.logger.Warn("CORS_ALLOWED_ORIGIN not set or invalid, cross-origin requests will not receive CORS headers")
		return nil
	}

	routerService.logger.Info("CORS enabled", "allowed_origins", cfg.AllowOrigins, "all_origins", cfg.AllowAllOrigins)
	return cors.New(cfg)
}

// corsConfigFromEnv parses a comma separated origin list. Origins need an http or https
// scheme; "*" allows any origin without credentials.
func corsConfigFromEnv(raw string) (cors.Config, bool) {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding", "Cache-Control", "X-Requested-With", correlationHeader},
		ExposeHeaders: []string{correlationHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Window"},
		MaxAge:        12 * time.Hour,
	}

	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "*":
			cfg.AllowAllOrigins = true
		case strings.HasPrefix(origin, "http://"), strings.HasPrefix(origin, "https://"):
			cfg.AllowOrigins = append(cfg.AllowOrigins, strings.TrimSuffix(origin, "/"))
		}
	}

	if cfg.AllowAllOrigins {
		cfg.AllowOrigins = nil
		return cfg, true
	}
	if len(cfg.AllowOrigins) == 0 {
		return cfg, false
	}
	cfg.AllowCredentials = true
	return cfg, true
}
