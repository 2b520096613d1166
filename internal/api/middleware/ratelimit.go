package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shoehub/inventory-system/internal/api/metrics"
	"github.com/shoehub/inventory-system/internal/core/domain"
)

// Limiter counts hits against a key within a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) (allowed bool, remaining int, err error)
}

// RateLimit allows perMinute requests per client IP and path. Limiter
// errors let the request through.
func RateLimit(limiter Limiter, perMinute int, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if perMinute <= 0 {
				return next(c)
			}

			path := c.Request().URL.Path
			key := c.RealIP() + ":" + path

			allowed, remaining, err := limiter.Allow(c.Request().Context(), key, perMinute)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				metrics.RateLimitedTotal.WithLabelValues(path).Inc()
				log.Warn().Str("ip", c.RealIP()).Str("path", path).Msg("rate limit exceeded")
				return domain.ErrRateLimited
			}
			return next(c)
		}
	}
}
