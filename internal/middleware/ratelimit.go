package middleware

import (
    "math"
    "strconv"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/limiter"
    "github.com/iliyamo/session-auth/internal/obs"
    "github.com/iliyamo/session-auth/internal/service"
)

// Throttle admits requests through l, keyed by client IP.  Rejected
// requests get Retry-After and a *service.LimitError, which the error
// handler turns into a 429.  When the limiter itself fails (for
// example Redis is down) the request is let through and the error logged.
func Throttle(l limiter.Limiter, message string, metrics *obs.Metrics, log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := ClientIP(c)
            d, err := l.Allow(c.Request().Context(), key)
            if err != nil {
                log.WithError(err).WithField("key", key).Warn("rate limiter unavailable, admitting request")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
            h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

            if !d.Allowed {
                secs := int(math.Ceil(d.RetryAfter.Seconds()))
                if secs < 1 {
                    secs = 1
                }
                h.Set("Retry-After", strconv.Itoa(secs))
                metrics.Throttle()
                log.WithField("key", key).Info("request throttled")
                return &service.LimitError{Msg: message}
            }
            return next(c)
        }
    }
}
