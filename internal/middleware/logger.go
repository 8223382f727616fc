package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/obs"
)

// RequestLogger writes one logrus entry per request.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err) // let the error handler set the final status
            }
            req, res := c.Request(), c.Response()
            entry := log.WithFields(logrus.Fields{
                "method":     req.Method,
                "path":       c.Path(),
                "uri":        req.RequestURI,
                "status":     res.Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "ip":         ClientIP(c),
            })
            switch {
            case res.Status >= 500:
                entry.WithError(err).Error("request failed")
            case res.Status >= 400:
                entry.Info("request rejected")
            default:
                entry.Debug("request served")
            }
            return nil
        }
    }
}

// Instrument records in-flight requests and latency by route template.
func Instrument(m *obs.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if m == nil {
                return next(c)
            }
            m.HTTPInFlight.Inc()
            defer m.HTTPInFlight.Dec()

            start := time.Now()
            err := next(c)
            status := c.Response().Status
            if err != nil {
                if he, ok := err.(*echo.HTTPError); ok {
                    status = he.Code
                } else {
                    status = 500
                }
            }
            path := c.Path()
            if path == "" {
                path = "unmatched"
            }
            m.HTTPRequestDuration.
                WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).
                Observe(time.Since(start).Seconds())
            return err
        }
    }
}
