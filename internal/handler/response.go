package handler // handler defines http handlers

import (
    "context"   // request-scoped deadlines for storage calls
    "net/http"  // status codes
    "time"      // timeout constant

    "github.com/labstack/echo/v4"   // request context types
    "github.com/pkg/errors"         // errors.Is / errors.As over wrapped errors
    "github.com/sirupsen/logrus"    // error logging

    "github.com/iliyamo/session-auth/internal/repository"
    "github.com/iliyamo/session-auth/internal/service"
    "github.com/iliyamo/session-auth/internal/utils"
)

// dbTimeout bounds every storage round trip made on behalf of a request.
const dbTimeout = 5 * time.Second

// reqCtx derives a storage context from the request context.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// ok writes the success envelope {ok:true, data, meta}.
func ok(c echo.Context, data any) error {
    return okMeta(c, data, echo.Map{})
}

func okMeta(c echo.Context, data, meta any) error {
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "data": data, "meta": meta})
}

// fail writes the error envelope {ok:false, message}.
func fail(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"ok": false, "message": msg})
}

// writeError maps service and repository errors onto HTTP responses.
// Anything unrecognised is logged and reported as a 500 without detail.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
    var (
        verr *service.ValidationError
        lerr *service.LimitError
    )
    switch {
    case errors.As(err, &verr):
        return fail(c, http.StatusBadRequest, verr.Msg)
    case errors.Is(err, service.ErrOTPExpired):
        return fail(c, http.StatusBadRequest, "OTP expired")
    case errors.Is(err, service.ErrOTPInvalid):
        return fail(c, http.StatusBadRequest, "Invalid OTP")
    case errors.Is(err, service.ErrInvalidCredentials):
        return fail(c, http.StatusUnauthorized, "Invalid credentials")
    case errors.Is(err, service.ErrInvalidSession):
        return fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
    case errors.As(err, &lerr):
        return fail(c, http.StatusTooManyRequests, lerr.Msg)
    case errors.Is(err, service.ErrRateLimited):
        return fail(c, http.StatusTooManyRequests, "Too many requests")
    case errors.Is(err, service.ErrNotConfigured):
        return fail(c, http.StatusServiceUnavailable, "SMTP not configured")
    case errors.Is(err, repository.ErrNotFound):
        return fail(c, http.StatusNotFound, "not found")
    case errors.Is(err, repository.ErrConflict):
        return fail(c, http.StatusConflict, "already exists")
    case errors.Is(err, utils.ErrDecryption):
        log.WithError(err).Error("stored smtp password cannot be decrypted")
        return fail(c, http.StatusInternalServerError, "smtp config unreadable")
    }
    log.WithError(err).WithField("path", c.Path()).Error("request failed")
    return fail(c, http.StatusInternalServerError, "server error")
}

// ErrorHandler renders errors returned through the middleware chain (for
// example a throttled request) in the same envelope as handler errors.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        var he *echo.HTTPError
        if errors.As(err, &he) {
            msg, isText := he.Message.(string)
            if !isText {
                msg = http.StatusText(he.Code)
            }
            _ = fail(c, he.Code, msg)
            return
        }
        _ = writeError(c, log, err)
    }
}
