package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"

    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/service"
    "github.com/iliyamo/session-auth/internal/utils"
)

// AccessVerifier checks an access token for one audience.  The session
// service implements it.
type AccessVerifier interface {
    VerifyAccess(token string, aud model.Audience) (*utils.AccessClaims, error)
}

// RequireAudience returns an Echo middleware that validates a Bearer access
// token issued for aud and stores its subject and audience in the context
// (see Subject).  A missing, malformed or expired token yields 401; a valid
// token of the other audience yields 403.
func RequireAudience(v AccessVerifier, aud model.Audience) echo.MiddlewareFunc {
    label := string(aud)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := BearerToken(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"ok": false, "message": "Missing " + label + " token"})
            }
            claims, err := v.VerifyAccess(raw, aud)
            if errors.Is(err, service.ErrWrongAudience) {
                return c.JSON(http.StatusForbidden, echo.Map{"ok": false, "message": "Forbidden: " + label + " only"})
            }
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"ok": false, "message": "Invalid or expired " + label + " token"})
            }
            c.Set(ctxSubject, claims.Subject)
            c.Set(ctxAudience, claims.Type)
            return next(c)
        }
    }
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(c echo.Context) (string, bool) {
    auth := c.Request().Header.Get(echo.HeaderAuthorization)
    scheme, raw, found := strings.Cut(auth, " ")
    if !found || !strings.EqualFold(scheme, "Bearer") {
        return "", false
    }
    raw = strings.TrimSpace(raw)
    return raw, raw != ""
}
