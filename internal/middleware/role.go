package middleware // middleware provides shared request processing for handlers

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/session-auth/internal/model"
)

const (
    ctxSubject  = "subject"
    ctxAudience = "audience"
)

// Subject returns the authenticated subject stored by RequireAudience: the
// admin's email or the user's id.  The second result is false on routes
// that are not protected.
func Subject(c echo.Context) (string, bool) {
    s, ok := c.Get(ctxSubject).(string)
    return s, ok && s != ""
}

// Audience returns the audience of the authenticated token.
func Audience(c echo.Context) (model.Audience, bool) {
    a, ok := c.Get(ctxAudience).(model.Audience)
    return a, ok && a.Valid()
}
