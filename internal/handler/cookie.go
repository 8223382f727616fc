package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// RefreshCookieName is the HTTP-only cookie that carries the refresh token.
const RefreshCookieName = "rt"

// CookieConfig controls the refresh cookie attributes.
type CookieConfig struct {
    Domain string
    Secure bool
    MaxAge time.Duration
}

func (cc CookieConfig) set(c echo.Context, token string) {
    c.SetCookie(&http.Cookie{
        Name:     RefreshCookieName,
        Value:    token,
        Path:     "/",
        Domain:   cc.Domain,
        MaxAge:   int(cc.MaxAge / time.Second),
        HttpOnly: true,
        Secure:   cc.Secure,
        SameSite: http.SameSiteStrictMode,
    })
}

func (cc CookieConfig) clear(c echo.Context) {
    c.SetCookie(&http.Cookie{
        Name:     RefreshCookieName,
        Value:    "",
        Path:     "/",
        Domain:   cc.Domain,
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   cc.Secure,
        SameSite: http.SameSiteStrictMode,
    })
}

type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

// refreshToken reads the rt cookie, falling back to a JSON body field for
// clients that do not keep cookies.  Query and path parameters are never
// consulted, and an empty body is not read.
func refreshToken(c echo.Context) string {
    if ck, err := c.Cookie(RefreshCookieName); err == nil && ck.Value != "" {
        return ck.Value
    }
    if c.Request().ContentLength <= 0 {
        return ""
    }
    var req refreshReq
    if err := (&echo.DefaultBinder{}).BindBody(c, &req); err == nil {
        return req.RefreshToken
    }
    return ""
}
