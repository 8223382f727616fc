package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/session-auth/internal/handler"
    "github.com/iliyamo/session-auth/internal/middleware"
    "github.com/iliyamo/session-auth/internal/model"
)

// RegisterUser registers the passwordless login flow and the user's own
// account endpoints under /api/auth.  otpThrottle guards code requests only;
// verification is bounded per code by the attempt limit instead.
func RegisterUser(e *echo.Echo, u *handler.UserAuthHandler, p *handler.ProfileHandler, v middleware.AccessVerifier, otpThrottle echo.MiddlewareFunc) {
    g := e.Group("/api/auth")
    g.POST("/otp/request", u.RequestOTP, otpThrottle)
    g.POST("/otp/verify", u.VerifyOTP)
    g.POST("/refresh", u.Refresh)
    g.POST("/logout", u.Logout)

    a := g.Group("", middleware.RequireAudience(v, model.AudienceUser))
    a.DELETE("/account", u.DeleteAccount)

    // One CRUD set per editable profile column.
    for _, f := range []model.ProfileField{model.FieldName, model.FieldMobile, model.FieldAddress} {
        path := "/profile/" + string(f)
        a.GET(path, p.Read(f))
        a.POST(path, p.Create(f))
        a.PUT(path, p.Update(f))
        a.DELETE(path, p.Delete(f))
    }
}
