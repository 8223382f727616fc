package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/session-auth/internal/handler"
    "github.com/iliyamo/session-auth/internal/middleware"
    "github.com/iliyamo/session-auth/internal/model"
)

// RegisterAdmin registers the admin endpoints under /api/admin/auth.  Login,
// refresh and logout are open (they authenticate with credentials or the
// refresh cookie); everything else requires an admin access token.  A user
// token on these routes is answered with 403.
func RegisterAdmin(e *echo.Echo, a *handler.AdminAuthHandler, ins *handler.InsightsHandler, v middleware.AccessVerifier) {
    g := e.Group("/api/admin/auth")
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/logout", a.Logout)

    p := g.Group("", middleware.RequireAudience(v, model.AudienceAdmin))
    p.GET("/profile/name", a.NameRead)
    p.POST("/profile/name", a.NameCreate)
    p.PUT("/profile/name", a.NameUpdate)
    p.DELETE("/profile/name", a.NameDelete)

    // Read-only insight into the user base.
    p.GET("/users/count", ins.UsersCount)
    p.GET("/users", ins.UsersList)
}

// RegisterSmtp registers SMTP configuration management.  Admin only.
func RegisterSmtp(e *echo.Echo, h *handler.SmtpHandler, v middleware.AccessVerifier) {
    g := e.Group("/api/admin/smtp", middleware.RequireAudience(v, model.AudienceAdmin))
    g.POST("", h.Create)
    g.GET("", h.Read)
    g.PUT("/:id", h.Update)
    g.DELETE("/:id", h.Delete)
}
