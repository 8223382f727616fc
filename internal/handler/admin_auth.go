package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/middleware"
    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/repository"
    "github.com/iliyamo/session-auth/internal/service"
)

// AdminProfileStore is implemented by repository.AdminRepo.
type AdminProfileStore interface {
    EnsureProfile(ctx context.Context, email string) error
    GetName(ctx context.Context, email string) (*string, error)
    CreateName(ctx context.Context, email, name string) error
    SetName(ctx context.Context, email string, name *string) error
}

// AdminAuthHandler serves the admin session and profile endpoints.
type AdminAuthHandler struct {
    Sessions SessionAPI
    Admin    service.AdminCredentials
    Profiles AdminProfileStore
    Cookies  CookieConfig
    Log      logrus.FieldLogger
}

type adminLoginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

// Login checks the configured admin credentials and opens a session.
func (h *AdminAuthHandler) Login(c echo.Context) error {
    var req adminLoginReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    email := repository.NormalizeEmail(req.Email)
    if email == "" || req.Password == "" {
        return fail(c, http.StatusBadRequest, "Email and password are required")
    }
    if !h.Admin.Match(email, req.Password) {
        h.Log.WithField("ip", middleware.ClientIP(c)).Warn("admin login rejected")
        return fail(c, http.StatusUnauthorized, "Invalid credentials")
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    pair, err := h.Sessions.IssueTokens(ctx, email, model.AudienceAdmin, middleware.ClientMeta(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if err := h.Profiles.EnsureProfile(ctx, email); err != nil {
        h.Log.WithError(err).Warn("admin profile upsert failed")
    }
    h.Cookies.set(c, pair.Refresh.Token)
    return ok(c, toAccessResp(pair))
}

// Refresh rotates the admin refresh token.
func (h *AdminAuthHandler) Refresh(c echo.Context) error {
    token := refreshToken(c)
    if token == "" {
        return fail(c, http.StatusUnauthorized, "Missing refresh token")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    pair, err := h.Sessions.RotateRefreshToken(ctx, token, model.AudienceAdmin, middleware.ClientMeta(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.Cookies.set(c, pair.Refresh.Token)
    return ok(c, toAccessResp(pair))
}

// Logout always succeeds and clears the cookie.
func (h *AdminAuthHandler) Logout(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    h.Sessions.Logout(ctx, refreshToken(c), model.AudienceAdmin)
    h.Cookies.clear(c)
    return ok(c, echo.Map{"loggedOut": true})
}

type nameReq struct {
    Name string `json:"name"`
}

// NameRead returns the admin display name (null when unset).
func (h *AdminAuthHandler) NameRead(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    name, err := h.Profiles.GetName(ctx, adminEmail(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return ok(c, echo.Map{"name": name})
}

// NameCreate sets the name only when none is set yet.
func (h *AdminAuthHandler) NameCreate(c echo.Context) error {
    var req nameReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    name := strings.TrimSpace(req.Name)
    if name == "" {
        return fail(c, http.StatusBadRequest, "name required")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    err := h.Profiles.CreateName(ctx, adminEmail(c), name)
    if errors.Is(err, repository.ErrConflict) {
        return fail(c, http.StatusConflict, "Name already exists. Use PUT to replace.")
    }
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return ok(c, echo.Map{"name": name})
}

// NameUpdate replaces the name; an empty name clears it.
func (h *AdminAuthHandler) NameUpdate(c echo.Context) error {
    var req nameReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    var name *string
    if v := strings.TrimSpace(req.Name); v != "" {
        name = &v
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Profiles.SetName(ctx, adminEmail(c), name); err != nil {
        return writeError(c, h.Log, err)
    }
    return ok(c, echo.Map{"name": name})
}

// NameDelete clears the name.
func (h *AdminAuthHandler) NameDelete(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Profiles.SetName(ctx, adminEmail(c), nil); err != nil {
        return writeError(c, h.Log, err)
    }
    return ok(c, echo.Map{"name": nil})
}

// adminEmail is the subject of the verified admin access token.
func adminEmail(c echo.Context) string {
    sub, _ := middleware.Subject(c)
    return sub
}
