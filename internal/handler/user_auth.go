package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/middleware"
    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/repository"
)

// CodeAPI is the part of service.OTPService the handlers use.
type CodeAPI interface {
    RequestCode(ctx context.Context, email string) error
    Verify(ctx context.Context, email, code string) error
}

// AccountStore is implemented by repository.UserRepo.
type AccountStore interface {
    FindOrCreateByEmail(ctx context.Context, email string) (uint64, error)
    SoftDelete(ctx context.Context, id uint64) error
}

// UserAuthHandler serves passwordless login for end users.
type UserAuthHandler struct {
    Sessions SessionAPI
    Codes    CodeAPI
    Users    AccountStore
    Cookies  CookieConfig
    Log      logrus.FieldLogger
}

type otpRequestReq struct {
    Email string `json:"email"`
}

type otpVerifyReq struct {
    Email string `json:"email"`
    Code  string `json:"code"`
}

// RequestOTP mails a fresh code.  Throttling happens in middleware.
func (h *UserAuthHandler) RequestOTP(c echo.Context) error {
    var req otpRequestReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    email := repository.NormalizeEmail(req.Email)
    if email == "" {
        return fail(c, http.StatusBadRequest, "email required")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Codes.RequestCode(ctx, email); err != nil {
        return writeError(c, h.Log, err)
    }
    return ok(c, echo.Map{"sent": true})
}

// VerifyOTP consumes the code, creates the account on first login and opens
// a session.
func (h *UserAuthHandler) VerifyOTP(c echo.Context) error {
    var req otpVerifyReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    email := repository.NormalizeEmail(req.Email)
    code := strings.TrimSpace(req.Code)
    if email == "" || code == "" {
        return fail(c, http.StatusBadRequest, "email and code required")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Codes.Verify(ctx, email, code); err != nil {
        return writeError(c, h.Log, err)
    }
    id, err := h.Users.FindOrCreateByEmail(ctx, email)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    pair, err := h.Sessions.IssueTokens(ctx, strconv.FormatUint(id, 10), model.AudienceUser, middleware.ClientMeta(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.Cookies.set(c, pair.Refresh.Token)
    return ok(c, toAccessResp(pair))
}

// Refresh rotates the user refresh token.
func (h *UserAuthHandler) Refresh(c echo.Context) error {
    token := refreshToken(c)
    if token == "" {
        return fail(c, http.StatusUnauthorized, "Missing refresh token")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    pair, err := h.Sessions.RotateRefreshToken(ctx, token, model.AudienceUser, middleware.ClientMeta(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.Cookies.set(c, pair.Refresh.Token)
    return ok(c, toAccessResp(pair))
}

func (h *UserAuthHandler) Logout(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    h.Sessions.Logout(ctx, refreshToken(c), model.AudienceUser)
    h.Cookies.clear(c)
    return ok(c, echo.Map{"loggedOut": true})
}

// DeleteAccount soft-deletes the caller and revokes all of their sessions.
func (h *UserAuthHandler) DeleteAccount(c echo.Context) error {
    id, valid := currentUser(c)
    if !valid {
        return fail(c, http.StatusUnauthorized, "Invalid or expired user token")
    }
    sub := strconv.FormatUint(id, 10)
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Users.SoftDelete(ctx, id); err != nil {
        return writeError(c, h.Log, err)
    }
    if _, err := h.Sessions.RevokeAll(ctx, sub, model.AudienceUser); err != nil {
        return writeError(c, h.Log, err)
    }
    h.Cookies.clear(c)
    return ok(c, echo.Map{"deleted": true})
}
