package handler

import (
    "context"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/service"
)

// SmtpAPI is implemented by service.SmtpService.
type SmtpAPI interface {
    Create(ctx context.Context, host string, port int, username, password, actor string) (uint64, error)
    Read(ctx context.Context) (*service.SmtpView, error)
    Update(ctx context.Context, id uint64, patch model.SmtpConfigPatch, actor string) error
    Delete(ctx context.Context, id uint64) error
}

// SmtpHandler lets the admin manage the outbound mail configuration.
type SmtpHandler struct {
    Smtp SmtpAPI
    Log  logrus.FieldLogger
}

type smtpCreateReq struct {
    Host     string `json:"host"`
    Port     int    `json:"port"`
    Username string `json:"username"`
    Password string `json:"password"`
}

type smtpUpdateReq struct {
    Host     *string `json:"host"`
    Port     *int    `json:"port"`
    Username *string `json:"username"`
    Password *string `json:"password"`
}

func (h *SmtpHandler) Create(c echo.Context) error {
    var req smtpCreateReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    id, err := h.Smtp.Create(ctx, req.Host, req.Port, req.Username, req.Password, adminEmail(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.Log.WithField("smtp_id", id).Info("smtp config created")
    return ok(c, echo.Map{"id": id})
}

// Read returns the active configuration with the password masked; config
// is null when nothing has been stored yet.
func (h *SmtpHandler) Read(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    v, err := h.Smtp.Read(ctx)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return ok(c, echo.Map{"config": v})
}

func (h *SmtpHandler) Update(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return fail(c, http.StatusBadRequest, "invalid id")
    }
    var req smtpUpdateReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    patch := model.SmtpConfigPatch{Host: req.Host, Port: req.Port, Username: req.Username, Password: req.Password}
    if err := h.Smtp.Update(ctx, id, patch, adminEmail(c)); err != nil {
        return writeError(c, h.Log, err)
    }
    return ok(c, echo.Map{"updated": true})
}

func (h *SmtpHandler) Delete(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return fail(c, http.StatusBadRequest, "invalid id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Smtp.Delete(ctx, id); err != nil {
        return writeError(c, h.Log, err)
    }
    return ok(c, echo.Map{"deleted": true})
}
