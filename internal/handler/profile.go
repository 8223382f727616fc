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
)

// ProfileStore is implemented by repository.UserRepo.
type ProfileStore interface {
    GetField(ctx context.Context, id uint64, f model.ProfileField) (*string, error)
    CreateField(ctx context.Context, id uint64, f model.ProfileField, value string) error
    SetField(ctx context.Context, id uint64, f model.ProfileField, value *string) error
}

// ProfileHandler exposes CRUD on one nullable profile column at a time.  The
// request and response bodies use the field name as their only key, e.g.
// {"mobile": "0912..."}.
type ProfileHandler struct {
    Users ProfileStore
    Log   logrus.FieldLogger
}

func (h *ProfileHandler) Read(f model.ProfileField) echo.HandlerFunc {
    return func(c echo.Context) error {
        id, valid := currentUser(c)
        if !valid {
            return fail(c, http.StatusUnauthorized, "Invalid or expired user token")
        }
        ctx, cancel := reqCtx(c)
        defer cancel()
        v, err := h.Users.GetField(ctx, id, f)
        if err != nil {
            return writeError(c, h.Log, err)
        }
        return ok(c, echo.Map{string(f): v})
    }
}

// Create sets the field only if it is empty; 409 otherwise.
func (h *ProfileHandler) Create(f model.ProfileField) echo.HandlerFunc {
    return func(c echo.Context) error {
        id, valid := currentUser(c)
        if !valid {
            return fail(c, http.StatusUnauthorized, "Invalid or expired user token")
        }
        v, msg := fieldValue(c, f)
        if msg != "" {
            return fail(c, http.StatusBadRequest, msg)
        }
        ctx, cancel := reqCtx(c)
        defer cancel()

        err := h.Users.CreateField(ctx, id, f, v)
        if errors.Is(err, repository.ErrConflict) {
            return fail(c, http.StatusConflict, fieldLabel(f)+" exists. Use PUT.")
        }
        if err != nil {
            return writeError(c, h.Log, err)
        }
        return ok(c, echo.Map{string(f): v})
    }
}

// Update replaces the field.
func (h *ProfileHandler) Update(f model.ProfileField) echo.HandlerFunc {
    return func(c echo.Context) error {
        id, valid := currentUser(c)
        if !valid {
            return fail(c, http.StatusUnauthorized, "Invalid or expired user token")
        }
        v, msg := fieldValue(c, f)
        if msg != "" {
            return fail(c, http.StatusBadRequest, msg)
        }
        ctx, cancel := reqCtx(c)
        defer cancel()
        if err := h.Users.SetField(ctx, id, f, &v); err != nil {
            return writeError(c, h.Log, err)
        }
        return ok(c, echo.Map{string(f): v})
    }
}

// Delete sets the field back to NULL.
func (h *ProfileHandler) Delete(f model.ProfileField) echo.HandlerFunc {
    return func(c echo.Context) error {
        id, valid := currentUser(c)
        if !valid {
            return fail(c, http.StatusUnauthorized, "Invalid or expired user token")
        }
        ctx, cancel := reqCtx(c)
        defer cancel()
        if err := h.Users.SetField(ctx, id, f, nil); err != nil {
            return writeError(c, h.Log, err)
        }
        return ok(c, echo.Map{string(f): nil})
    }
}

// currentUser returns the numeric id of the authenticated user.
func currentUser(c echo.Context) (uint64, bool) {
    sub, _ := middleware.Subject(c)
    id, err := repository.ParseUserID(sub)
    return id, err == nil
}

// fieldValue reads the trimmed string under key f.  A non-empty msg means
// the body is unusable and says why.
func fieldValue(c echo.Context, f model.ProfileField) (v, msg string) {
    body := map[string]string{}
    if err := c.Bind(&body); err != nil {
        return "", "invalid body"
    }
    v = strings.TrimSpace(body[string(f)])
    if v == "" {
        return "", string(f) + " required"
    }
    return v, ""
}

func fieldLabel(f model.ProfileField) string {
    s := string(f)
    return strings.ToUpper(s[:1]) + s[1:]
}
