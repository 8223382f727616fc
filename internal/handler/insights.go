package handler

import (
    "context"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/model"
)

// UserDirectory is implemented by repository.UserRepo.
type UserDirectory interface {
    CountActive(ctx context.Context) (int64, error)
    ListActive(ctx context.Context, limit, offset int) ([]model.User, error)
}

// InsightsHandler gives the admin read access to the user base.
type InsightsHandler struct {
    Users UserDirectory
    Log   logrus.FieldLogger
}

const (
    defaultPageSize = 20
    maxPageSize     = 100
)

type userItem struct {
    ID        uint64    `json:"id"`
    Email     string    `json:"email"`
    Name      *string   `json:"name"`
    Mobile    *string   `json:"mobile"`
    Address   *string   `json:"address"`
    CreatedAt time.Time `json:"createdAt"`
}

// UsersCount reports how many accounts are not deleted.
func (h *InsightsHandler) UsersCount(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    n, err := h.Users.CountActive(ctx)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return ok(c, echo.Map{"count": n})
}

// UsersList pages through active users, newest first.  page starts at 1;
// pageSize is clamped to [1, 100].
func (h *InsightsHandler) UsersList(c echo.Context) error {
    page := queryInt(c, "page", 1)
    if page < 1 {
        page = 1
    }
    size := queryInt(c, "pageSize", defaultPageSize)
    if size < 1 {
        size = 1
    }
    if size > maxPageSize {
        size = maxPageSize
    }

    ctx, cancel := reqCtx(c)
    defer cancel()
    users, err := h.Users.ListActive(ctx, size, (page-1)*size)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    items := make([]userItem, 0, len(users))
    for _, u := range users {
        items = append(items, userItem{
            ID: u.ID, Email: u.Email, Name: u.Name, Mobile: u.Mobile, Address: u.Address, CreatedAt: u.CreatedAt,
        })
    }
    return okMeta(c, echo.Map{"items": items}, echo.Map{"page": page, "pageSize": size})
}

func queryInt(c echo.Context, name string, def int) int {
    v := c.QueryParam(name)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        return def
    }
    return n
}
