package handler

import (
    "context"
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/repository"
    "github.com/iliyamo/session-auth/internal/service"
    "github.com/iliyamo/session-auth/internal/utils"
)

const (
    accessSecret  = "handler-access"
    refreshSecret = "handler-refresh"
)

func quiet() logrus.FieldLogger {
    l := logrus.New()
    l.SetOutput(io.Discard)
    return l
}

// ledger is a map-backed session store.
type ledger struct {
    mu   sync.Mutex
    rows map[string]*model.TokenSession
}

func newLedger() *ledger { return &ledger{rows: map[string]*model.TokenSession{}} }

func (l *ledger) Create(_ context.Context, s model.TokenSession) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    cp := s
    l.rows[s.RefreshID] = &cp
    return nil
}

func (l *ledger) Rotate(_ context.Context, old string, next model.TokenSession, now time.Time) (model.TokenSession, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    row, ok := l.rows[old]
    if !ok || !row.Active(now) {
        return model.TokenSession{}, repository.ErrNotFound
    }
    t := now
    row.RevokedAt = &t
    next.Audience, next.SubjectID = row.Audience, row.SubjectID
    cp := next
    l.rows[next.RefreshID] = &cp
    return next, nil
}

func (l *ledger) RevokeByRefreshID(_ context.Context, id string, now time.Time) (bool, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    row, ok := l.rows[id]
    if !ok || row.RevokedAt != nil {
        return false, nil
    }
    t := now
    row.RevokedAt = &t
    return true, nil
}

func (l *ledger) RevokeAll(_ context.Context, subject string, aud model.Audience, now time.Time) (int64, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    var n int64
    for _, row := range l.rows {
        if row.SubjectID == subject && row.Audience == aud && row.RevokedAt == nil {
            t := now
            row.RevokedAt = &t
            n++
        }
    }
    return n, nil
}

func (l *ledger) active(subject string, aud model.Audience) int {
    l.mu.Lock()
    defer l.mu.Unlock()
    n := 0
    for _, row := range l.rows {
        if row.SubjectID == subject && row.Audience == aud && row.RevokedAt == nil {
            n++
        }
    }
    return n
}

func newSessions(l *ledger) *service.SessionService {
    return service.NewSessionService(l, service.SessionConfig{
        AccessSecret:  accessSecret,
        RefreshSecret: refreshSecret,
        AccessTTL:     15 * time.Minute,
        RefreshTTL:    24 * time.Hour,
    }, service.WithLogger(quiet()))
}

func bearer(t *testing.T, sub string, aud model.Audience) string {
    t.Helper()
    tok, err := utils.NewAccessToken(accessSecret, sub, aud, time.Minute, time.Now())
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

type adminProfiles struct {
    mu      sync.Mutex
    names   map[string]*string
    ensured []string
}

func newAdminProfiles() *adminProfiles { return &adminProfiles{names: map[string]*string{}} }

func (a *adminProfiles) EnsureProfile(_ context.Context, email string) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    a.ensured = append(a.ensured, email)
    return nil
}

func (a *adminProfiles) GetName(_ context.Context, email string) (*string, error) {
    a.mu.Lock()
    defer a.mu.Unlock()
    return a.names[email], nil
}

func (a *adminProfiles) CreateName(_ context.Context, email, name string) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    if cur := a.names[email]; cur != nil {
        return repository.ErrConflict
    }
    a.names[email] = &name
    return nil
}

func (a *adminProfiles) SetName(_ context.Context, email string, name *string) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    a.names[email] = name
    return nil
}

// users implements AccountStore, ProfileStore and UserDirectory.
type users struct {
    mu      sync.Mutex
    byEmail map[string]uint64
    rows    map[uint64]*model.User
    next    uint64

    lastLimit, lastOffset int
}

func newUsers() *users {
    return &users{byEmail: map[string]uint64{}, rows: map[uint64]*model.User{}}
}

func (u *users) FindOrCreateByEmail(_ context.Context, email string) (uint64, error) {
    u.mu.Lock()
    defer u.mu.Unlock()
    if id, ok := u.byEmail[email]; ok {
        u.rows[id].IsDeleted = false
        return id, nil
    }
    u.next++
    u.byEmail[email] = u.next
    u.rows[u.next] = &model.User{ID: u.next, Email: email}
    return u.next, nil
}

func (u *users) SoftDelete(_ context.Context, id uint64) error {
    u.mu.Lock()
    defer u.mu.Unlock()
    row, ok := u.rows[id]
    if !ok {
        return repository.ErrNotFound
    }
    row.IsDeleted = true
    return nil
}

func (u *users) field(row *model.User, f model.ProfileField) **string {
    switch f {
    case model.FieldMobile:
        return &row.Mobile
    case model.FieldAddress:
        return &row.Address
    default:
        return &row.Name
    }
}

func (u *users) GetField(_ context.Context, id uint64, f model.ProfileField) (*string, error) {
    u.mu.Lock()
    defer u.mu.Unlock()
    row, ok := u.rows[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    return *u.field(row, f), nil
}

func (u *users) CreateField(_ context.Context, id uint64, f model.ProfileField, value string) error {
    u.mu.Lock()
    defer u.mu.Unlock()
    row, ok := u.rows[id]
    if !ok {
        return repository.ErrNotFound
    }
    p := u.field(row, f)
    if *p != nil {
        return repository.ErrConflict
    }
    *p = &value
    return nil
}

func (u *users) SetField(_ context.Context, id uint64, f model.ProfileField, value *string) error {
    u.mu.Lock()
    defer u.mu.Unlock()
    row, ok := u.rows[id]
    if !ok {
        return repository.ErrNotFound
    }
    *u.field(row, f) = value
    return nil
}

func (u *users) CountActive(_ context.Context) (int64, error) {
    u.mu.Lock()
    defer u.mu.Unlock()
    var n int64
    for _, row := range u.rows {
        if !row.IsDeleted {
            n++
        }
    }
    return n, nil
}

func (u *users) ListActive(_ context.Context, limit, offset int) ([]model.User, error) {
    u.mu.Lock()
    defer u.mu.Unlock()
    u.lastLimit, u.lastOffset = limit, offset
    return nil, nil
}

// codes accepts exactly the code "123456" once per request.
type codes struct {
    mu        sync.Mutex
    requested []string
    pending   map[string]bool
}

func newCodes() *codes { return &codes{pending: map[string]bool{}} }

func (c *codes) RequestCode(_ context.Context, email string) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.requested = append(c.requested, email)
    c.pending[email] = true
    return nil
}

func (c *codes) Verify(_ context.Context, email, code string) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if !c.pending[email] {
        return service.ErrOTPExpired
    }
    if code != "123456" {
        return service.ErrOTPInvalid
    }
    delete(c.pending, email)
    return nil
}

type envelope struct {
    OK      bool           `json:"ok"`
    Data    map[string]any `json:"data"`
    Meta    map[string]any `json:"meta"`
    Message string         `json:"message"`
}

func do(t *testing.T, e *echo.Echo, method, path, body string, hdr map[string]string) (*httptest.ResponseRecorder, envelope) {
    t.Helper()
    var r io.Reader
    if body != "" {
        r = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, path, r)
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    for k, v := range hdr {
        req.Header.Set(k, v)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    var env envelope
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
    return rec, env
}

// refreshCookie returns the rt cookie set by the response, if any.
func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
    for _, ck := range rec.Result().Cookies() {
        if ck.Name == RefreshCookieName {
            return ck
        }
    }
    return nil
}

func withCookie(ck *http.Cookie) map[string]string {
    return map[string]string{"Cookie": ck.Name + "=" + ck.Value}
}
