package service

import (
    "context"
    "io"
    "sort"
    "sync"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/queue"
    "github.com/iliyamo/session-auth/internal/repository"
)

func quietLog() logrus.FieldLogger {
    l := logrus.New()
    l.SetOutput(io.Discard)
    return l
}

type fakeClock struct {
    mu sync.Mutex
    t  time.Time
}

func newClock() *fakeClock {
    return &fakeClock{t: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    c.t = c.t.Add(d)
    c.mu.Unlock()
}

// memSessions is an in-memory ledger with the same atomicity as the SQL one.
type memSessions struct {
    mu   sync.Mutex
    rows map[string]*model.TokenSession
}

func newMemSessions() *memSessions {
    return &memSessions{rows: map[string]*model.TokenSession{}}
}

func (m *memSessions) Create(_ context.Context, s model.TokenSession) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    cp := s
    m.rows[s.RefreshID] = &cp
    return nil
}

func (m *memSessions) Rotate(_ context.Context, old string, next model.TokenSession, now time.Time) (model.TokenSession, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    row, ok := m.rows[old]
    if !ok || !row.Active(now) {
        return model.TokenSession{}, repository.ErrNotFound
    }
    t := now
    row.RevokedAt = &t
    next.Audience, next.SubjectID = row.Audience, row.SubjectID
    cp := next
    m.rows[next.RefreshID] = &cp
    return next, nil
}

func (m *memSessions) RevokeByRefreshID(_ context.Context, id string, now time.Time) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    row, ok := m.rows[id]
    if !ok || row.RevokedAt != nil {
        return false, nil
    }
    t := now
    row.RevokedAt = &t
    return true, nil
}

func (m *memSessions) RevokeAll(_ context.Context, subject string, aud model.Audience, now time.Time) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var n int64
    for _, row := range m.rows {
        if row.SubjectID == subject && row.Audience == aud && row.RevokedAt == nil {
            t := now
            row.RevokedAt = &t
            n++
        }
    }
    return n, nil
}

func (m *memSessions) get(id string) model.TokenSession {
    m.mu.Lock()
    defer m.mu.Unlock()
    return *m.rows[id]
}

type recordedEvents struct {
    mu  sync.Mutex
    got []queue.SessionEvent
}

func (r *recordedEvents) Publish(_ context.Context, ev queue.SessionEvent) error {
    r.mu.Lock()
    r.got = append(r.got, ev)
    r.mu.Unlock()
    return nil
}

func (r *recordedEvents) types() []string {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := make([]string, len(r.got))
    for i, ev := range r.got {
        out[i] = ev.Type
    }
    return out
}

// memCodes stores codes per email; the mutex plays the row lock.
type memCodes struct {
    mu    sync.Mutex
    codes map[string][]model.OneTimeCode
    seq   uint64
}

func newMemCodes() *memCodes { return &memCodes{codes: map[string][]model.OneTimeCode{}} }

func (m *memCodes) Replace(_ context.Context, c model.OneTimeCode) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.seq++
    c.ID = m.seq
    m.codes[c.Email] = []model.OneTimeCode{c}
    return nil
}

func (m *memCodes) Settle(_ context.Context, email string, decide func(*model.OneTimeCode) repository.OTPVerdict) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    list := m.codes[email]
    sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
    var newest *model.OneTimeCode
    if len(list) > 0 {
        cp := list[len(list)-1]
        newest = &cp
    }
    switch decide(newest) {
    case repository.OTPCountFailure:
        if newest != nil {
            list[len(list)-1].Attempts++
        }
    case repository.OTPDeleteAll:
        delete(m.codes, email)
    }
    return nil
}

func (m *memCodes) count(email string) int {
    m.mu.Lock()
    defer m.mu.Unlock()
    return len(m.codes[email])
}

type sentMail struct{ to, subject, html string }

type fakeMailer struct {
    mu   sync.Mutex
    sent []sentMail
    err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, html string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.err != nil {
        return f.err
    }
    f.sent = append(f.sent, sentMail{to, subject, html})
    return nil
}

type memSmtp struct {
    rows []model.SmtpConfig
}

func (m *memSmtp) Create(_ context.Context, c model.SmtpConfig) (uint64, error) {
    c.ID = uint64(len(m.rows) + 1)
    m.rows = append(m.rows, c)
    return c.ID, nil
}

func (m *memSmtp) Latest(context.Context) (model.SmtpConfig, error) {
    if len(m.rows) == 0 {
        return model.SmtpConfig{}, repository.ErrNotFound
    }
    return m.rows[len(m.rows)-1], nil
}

func (m *memSmtp) Update(_ context.Context, id uint64, p model.SmtpConfigPatch, enc, by string, _ time.Time) error {
    for i := range m.rows {
        if m.rows[i].ID != id {
            continue
        }
        r := &m.rows[i]
        if p.Host != nil {
            r.Host = *p.Host
        }
        if p.Port != nil {
            r.Port = *p.Port
        }
        if p.Username != nil {
            r.Username = *p.Username
        }
        if enc != "" {
            r.PasswordEnc = enc
        }
        r.UpdatedBy = by
        return nil
    }
    return repository.ErrNotFound
}

func (m *memSmtp) Delete(_ context.Context, id uint64) error {
    for i := range m.rows {
        if m.rows[i].ID == id {
            m.rows = append(m.rows[:i], m.rows[i+1:]...)
            return nil
        }
    }
    return repository.ErrNotFound
}
