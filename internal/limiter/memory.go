package limiter

import (
    "context"
    "sync"
    "time"
)

// Memory keeps per-identity timestamps in process memory.  State is lost on
// restart and is not shared between instances; use Redis for that.
type Memory struct {
    cfg Config
    now func() time.Time

    mu   sync.Mutex
    hits map[string][]time.Time // oldest first
}

// NewMemory returns an in-process limiter.  now may be nil.
func NewMemory(cfg Config, now func() time.Time) *Memory {
    if now == nil {
        now = time.Now
    }
    return &Memory{cfg: cfg, now: now, hits: make(map[string][]time.Time)}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
    now := m.now()

    m.mu.Lock()
    defer m.mu.Unlock()

    recent := prune(m.hits[key], now, m.cfg.Window)
    if len(recent) >= m.cfg.Max {
        m.hits[key] = recent
        return Decision{
            Limit:      m.cfg.Max,
            RetryAfter: recent[0].Add(m.cfg.Window).Sub(now),
        }, nil
    }
    m.hits[key] = append(recent, now)
    return Decision{
        Allowed:   true,
        Limit:     m.cfg.Max,
        Remaining: m.cfg.Max - len(recent) - 1,
    }, nil
}

// Purge drops identities with no timestamp inside the window and reports
// how many were removed.  Allow never shrinks the map on its own.
func (m *Memory) Purge() int {
    now := m.now()

    m.mu.Lock()
    defer m.mu.Unlock()

    n := 0
    for k, ts := range m.hits {
        if len(prune(ts, now, m.cfg.Window)) == 0 {
            delete(m.hits, k)
            n++
        }
    }
    return n
}

// prune keeps the timestamps strictly younger than window.
func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
    i := 0
    for i < len(ts) && now.Sub(ts[i]) >= window {
        i++
    }
    return ts[i:]
}
