// Package limiter throttles requests per identity with a fixed window: at
// most Max admissions within any Window-long span ending at the current
// request.  Identities are opaque strings, usually the client IP.
package limiter

import (
    "context"
    "time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
    Allowed    bool
    Limit      int
    Remaining  int           // admissions left in the current window
    RetryAfter time.Duration // zero when Allowed
}

// Limiter admits or rejects a request for key.  Implementations must be
// safe for concurrent use.
type Limiter interface {
    Allow(ctx context.Context, key string) (Decision, error)
}

// Config sizes a limiter.
type Config struct {
    Window time.Duration
    Max    int
}
