package service

import (
    "context"
    "time"

    "github.com/sirupsen/logrus"
)

// ExpiredCodeDeleter removes OTP rows past their expiry.
type ExpiredCodeDeleter interface {
    DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Purger drops idle limiter state.  limiter.Memory implements it.
type Purger interface {
    Purge() int
}

// Sweeper periodically deletes expired codes and idle limiter entries.
// Verification never depends on it; it only keeps storage small.
type Sweeper struct {
    codes    ExpiredCodeDeleter
    limiter  Purger // may be nil
    interval time.Duration
    log      logrus.FieldLogger
    now      func() time.Time
}

func NewSweeper(codes ExpiredCodeDeleter, limiter Purger, interval time.Duration, log logrus.FieldLogger) *Sweeper {
    return &Sweeper{codes: codes, limiter: limiter, interval: interval, log: log, now: time.Now}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
    t := time.NewTicker(s.interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            s.SweepOnce(ctx)
        }
    }
}

// SweepOnce performs a single pass.
func (s *Sweeper) SweepOnce(ctx context.Context) {
    cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()

    n, err := s.codes.DeleteExpired(cctx, s.now().UTC())
    if err != nil {
        s.log.WithError(err).Warn("sweeper: delete expired codes failed")
    } else if n > 0 {
        s.log.WithField("rows", n).Debug("sweeper: deleted expired codes")
    }
    if s.limiter != nil {
        if k := s.limiter.Purge(); k > 0 {
            s.log.WithField("keys", k).Debug("sweeper: purged idle limiter keys")
        }
    }
}
