package limiter

import (
    "context"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/pkg/errors"
    "github.com/redis/go-redis/v9"
)

// windowScript is the Memory algorithm over a sorted set scored by
// millisecond timestamps, so that several instances share one window.
var windowScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local window_ms = tonumber(ARGV[2])
    local max = tonumber(ARGV[3])
    local member = ARGV[4]

    redis.call('ZREMRANGEBYSCORE', key, '-inf', now_ms - window_ms)
    local count = redis.call('ZCARD', key)

    if count >= max then
        local retry_ms = window_ms
        local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
        if oldest[2] then
            retry_ms = tonumber(oldest[2]) + window_ms - now_ms
        end
        return { 0, 0, retry_ms }
    end

    redis.call('ZADD', key, now_ms, member)
    redis.call('PEXPIRE', key, window_ms)
    return { 1, max - count - 1, 0 }
`)

// Redis is a Limiter backed by a shared Redis instance.
type Redis struct {
    cfg    Config
    rdb    redis.Scripter
    prefix string
    now    func() time.Time
}

// NewRedis returns a Redis-backed limiter.  Keys are stored as
// prefix + ":" + identity; a trailing colon on prefix is dropped.
func NewRedis(rdb redis.Scripter, cfg Config, prefix string, now func() time.Time) *Redis {
    if now == nil {
        now = time.Now
    }
    return &Redis{cfg: cfg, rdb: rdb, prefix: strings.TrimSuffix(prefix, ":"), now: now}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
    args := []interface{}{
        r.now().UnixMilli(),
        r.cfg.Window.Milliseconds(),
        r.cfg.Max,
        uuid.NewString(), // members must be unique even within one millisecond
    }
    vals, err := windowScript.Run(ctx, r.rdb, []string{r.prefix + ":" + key}, args...).Slice()
    if err != nil {
        return Decision{}, errors.Wrap(err, "rate limit script")
    }
    if len(vals) != 3 {
        return Decision{}, errors.Errorf("rate limit script returned %d values", len(vals))
    }
    return Decision{
        Allowed:    asInt64(vals[0]) == 1,
        Limit:      r.cfg.Max,
        Remaining:  int(asInt64(vals[1])),
        RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
    }, nil
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}
