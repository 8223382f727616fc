package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "github.com/pkg/errors"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// AuditLog appends one line per session event to a file.
type AuditLog struct {
    path string
    mu   sync.Mutex
}

func NewAuditLog(path string) *AuditLog { return &AuditLog{path: path} }

// Append writes ev as a single human-readable line.
func (a *AuditLog) Append(ev SessionEvent) error {
    a.mu.Lock()
    defer a.mu.Unlock()

    if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
        return errors.Wrap(err, "mkdir audit dir")
    }
    f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return errors.Wrap(err, "open audit log")
    }
    defer f.Close()

    _, err = f.WriteString(FormatEvent(ev) + "\n")
    return errors.Wrap(err, "write audit log")
}

// FormatEvent renders ev the way it appears in the audit log.
func FormatEvent(ev SessionEvent) string {
    var b strings.Builder
    fmt.Fprintf(&b, "[%s] %s | audience=%s", ev.At.UTC().Format(time.RFC3339), ev.Type, ev.Audience)
    field := func(k, v string) {
        if v != "" {
            fmt.Fprintf(&b, " | %s=%s", k, v)
        }
    }
    field("subject", ev.SubjectID)
    field("sid", ev.SessionID)
    field("previous_sid", ev.PreviousID)
    if ev.Type == EventRevokedAll {
        fmt.Fprintf(&b, " | count=%d", ev.Count)
    }
    field("ip", ev.IP)
    if ev.UserAgent != "" {
        fmt.Fprintf(&b, " | ua=%q", ev.UserAgent)
    }
    return b.String()
}

// HandleMessage decodes one delivery body and appends it to the log.
func (a *AuditLog) HandleMessage(body []byte) error {
    var ev SessionEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return errors.Wrap(err, "unmarshal session event")
    }
    if ev.Type == "" {
        return errors.New("session event without type")
    }
    return a.Append(ev)
}

// StartSessionConsumer consumes session.events until ctx is cancelled,
// redialing the broker with capped exponential backoff.  Messages that
// cannot be decoded or written are rejected without requeue.
func StartSessionConsumer(ctx context.Context, url string, audit *AuditLog, log logrus.FieldLogger) {
    backoff := time.Second
    for ctx.Err() == nil {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.WithError(err).Warnf("session-consumer: dial failed; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, audit, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return
        }
        log.WithError(err).Warn("session-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, audit *AuditLog, log logrus.FieldLogger) error {
    ch, err := conn.Channel()
    if err != nil {
        return errors.Wrap(err, "channel open")
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.WithError(err).Warn("session-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(SessionQueueName, true, false, false, false, nil); err != nil {
        return errors.Wrap(err, "queue declare")
    }
    msgs, err := ch.Consume(SessionQueueName, "", false, false, false, false, nil)
    if err != nil {
        return errors.Wrap(err, "queue consume")
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := audit.HandleMessage(d.Body); err != nil {
                log.WithError(err).Error("session-consumer: handle message failed")
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
