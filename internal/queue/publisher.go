package queue

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/pkg/errors"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Publisher sends SessionEvents to the session.events queue.  The broker
// connection is opened lazily and reopened after any failure, so a broker
// outage only costs the events published while it lasts.
type Publisher struct {
    url string
    log logrus.FieldLogger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
    return &Publisher{url: url, log: log}
}

// Publish marshals ev and publishes it as a persistent message.  Errors are
// logged and returned; callers treat them as non-fatal.
func (p *Publisher) Publish(ctx context.Context, ev SessionEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return errors.Wrap(err, "marshal session event")
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        p.log.WithError(err).Warn("session events: broker unavailable")
        return err
    }
    err = ch.PublishWithContext(ctx,
        "",               // default exchange
        SessionQueueName, // routing key = queue name
        false,            // mandatory
        false,            // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Type:         ev.Type,
            Body:         body,
        })
    if err != nil {
        p.reset()
        p.log.WithError(err).WithField("type", ev.Type).Warn("session events: publish failed")
        return errors.Wrap(err, "publish session event")
    }
    return nil
}

// channel returns the open channel, dialing first if needed.  Callers hold mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()

    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, errors.Wrap(err, "dial broker")
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, errors.Wrap(err, "open channel")
    }
    if _, err := ch.QueueDeclare(SessionQueueName, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, errors.Wrap(err, "declare queue")
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}

// ErrBufferFull is returned by Async.Publish when the buffer is saturated
// and the event was dropped.
var ErrBufferFull = errors.New("session event buffer full")

// Sink is anything that can deliver a SessionEvent.
type Sink interface {
    Publish(ctx context.Context, ev SessionEvent) error
}

// Async decouples request handling from broker latency: Publish only
// enqueues, and Run forwards events to the wrapped Sink one at a time.
type Async struct {
    next    Sink
    log     logrus.FieldLogger
    timeout time.Duration
    ch      chan SessionEvent
}

func NewAsync(next Sink, size int, log logrus.FieldLogger) *Async {
    if size < 1 {
        size = 1
    }
    return &Async{next: next, log: log, timeout: 5 * time.Second, ch: make(chan SessionEvent, size)}
}

// Publish enqueues ev without blocking.
func (a *Async) Publish(_ context.Context, ev SessionEvent) error {
    select {
    case a.ch <- ev:
        return nil
    default:
        a.log.WithField("type", ev.Type).Warn("session events: buffer full, dropping event")
        return ErrBufferFull
    }
}

// Run forwards queued events until ctx is cancelled.  Events still buffered
// at that point are discarded.
func (a *Async) Run(ctx context.Context) {
    for {
        select {
        case <-ctx.Done():
            return
        case ev := <-a.ch:
            pctx, cancel := context.WithTimeout(ctx, a.timeout)
            _ = a.next.Publish(pctx, ev) // the sink logs its own failures
            cancel()
        }
    }
}
