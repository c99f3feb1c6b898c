package queue

import (
    "context"
    "time"

    "github.com/labstack/gommon/log"
    "github.com/pkg/errors"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/gymdesk/internal/model"
)

// LogWriter is where consumed entries end up; repository.LogRepo
// implements it.
type LogWriter interface {
    Insert(ctx context.Context, e model.LogEntry, at time.Time) (uint64, error)
}

// AuditConsumer drains AuditQueueName into the logs table.
type AuditConsumer struct {
    url  string
    logs LogWriter
    log  *log.Logger
}

func NewAuditConsumer(url string, logs LogWriter, lg *log.Logger) *AuditConsumer {
    return &AuditConsumer{url: url, logs: logs, log: lg}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff capped at 30s.
func (c *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warnf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warnf("audit-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return errors.Wrap(err, "channel open")
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warnf("audit-consumer: set QoS failed: %v", err)
    }
    if err := declareAuditQueue(ch); err != nil {
        return err
    }
    msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
    if err != nil {
        return errors.Wrap(err, "queue consume")
    }
    c.log.Infof("audit-consumer: consuming %s", AuditQueueName)

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.deliver(ctx, d)
        }
    }
}

// acker is the part of amqp.Delivery deliver needs.
type acker interface {
    Ack(multiple bool) error
    Nack(multiple, requeue bool) error
}

type delivery struct {
    acker
    body        []byte
    redelivered bool
}

func (c *AuditConsumer) deliver(ctx context.Context, d amqp.Delivery) {
    c.settle(ctx, delivery{acker: d, body: d.Body, redelivered: d.Redelivered})
}

// settle writes one message.  Undecodable bodies are dropped; a failed
// insert is requeued once and dropped on the second failure.
func (c *AuditConsumer) settle(ctx context.Context, d delivery) {
    ev, err := DecodeAuditEvent(d.body)
    if err != nil {
        c.log.Errorf("audit-consumer: dropping message: %v", err)
        _ = d.Nack(false, false)
        return
    }
    if _, err := c.logs.Insert(ctx, ev.Entry, ev.OccurredAt); err != nil {
        c.log.Errorf("audit-consumer: insert %s (%s) failed: %v", ev.ID, ev.Entry.ActionType, err)
        _ = d.Nack(false, !d.redelivered)
        return
    }
    _ = d.Ack(false)
}

// sleep waits for d or until ctx is done and reports whether it slept
// the full duration.
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
