package queue

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/labstack/gommon/log"
    "github.com/pkg/errors"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/gymdesk/internal/model"
)

const (
    // dialTimeout caps the TCP connect plus the AMQP handshake.  A shorter
    // context deadline wins.
    dialTimeout = 2 * time.Second
    // dialCooldown is how long a failed dial keeps the publisher from
    // trying again.
    dialCooldown = 10 * time.Second
)

// ErrBrokerUnavailable is returned without touching the network while a
// dial is in flight or the publisher is cooling down after a failed one.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// AuditPublisher publishes audit events to AuditQueueName.  The
// connection is opened on first use and reopened after any failure.
// It is safe for concurrent use; only one caller dials at a time and the
// others fail fast.
type AuditPublisher struct {
    url      string
    log      *log.Logger
    timeout  time.Duration
    cooldown time.Duration
    now      func() time.Time

    mu       sync.Mutex
    conn     *amqp.Connection
    ch       *amqp.Channel
    dialing  bool
    nextDial time.Time
}

func NewAuditPublisher(url string, lg *log.Logger) *AuditPublisher {
    return &AuditPublisher{url: url, log: lg, timeout: dialTimeout, cooldown: dialCooldown, now: time.Now}
}

// PublishAudit sends e as a persistent JSON message.  Errors are logged
// and returned so the caller can fall back to a direct write.
func (p *AuditPublisher) PublishAudit(ctx context.Context, e model.LogEntry, at time.Time) error {
    ev := NewAuditEvent(e, at)
    body, err := json.Marshal(ev)
    if err != nil {
        return errors.Wrap(err, "marshal audit event")
    }

    ch, err := p.channel(ctx)
    if err != nil {
        if !errors.Is(err, ErrBrokerUnavailable) {
            p.log.Warnf("rabbitmq: %v", err)
        }
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    ev.ID,
        Type:         string(e.ActionType),
        Timestamp:    ev.OccurredAt,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",             // default exchange
        AuditQueueName, // routing key = queue name
        false,          // mandatory
        false,          // immediate
        pub,
    ); err != nil {
        p.log.Warnf("rabbitmq: publish failed: %v", err)
        p.mu.Lock()
        var oldCh *amqp.Channel
        var oldConn *amqp.Connection
        if p.ch == ch {
            oldCh, oldConn = p.detach()
        }
        p.mu.Unlock()
        closeBroker(oldCh, oldConn)
        return errors.Wrap(err, "publish audit event")
    }
    return nil
}

// channel returns the open channel, dialling when needed.  The dial runs
// without p.mu held.
func (p *AuditPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
    p.mu.Lock()
    if p.ch != nil && p.conn != nil && !p.conn.IsClosed() {
        ch := p.ch
        p.mu.Unlock()
        return ch, nil
    }
    if p.dialing || p.now().Before(p.nextDial) {
        p.mu.Unlock()
        return nil, ErrBrokerUnavailable
    }
    oldCh, oldConn := p.detach()
    p.dialing = true
    p.mu.Unlock()
    closeBroker(oldCh, oldConn)

    conn, ch, err := p.dial(ctx)

    p.mu.Lock()
    defer p.mu.Unlock()
    p.dialing = false
    if err != nil {
        p.nextDial = p.now().Add(p.cooldown)
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *AuditPublisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
    timeout := p.timeout
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < timeout {
            timeout = left
        }
    }
    if timeout <= 0 {
        return nil, nil, errors.Wrap(context.DeadlineExceeded, "dial skipped")
    }

    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
    if err != nil {
        return nil, nil, errors.Wrap(err, "dial failed")
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, nil, errors.Wrap(err, "channel open failed")
    }
    if err := declareAuditQueue(ch); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, nil, err
    }
    return conn, ch, nil
}

// detach forgets the current connection and hands it back for closing.
// p.mu is held.
func (p *AuditPublisher) detach() (*amqp.Channel, *amqp.Connection) {
    ch, conn := p.ch, p.conn
    p.ch, p.conn = nil, nil
    return ch, conn
}

// closeBroker closes what detach returned.  A stalled broker gets one
// second to acknowledge the close.
func closeBroker(ch *amqp.Channel, conn *amqp.Connection) {
    if ch != nil {
        _ = ch.Close()
    }
    if conn != nil {
        _ = conn.CloseDeadline(time.Now().Add(time.Second))
    }
}

// Close releases the broker connection.
func (p *AuditPublisher) Close() error {
    p.mu.Lock()
    ch, conn := p.detach()
    p.mu.Unlock()
    closeBroker(ch, conn)
    return nil
}

// declareAuditQueue makes sure the queue exists (idempotent).  Durable so
// messages survive broker restarts.
func declareAuditQueue(ch *amqp.Channel) error {
    if _, err := ch.QueueDeclare(
        AuditQueueName, // name
        true,           // durable
        false,          // autoDelete
        false,          // exclusive
        false,          // noWait
        nil,            // args
    ); err != nil {
        return errors.Wrap(err, "queue declare failed")
    }
    return nil
}
