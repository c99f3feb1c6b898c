// Package queue carries audit entries over RabbitMQ: the API publishes
// them and the audit consumer writes them to the logs table.
package queue

import (
    "encoding/json"
    "time"

    "github.com/google/uuid"
    "github.com/pkg/errors"

    "github.com/iliyamo/gymdesk/internal/model"
)

// AuditQueueName is the durable queue audit events travel on.
const AuditQueueName = "audit.entries"

// AuditEvent wraps a log entry with the time it happened.  ID doubles as
// the AMQP message id so redeliveries can be told apart in the broker UI.
type AuditEvent struct {
    ID         string         `json:"id"`
    OccurredAt time.Time      `json:"occurred_at"`
    Entry      model.LogEntry `json:"entry"`
}

// NewAuditEvent stamps e with a fresh id.
func NewAuditEvent(e model.LogEntry, at time.Time) AuditEvent {
    return AuditEvent{ID: uuid.NewString(), OccurredAt: at.UTC(), Entry: e}
}

// DecodeAuditEvent parses a message body.  Events without an action type
// are rejected.
func DecodeAuditEvent(body []byte) (AuditEvent, error) {
    var ev AuditEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return ev, errors.Wrap(err, "unmarshal audit event")
    }
    if ev.Entry.ActionType == "" {
        return ev, errors.New("audit event without action type")
    }
    if ev.OccurredAt.IsZero() {
        ev.OccurredAt = time.Now().UTC()
    }
    return ev, nil
}
