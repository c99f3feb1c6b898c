package queue

import (
    "context"
    "encoding/json"
    "io"
    "testing"
    "time"

    "github.com/labstack/gommon/log"
    "github.com/pkg/errors"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/gymdesk/internal/model"
)

type fakeAcker struct {
    acked, nacked, requeued bool
}

func (a *fakeAcker) Ack(bool) error { a.acked = true; return nil }
func (a *fakeAcker) Nack(_ bool, requeue bool) error {
    a.nacked, a.requeued = true, requeue
    return nil
}

type fakeWriter struct {
    err  error
    got  []model.LogEntry
    when []time.Time
}

func (w *fakeWriter) Insert(ctx context.Context, e model.LogEntry, at time.Time) (uint64, error) {
    if w.err != nil {
        return 0, w.err
    }
    w.got = append(w.got, e)
    w.when = append(w.when, at)
    return uint64(len(w.got)), nil
}

func newTestConsumer(w LogWriter) *AuditConsumer {
    lg := log.New("test")
    lg.SetOutput(io.Discard)
    return NewAuditConsumer("amqp://unused", w, lg)
}

func encode(t *testing.T, ev AuditEvent) []byte {
    b, err := json.Marshal(ev)
    require.NoError(t, err)
    return b
}

func TestAuditEventRoundTrip(t *testing.T) {
    uid := uint64(9)
    at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
    ev := NewAuditEvent(model.LogEntry{
        ActionType:    model.ActionPaymentRecorded,
        EntityType:    model.EntityPayment,
        EntityID:      4,
        RelatedUserID: &uid,
        Metadata:      map[string]any{"amount": "100"},
    }, at)
    require.Len(t, ev.ID, 36)

    got, err := DecodeAuditEvent(encode(t, ev))
    require.NoError(t, err)
    assert.Equal(t, ev.ID, got.ID)
    assert.True(t, at.Equal(got.OccurredAt))
    assert.Equal(t, model.ActionPaymentRecorded, got.Entry.ActionType)
    assert.Equal(t, uid, *got.Entry.RelatedUserID)
    assert.Equal(t, "100", got.Entry.Metadata["amount"])
}

func TestDecodeAuditEventRejects(t *testing.T) {
    _, err := DecodeAuditEvent([]byte("{not json"))
    assert.Error(t, err)

    _, err = DecodeAuditEvent([]byte(`{"id":"x","entry":{}}`))
    assert.Error(t, err)
}

func TestSettle(t *testing.T) {
    at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
    body := encode(t, NewAuditEvent(model.LogEntry{ActionType: model.ActionLeadCreated}, at))

    t.Run("ack after insert", func(t *testing.T) {
        w := &fakeWriter{}
        a := &fakeAcker{}
        newTestConsumer(w).settle(context.Background(), delivery{acker: a, body: body})
        assert.True(t, a.acked)
        require.Len(t, w.got, 1)
        assert.True(t, at.Equal(w.when[0]))
    })

    t.Run("drop garbage", func(t *testing.T) {
        a := &fakeAcker{}
        newTestConsumer(&fakeWriter{}).settle(context.Background(), delivery{acker: a, body: []byte("nope")})
        assert.True(t, a.nacked)
        assert.False(t, a.requeued)
    })

    t.Run("requeue once on insert failure", func(t *testing.T) {
        w := &fakeWriter{err: errors.New("db down")}
        a := &fakeAcker{}
        c := newTestConsumer(w)
        c.settle(context.Background(), delivery{acker: a, body: body})
        assert.True(t, a.requeued)

        a = &fakeAcker{}
        c.settle(context.Background(), delivery{acker: a, body: body, redelivered: true})
        assert.True(t, a.nacked)
        assert.False(t, a.requeued)
    })
}

func TestSleepHonoursContext(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    assert.False(t, sleep(ctx, time.Hour))
    assert.True(t, sleep(context.Background(), time.Millisecond))
}
