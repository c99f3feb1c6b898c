package queue

import (
    "context"
    "io"
    "net"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/labstack/gommon/log"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/gymdesk/internal/model"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake.
func silentBroker(t *testing.T) (addr string, accepted *atomic.Int32) {
    t.Helper()
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    require.NoError(t, err)
    accepted = &atomic.Int32{}

    var (
        mu    sync.Mutex
        conns []net.Conn
    )
    go func() {
        for {
            c, err := ln.Accept()
            if err != nil {
                return
            }
            accepted.Add(1)
            mu.Lock()
            conns = append(conns, c)
            mu.Unlock()
        }
    }()
    t.Cleanup(func() {
        _ = ln.Close()
        mu.Lock()
        defer mu.Unlock()
        for _, c := range conns {
            _ = c.Close()
        }
    })
    return ln.Addr().String(), accepted
}

func quietPublisher(addr string) *AuditPublisher {
    lg := log.New("test")
    lg.SetOutput(io.Discard)
    return NewAuditPublisher("amqp://guest:guest@"+addr+"/", lg)
}

func TestPublishAuditSilentBroker(t *testing.T) {
    addr, accepted := silentBroker(t)
    p := quietPublisher(addr)
    defer p.Close()
    entry := model.LogEntry{ActionType: model.ActionPaymentRecorded, EntityType: model.EntityPayment, EntityID: 1}

    ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
    defer cancel()

    start := time.Now()
    errs := make([]error, 2)
    var wg sync.WaitGroup
    for i := range errs {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            errs[i] = p.PublishAudit(ctx, entry, start)
        }(i)
    }
    wg.Wait()

    assert.Less(t, time.Since(start), time.Second)
    for _, err := range errs {
        assert.Error(t, err)
    }
    require.Eventually(t, func() bool { return accepted.Load() == 1 }, time.Second, 10*time.Millisecond)

    // cooling down: no new connection, no wait
    start = time.Now()
    err := p.PublishAudit(context.Background(), entry, start)
    assert.ErrorIs(t, err, ErrBrokerUnavailable)
    assert.Less(t, time.Since(start), 50*time.Millisecond)
    assert.Equal(t, int32(1), accepted.Load())

    p.now = func() time.Time { return time.Now().Add(time.Minute) }
    ctx2, cancel2 := context.WithTimeout(context.Background(), 100*time.Millisecond)
    defer cancel2()
    assert.Error(t, p.PublishAudit(ctx2, entry, start))
    require.Eventually(t, func() bool { return accepted.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestPublishAuditExpiredContextSkipsDial(t *testing.T) {
    addr, accepted := silentBroker(t)
    p := quietPublisher(addr)
    ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
    defer cancel()

    err := p.PublishAudit(ctx, model.LogEntry{ActionType: model.ActionLeadCreated}, time.Now())
    assert.ErrorIs(t, err, context.DeadlineExceeded)
    assert.Equal(t, int32(0), accepted.Load())
}
