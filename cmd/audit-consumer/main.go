// Command audit-consumer drains the audit queue into the logs table.  It
// is only needed when the API runs with AUDIT_SINK=queue.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/iliyamo/gymdesk/internal/config"
	"github.com/iliyamo/gymdesk/internal/database"
	"github.com/iliyamo/gymdesk/internal/logger"
	"github.com/iliyamo/gymdesk/internal/queue"
	"github.com/iliyamo/gymdesk/internal/repository"
)

func main() {
	cfg := config.Load()
	lg := logger.New("audit-consumer", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg, lg)
	if err != nil {
		lg.Fatalf("database: %v", err)
	}
	defer db.Close()

	c := queue.NewAuditConsumer(cfg.AMQPURL, repository.NewLogRepo(db), lg)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Errorf("stopped: %v", err)
		return
	}
	lg.Info("stopped")
}
