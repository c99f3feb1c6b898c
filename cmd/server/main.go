package main // Entry point of the back-office API

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/gymdesk/internal/config"
	"github.com/iliyamo/gymdesk/internal/database"
	"github.com/iliyamo/gymdesk/internal/handler"
	"github.com/iliyamo/gymdesk/internal/logger"
	"github.com/iliyamo/gymdesk/internal/queue"
	"github.com/iliyamo/gymdesk/internal/repository"
	"github.com/iliyamo/gymdesk/internal/router"
	"github.com/iliyamo/gymdesk/internal/service"
	"github.com/iliyamo/gymdesk/internal/utils"
)

func main() {
	cfg := config.Load()
	lg := logger.New("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg, lg)
	if err != nil {
		lg.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db, lg); err != nil {
			lg.Fatalf("%v", err)
		}
	}

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig(), lg)
	if rdb == nil {
		lg.Warn("redis unreachable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	// ---- Repositories ----
	var (
		plans       = repository.NewPlanRepo(db)
		memberships = repository.NewMembershipRepo(db)
		payments    = repository.NewPaymentRepo(db)
		members     = repository.NewMemberRepo(db)
		leads       = repository.NewLeadRepo(db)
		prospects   = repository.NewProspectRepo(db)
		sellers     = repository.NewSellerRepo(db)
		logs        = repository.NewLogRepo(db)
		staff       = repository.NewStaffRepo(db)
		tokens      = repository.NewTokenRepo(db)
		tx          = database.NewTxRunner(db)
	)

	// ---- Audit ----
	var sink service.Sink = service.DBSink{Logs: logs}
	if cfg.AuditSink == config.AuditSinkQueue {
		pub := queue.NewAuditPublisher(cfg.AMQPURL, logger.New("amqp", cfg.LogLevel))
		defer pub.Close()
		sink = service.QueueSink{Pub: pub, Fallback: sink, Log: lg}
		lg.Infof("audit entries go through %s", queue.AuditQueueName)
	}
	recorder := service.NewRecorder(sink, logger.New("audit", cfg.LogLevel))
	auditLog := service.NewAuditLog(logs)

	// ---- Services ----
	svcLog := logger.New("service", cfg.LogLevel)
	catalog := service.NewCatalog(plans, recorder, svcLog)
	ledger := service.NewLedger(tx, catalog, memberships, payments, members, recorder, svcLog)
	paySvc := service.NewPayments(tx, payments, memberships, recorder)
	conversion := service.NewConversion(tx, prospects, leads, members, ledger, recorder, svcLog)
	dashboard := service.NewDashboard(ledger, paySvc, leads, prospects, auditLog, cfg.ExpiryAlertDays, svcLog)

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.Logger = lg
	e.Validator = utils.Validator{}
	e.HTTPErrorHandler = handler.HTTPErrorHandler(lg)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				lg.Warnf("%s %s %d %s id=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
				return nil
			}
			lg.Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{LogLevel: log.ERROR}))

	opts := router.Options{
		Config:    cfg,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
	}
	router.RegisterRoutes(e, cfg)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, staff, tokens), opts)
	router.RegisterAPI(e, router.Handlers{
		Plans:       handler.NewPlanHandler(catalog),
		Memberships: handler.NewMembershipHandler(ledger, cfg.ExpiryAlertDays),
		Payments:    handler.NewPaymentHandler(paySvc),
		Prospects:   handler.NewProspectHandler(prospects, conversion, recorder),
		Leads:       handler.NewLeadHandler(leads, sellers, conversion, recorder),
		Members:     handler.NewMemberHandler(members, ledger, conversion, auditLog, recorder),
		Sellers:     handler.NewSellerHandler(sellers, recorder),
		Staff:       handler.NewStaffHandler(cfg, staff, recorder),
		Logs:        handler.NewLogHandler(auditLog),
		Dashboard:   handler.NewDashboardHandler(dashboard),
	}, opts)

	if !cfg.StaffProvisioning() {
		lg.Warn("SERVICE_KEY is not set; staff accounts cannot be created or deleted")
	}

	go purgeRefreshTokens(ctx, tokens, lg)

	go func() {
		addr := ":" + cfg.Port
		lg.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Errorf("shutdown: %v", err)
	}
}

// purgeRefreshTokens deletes refresh tokens that expired more than a day
// ago, once at startup and then hourly.
func purgeRefreshTokens(ctx context.Context, tokens *repository.TokenRepo, lg *log.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		n, err := tokens.PurgeExpired(ctx, time.Now().Add(-24*time.Hour))
		switch {
		case err != nil && ctx.Err() == nil:
			lg.Warnf("purging refresh tokens: %v", err)
		case n > 0:
			lg.Infof("purged %d expired refresh tokens", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
