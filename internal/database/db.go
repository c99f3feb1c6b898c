package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/gymdesk/internal/config"
)

const pingAttempts = 5

// Open builds the MySQL pool shared by the API and the audit consumer and
// waits for the server to answer.  The database container often starts
// alongside the API, so the first pings are retried with a growing delay.
func Open(ctx context.Context, cfg config.Config, lg *log.Logger) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	// RowsAffected counts matched rows: an UPDATE that writes identical
	// values must not look like a missing row.
	mc.ClientFoundRows = true

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.DBMaxConns)
	db.SetMaxIdleConns(cfg.DBMaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	delay := time.Second
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return db, nil
		}
		if attempt == pingAttempts {
			break
		}
		lg.Warnf("mysql %s not ready (attempt %d/%d): %v", mc.Addr, attempt, pingAttempts, err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	db.Close()
	return nil, err
}
