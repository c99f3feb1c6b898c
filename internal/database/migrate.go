package database

import (
	"context"
	"database/sql"
	"embed"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending migration embedded in the binary.
func Migrate(ctx context.Context, db *sql.DB, lg *log.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{lg})
	if err := goose.SetDialect("mysql"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// gooseLogger routes goose output through the application logger.
type gooseLogger struct{ lg *log.Logger }

func (g gooseLogger) Fatalf(format string, v ...interface{}) { g.lg.Fatalf(format, v...) }
func (g gooseLogger) Printf(format string, v ...interface{}) { g.lg.Infof(format, v...) }
