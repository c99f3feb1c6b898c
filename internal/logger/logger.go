// Package logger builds the leveled loggers shared by the API server,
// the audit consumer and the services.  It uses the same gommon logger
// echo logs through, so request logs and application logs look alike.
package logger

import (
	"strings"

	"github.com/labstack/gommon/log"
)

const header = `${time_rfc3339} ${level} ${prefix} ${short_file}:${line}`

// New returns a logger tagged with prefix at the given level name
// (debug, info, warn, error, off).  Unknown names fall back to info.
func New(prefix, level string) *log.Logger {
	lg := log.New(prefix)
	lg.SetHeader(header)
	lg.SetLevel(ParseLevel(level))
	return lg
}

// ParseLevel maps a level name onto a gommon level.
func ParseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}
