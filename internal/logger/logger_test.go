package logger

import (
	"bytes"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]log.Lvl{
		"debug":   log.DEBUG,
		"WARN":    log.WARN,
		"warning": log.WARN,
		"error":   log.ERROR,
		"off":     log.OFF,
		"":        log.INFO,
		"verbose": log.INFO,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := New("test", "warn")
	lg.SetOutput(&buf)

	lg.Info("hidden")
	assert.Empty(t, buf.String())

	lg.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "test")
}
