// Package logging hands out the prefixed, leveled loggers used across the backend.
package logging

import (
	"io"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

const header = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`

var (
	mu      sync.Mutex
	loggers = make(map[string]*log.Logger)
	level   = log.INFO
	output  io.Writer
)

// New returns the logger registered under prefix, creating it on first use.
// Loggers created before SetLevel or SetOutput still pick up later changes.
func New(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[prefix]; ok {
		return l
	}

	l := log.New(prefix)
	l.SetHeader(header)
	l.SetLevel(level)
	if output != nil {
		l.SetOutput(output)
	}
	loggers[prefix] = l
	return l
}

// SetLevel applies a textual level ("debug", "info", "warn", "error", "off")
// to every registered logger. Unknown values fall back to info.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(name)
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

// SetOutput redirects every registered logger. Tests use it to silence output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	for _, l := range loggers {
		l.SetOutput(w)
	}
}

// ParseLevel maps a config level name to a gommon level.
func ParseLevel(name string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off", "none":
		return log.OFF
	default:
		return log.INFO
	}
}

// ShortID trims an identifier to the 8-character tag used in log lines.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
