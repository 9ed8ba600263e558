// SPDX-License-Identifier: MIT

// Package log is the process-wide leveled logger. Messages follow the
// "Component: message" convention; packages that want structured
// attributes take a tagged *slog.Logger from With.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// slog has no fatal level; it sits one step above error.
var slogLevels = [...]slog.Level{
	slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError, slog.LevelError + 4,
}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

func (l LogLevel) slog() slog.Level {
	if int(l) < len(slogLevels) {
		return slogLevels[l]
	}
	return slog.LevelInfo
}

// ParseLevel converts a case-insensitive name to a LogLevel. Unknown names
// yield LevelInfo and false.
func ParseLevel(name string) (LogLevel, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "WARNING" {
		return LevelWarn, true
	}
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i), true
		}
	}
	return LevelInfo, false
}

// The handler reads levelVar, the formatted helpers read current. SetLevel
// keeps them in step.
var (
	current  atomic.Uint32
	levelVar = new(slog.LevelVar)
	logger   atomic.Pointer[slog.Logger]
)

func init() {
	SetOutput(os.Stderr)
	SetLevel(LevelInfo)
}

// SetOutput redirects all log output to w using a text handler.
func SetOutput(w io.Writer) {
	logger.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar})))
}

// SetLevel sets the global logging level.
func SetLevel(level LogLevel) {
	current.Store(uint32(level))
	levelVar.Set(level.slog())
}

// GetLevel returns the global logging level.
func GetLevel() LogLevel { return LogLevel(current.Load()) }

// Enabled reports whether messages at level are written. Hot paths check it
// before building expensive arguments.
func Enabled(level LogLevel) bool { return level >= GetLevel() }

// Logger exposes the underlying slog logger.
func Logger() *slog.Logger { return logger.Load() }

// With returns a structured logger tagged with a component name.
func With(component string) *slog.Logger {
	return Logger().With("component", component)
}

func logf(level LogLevel, format string, v []any) {
	if !Enabled(level) {
		return
	}
	Logger().Log(context.Background(), level.slog(), fmt.Sprintf(format, v...))
}

// Debugf formats and logs at debug level; the others follow suit.
func Debugf(format string, v ...any) { logf(LevelDebug, format, v) }
func Infof(format string, v ...any)  { logf(LevelInfo, format, v) }
func Warnf(format string, v ...any)  { logf(LevelWarn, format, v) }
func Errorf(format string, v ...any) { logf(LevelError, format, v) }

// Fatalf logs regardless of the level and exits with status 1.
func Fatalf(format string, v ...any) {
	Logger().Log(context.Background(), LevelFatal.slog(), fmt.Sprintf(format, v...))
	os.Exit(1)
}
