// Package logging wraps github.com/kataras/golog behind a small interface so
// the rest of ragdag depends on a narrow contract rather than the concrete
// logging library.
package logging

import (
	"os"

	"github.com/kataras/golog"
)

// Logger is the narrow logging surface used across ragdag.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// gologLogger implements Logger using a golog.Logger instance.
type gologLogger struct {
	logger *golog.Logger
}

var _ Logger = (*gologLogger)(nil)

// New builds a Logger writing to stderr at info level, or debug level when
// RAGDAG_DEBUG is set. Search and hybrid fallbacks are logged at debug only,
// per its silent-unless-debug propagation policy.
func New() Logger {
	l := golog.New()
	l.SetOutput(os.Stderr)
	if os.Getenv("RAGDAG_DEBUG") != "" {
		l.SetLevel("debug")
	} else {
		l.SetLevel("info")
	}
	return &gologLogger{logger: l}
}

func (l *gologLogger) Debug(format string, v ...interface{}) { l.logger.Debugf(format, v...) }
func (l *gologLogger) Info(format string, v ...interface{})  { l.logger.Infof(format, v...) }
func (l *gologLogger) Warn(format string, v ...interface{})  { l.logger.Warnf(format, v...) }
func (l *gologLogger) Error(format string, v ...interface{}) { l.logger.Errorf(format, v...) }

// Noop returns a Logger that discards everything, useful in tests.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
