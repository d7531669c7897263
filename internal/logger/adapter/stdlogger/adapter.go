// Package stdlogger bridges libraries that log through the standard library into zerolog.
package stdlogger

import (
	"fmt"
	stdlog "log"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a printf style logger writing to the global zerolog logger.
type Logger struct {
	component string
}

// New creates a Logger. Every statement carries the given component name, if set.
func New(component ...string) *Logger {
	l := &Logger{}
	if len(component) > 0 {
		l.component = component[0]
	}

	return l
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	e := log.WithLevel(level)
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	return e
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, v ...any) {
	l.event(zerolog.DebugLevel).Msg(fmt.Sprintf(format, v...))
}

// Infof logs at info level.
func (l *Logger) Infof(format string, v ...any) {
	l.event(zerolog.InfoLevel).Msg(fmt.Sprintf(format, v...))
}

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, v ...any) {
	l.event(zerolog.WarnLevel).Msg(fmt.Sprintf(format, v...))
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, v ...any) {
	l.event(zerolog.ErrorLevel).Msg(fmt.Sprintf(format, v...))
}

// Write implements io.Writer at debug level, one statement per call.
func (l *Logger) Write(p []byte) (int, error) {
	l.event(zerolog.DebugLevel).Msg(strings.TrimRight(string(p), "\n"))

	return len(p), nil
}

// StdLog returns a standard library logger writing into l, e.g. for ldap.Logger.
func (l *Logger) StdLog() *stdlog.Logger {
	return stdlog.New(l, "", 0)
}
