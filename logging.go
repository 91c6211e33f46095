package blockview

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger writes leveled, timestamped lines through charmbracelet/log.
type DefaultLogger struct {
	mu    sync.Mutex
	debug bool
	l     *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return newDefaultLogger(os.Stderr, prefix, debug)
}

func newDefaultLogger(w io.Writer, prefix string, debug bool) *DefaultLogger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	dl := &DefaultLogger{l: l}
	dl.SetDebug(debug)
	return dl
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
	if enabled {
		l.l.SetLevel(log.DebugLevel)
	} else {
		l.l.SetLevel(log.InfoLevel)
	}
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.l.Debugf(format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.l.Infof(format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.l.Warnf(format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.l.Errorf(format, args...) }

type nopLogger struct{}

func NewNopLogger() Logger { return &nopLogger{} }
func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// orNop never returns nil.
func orNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
