// Package plog is a small leveled-logging facade. Its users are the
// FWUP package loader (fwup.LoadPackageFile) and the pldmtool CLI; the
// FD and control responders and the PDR repository take no logger. A
// component takes an optional Logger and wraps it with NewHelper, where
// a nil value falls back to a standard logger at error level.
package plog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal logging sink every component depends on.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// stdLogger writes to an *log.Logger, one line per call.
type stdLogger struct {
	mu  sync.Mutex
	out *log.Logger
}

// NewStdLogger returns a Logger that writes to w via the standard
// library's log package.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{out: log.New(w, "", log.LstdFlags)}
}

func (s *stdLogger) Log(level Level, keyvals ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := fmt.Sprintln(append([]interface{}{"level", level.String()}, keyvals...)...)
	s.out.Print(msg)
	return nil
}

// filter wraps a Logger and drops entries below a minimum level.
type filter struct {
	next Logger
	min  Level
}

// NewFilter returns a Logger that only forwards entries at or above min.
func NewFilter(next Logger, min Level) Logger {
	return &filter{next: next, min: min}
}

// FilterLevel is a convenience for NewFilter(logger, min) call sites
// that prefer naming the level inline, matching the teacher's
// log.FilterLevel(log.LevelError) option-style call.
func FilterLevel(min Level) func(Logger) Logger {
	return func(next Logger) Logger {
		return NewFilter(next, min)
	}
}

func (f *filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.min {
		return nil
	}
	return f.next.Log(level, keyvals...)
}

// Helper provides leveled convenience methods over a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger in a Helper. A nil logger defaults to a
// stderr std logger filtered to error level, so components can embed
// *Helper without a nil check at every call site.
func NewHelper(logger Logger) *Helper {
	if logger == nil {
		logger = NewFilter(NewStdLogger(os.Stderr), LevelError)
	}
	return &Helper{logger: logger}
}

func (h *Helper) Debugf(format string, args ...interface{}) {
	h.logger.Log(LevelDebug, "msg", fmt.Sprintf(format, args...))
}

func (h *Helper) Infof(format string, args ...interface{}) {
	h.logger.Log(LevelInfo, "msg", fmt.Sprintf(format, args...))
}

func (h *Helper) Warnf(format string, args ...interface{}) {
	h.logger.Log(LevelWarn, "msg", fmt.Sprintf(format, args...))
}

func (h *Helper) Errorf(format string, args ...interface{}) {
	h.logger.Log(LevelError, "msg", fmt.Sprintf(format, args...))
}
