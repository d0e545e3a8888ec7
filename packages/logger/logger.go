// Package logger provides the leveled console logger used by the trialxml CLI.
//
// Messages are prefixed with an [HH:MM:SS] timestamp and their level. Level
// tags are colored when the destination is a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const (
	levelTrace int = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
)

// Logger writes leveled messages to a writer. It is safe for concurrent use.
type Logger struct {
	writer      io.Writer
	level       int
	mutex       sync.Mutex
	colorOutput bool
	now         func() time.Time
}

// New creates a Logger writing to w at the given minimum level.
// Valid levels are trace, debug, info, warn and error; anything else means info.
// A nil writer discards everything.
func New(w io.Writer, level string) *Logger {
	return &Logger{
		writer:      w,
		level:       logLevelToInt(normalizeLogLevel(level)),
		colorOutput: isTerminal(w),
		now:         time.Now,
	}
}

// Discard returns a Logger that drops every message
func Discard() *Logger {
	return New(nil, "error")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	case "warning":
		return "warn"
	}
	return "info"
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (l *Logger) Tracef(format string, args ...any) { l.logf(levelTrace, "TRACE", format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(levelDebug, "DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(levelInfo, "INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(levelWarn, "WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(levelError, "ERROR", format, args...) }

func (l *Logger) logf(level int, tag, format string, args ...any) {
	if l == nil || l.writer == nil || level < l.level {
		return
	}

	message := fmt.Sprintf(format, args...)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	ts := l.now().Format("15:04:05")
	if l.colorOutput {
		tag = colorize(tag)
	}
	fmt.Fprintf(l.writer, "[%s] [%s] %s\n", ts, tag, message)
}

func colorize(tag string) string {
	switch tag {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(tag)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(tag)
	case "INFO":
		return color.New(color.FgBlue).Sprint(tag)
	case "WARN":
		return color.New(color.FgYellow).Sprint(tag)
	case "ERROR":
		return color.New(color.FgRed).Sprint(tag)
	}
	return tag
}
