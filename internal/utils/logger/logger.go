package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

// Level orders log severities; messages below the active level are dropped.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

type Logger struct {
	serviceName string
}

var (
	// INFO_EMOJI Emoji constants
	INFO_EMOJI    = "ℹ️ "
	SUCCESS_EMOJI = "✅ "
	WARN_EMOJI    = "⚠️ "
	ERROR_EMOJI   = "❌ "
	DEBUG_EMOJI   = "🔍 "
)

var (
	activeLevel atomic.Int32
	output      atomic.Pointer[sink]
)

// sink boxes the writer so its concrete type may change between stores.
type sink struct{ w io.Writer }

func init() {
	activeLevel.Store(int32(ParseLevel(os.Getenv("LOG_LEVEL"))))
	output.Store(&sink{w: color.Output})
}

func New(serviceName string) *Logger {
	return &Logger{
		serviceName: serviceName,
	}
}

// ParseLevel maps LOG_LEVEL values to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel changes the process-wide minimum level.
func SetLevel(l Level) {
	activeLevel.Store(int32(l))
}

// SetOutput redirects every logger, e.g. to io.Discard in tests.
func SetOutput(w io.Writer) {
	output.Store(&sink{w: w})
}

func enabled(l Level) bool {
	return Level(activeLevel.Load()) <= l
}

func (l *Logger) formatMessage(level, emoji, msg string) string {
	_, file, line, _ := runtime.Caller(2)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fileName := filepath.Base(file)

	return fmt.Sprintf("%s | %s | %s | %s:%d | %s | %s",
		emoji,
		timestamp,
		level,
		fileName,
		line,
		l.serviceName,
		msg,
	)
}

func write(attr color.Attribute, formatted string) {
	color.New(attr).Fprintln(output.Load().w, formatted)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	write(color.FgCyan, l.formatMessage("INFO", INFO_EMOJI, fmt.Sprintf(msg, args...)))
}

func (l *Logger) Success(msg string, args ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	write(color.FgGreen, l.formatMessage("SUCCESS", SUCCESS_EMOJI, fmt.Sprintf(msg, args...)))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if !enabled(LevelWarn) {
		return
	}
	write(color.FgYellow, l.formatMessage("WARN", WARN_EMOJI, fmt.Sprintf(msg, args...)))
}

// Error logs msg with err appended and returns err wrapped with msg.
// Format verbs in msg receive args first and err last.
func (l *Logger) Error(msg string, err error, args ...interface{}) error {
	if enabled(LevelError) {
		line := fmt.Sprintf(msg, args...)
		if err != nil {
			line = fmt.Sprintf("%s: %v", line, err)
		}
		write(color.FgRed, l.formatMessage("ERROR", ERROR_EMOJI, line))
	}
	if err == nil {
		return errors.New(fmt.Sprintf(msg, args...))
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(msg, args...), err)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if !enabled(LevelDebug) {
		return
	}
	write(color.FgMagenta, l.formatMessage("DEBUG", DEBUG_EMOJI, fmt.Sprintf(msg, args...)))
}
