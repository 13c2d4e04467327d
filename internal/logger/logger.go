// Package logger provides the hub's leveled, printf-style logger.
//
// Output defaults to stdout; the hub redirects it to the configured log
// file at startup. Audit entries for protocol violations go through Audit,
// which bounds the logged record so a hostile client cannot flood the log
// with a single oversized command.
package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// auditRecordLimit caps how much of an offending protocol record is
// reproduced in audit log entries.
const auditRecordLimit = 3500

var (
	mu           sync.Mutex
	currentLevel = LevelInfo
	logger       = stdlog.New(os.Stdout, "", 0)
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

func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// SetOutput redirects all subsequent log output, typically to the hub's
// log file.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = stdlog.New(w, "", 0)
}

func log(level Level, format string, v ...any) {
	mu.Lock()
	lvl, out := currentLevel, logger
	mu.Unlock()

	if level < lvl {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	message := fmt.Sprintf(format, v...)
	out.Println(prefix + message)
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}

// Audit logs a protocol violation at ERROR level, truncating the offending
// record to a bounded length.
func Audit(event string, nick string, host string, record string) {
	if len(record) > auditRecordLimit {
		record = record[:auditRecordLimit] + "...(truncated)"
	}
	log(LevelError, "Audit: %s by %s at %s: %s", event, nick, host, record)
}
