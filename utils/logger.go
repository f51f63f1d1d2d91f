package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel enumerates severity tiers.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLogLevel maps a flag value such as "debug" or "WARN" to a level.
func ParseLogLevel(s string) (LogLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i), nil
		}
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// Logger is a concurrency-safe, levelled logger used across the pipeline.
type Logger struct {
	mu    sync.Mutex
	level LogLevel
	inner *log.Logger
	file  *os.File
	exit  func(int)
}

var (
	globalLogger *Logger
	logOnce      sync.Once
)

// InitLogger creates the singleton logger. Call once at startup.
func InitLogger(minLevel LogLevel, logFilePath string) *Logger {
	logOnce.Do(func() {
		var writers []io.Writer
		writers = append(writers, os.Stdout)

		var f *os.File
		if logFilePath != "" {
			var err error
			f, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				writers = append(writers, f)
			} else {
				log.Printf("[WARN] could not open log file %s: %v\n", logFilePath, err)
			}
		}

		globalLogger = NewLogger(minLevel, io.MultiWriter(writers...))
		globalLogger.file = f
	})
	return globalLogger
}

// NewLogger builds a standalone logger writing to w. Tests use it to
// capture output without touching the singleton.
func NewLogger(minLevel LogLevel, w io.Writer) *Logger {
	return &Logger{
		level: minLevel,
		inner: log.New(w, "", 0),
		exit:  os.Exit,
	}
}

// L returns the global logger, initialising a stdout-only INFO logger on first use.
func L() *Logger {
	return InitLogger(INFO, "")
}

// SetLevel changes the minimum level that is emitted.
func (l *Logger) SetLevel(lvl LogLevel) {
	l.mu.Lock()
	l.level = lvl
	l.mu.Unlock()
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
}

func (l *Logger) log(lvl LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl < l.level {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	l.inner.Printf("[%s] %s  %s", lvl, ts, fmt.Sprintf(format, args...))

	if lvl == FATAL {
		l.exit(1)
	}
}

func (l *Logger) Debug(f string, a ...any) { l.log(DEBUG, f, a...) }
func (l *Logger) Info(f string, a ...any)  { l.log(INFO, f, a...) }
func (l *Logger) Warn(f string, a ...any)  { l.log(WARN, f, a...) }
func (l *Logger) Error(f string, a ...any) { l.log(ERROR, f, a...) }
func (l *Logger) Fatal(f string, a ...any) { l.log(FATAL, f, a...) }
