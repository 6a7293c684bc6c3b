package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	global *log.Logger
	output io.Writer = os.Stderr
)

// Config holds logger configuration.
type Config struct {
	Level string
	// Dir enables a rotating plant-care.log file next to stderr output.
	Dir string
}

// Init replaces the global logger.
func Init(cfg Config) error {
	writer := io.Writer(os.Stderr)
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "plant-care.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stderr, fileWriter)
	}

	l := log.NewWithOptions(writer, log.Options{
		ReportTimestamp: true,
		Level:           ParseLevel(cfg.Level),
		Prefix:          "plant-care",
	})

	mu.Lock()
	global = l
	output = writer
	mu.Unlock()
	return nil
}

// ParseLevel maps LOG_LEVEL values; unknown values fall back to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Writer is the destination of the global logger, used by the gorm logger.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}

func current() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Debug(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Error(msg, keyvals...)
	}
}

// With returns a child logger carrying keyvals on every line.
func With(keyvals ...interface{}) *log.Logger {
	if l := current(); l != nil {
		return l.With(keyvals...)
	}
	return log.New(io.Discard)
}
