package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"target-sweep/internal/config"
)

const logFlags = log.LstdFlags | log.Lmicroseconds

// New creates a logger writing to stdout only
func New() *log.Logger {
	return NewWithConfig(nil)
}

// NewWithConfig creates a logger that also writes to the configured
// log file, rotated by lumberjack
func NewWithConfig(cfg *config.Config) *log.Logger {
	if cfg == nil || cfg.Logging.File == "" {
		return log.New(os.Stdout, "", logFlags)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
		log.Printf("failed to ensure log directory for %s: %v", cfg.Logging.File, err)
		return log.New(os.Stdout, "", logFlags)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.RotationDays,
	}

	mw := io.MultiWriter(os.Stdout, rotator)
	return log.New(mw, "", logFlags)
}

// Leveled wraps a standard logger with level-prefixed, key-value output
type Leveled struct {
	*log.Logger
	debug bool
}

// NewLeveled wraps l; Debug output is dropped unless debug is set
func NewLeveled(l *log.Logger, debug bool) *Leveled {
	if l == nil {
		l = log.Default()
	}
	return &Leveled{Logger: l, debug: debug}
}

func (l *Leveled) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *Leveled) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *Leveled) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *Leveled) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.logWithLevel("DEBUG", msg, args...)
}

func (l *Leveled) logWithLevel(level, msg string, args ...interface{}) {
	// Format key-value pairs
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			parts = append(parts, fmt.Sprintf("%v=%v", args[i], args[i+1]))
		} else {
			parts = append(parts, args[i])
		}
	}
	l.Logger.Println(parts...)
}
