package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"transcode-jobs/pkg/config"
)

// Logger wraps a logrus instance configured from service settings.
type Logger struct {
	entry *logrus.Logger
	out   io.Closer
}

var (
	globalMu     sync.RWMutex
	globalLogger = newDefault()
)

func newDefault() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{entry: l}
}

// NewLogger builds a logger from configuration.
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch cfg.Log.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out := &Logger{entry: l}
	switch cfg.Log.Output {
	case "", "stdout":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	default:
		f, ferr := os.OpenFile(cfg.Log.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if ferr != nil {
			l.SetOutput(os.Stdout)
			l.Warnf("cannot open log file %s, falling back to stdout: %v", cfg.Log.Output, ferr)
		} else {
			l.SetOutput(f)
			out.out = f
		}
	}

	return out
}

// SetGlobalLogger installs the process-wide logger.
func SetGlobalLogger(l *Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Close releases the log destination if it is a file.
func (l *Logger) Close() {
	if l.out != nil {
		_ = l.out.Close()
	}
}

func global() *logrus.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger.entry
}

// Debugf logs at debug level.
func Debugf(format string, args ...interface{}) { global().Debugf(format, args...) }

// Infof logs at info level.
func Infof(format string, args ...interface{}) { global().Infof(format, args...) }

// Warnf logs at warn level.
func Warnf(format string, args ...interface{}) { global().Warnf(format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...interface{}) { global().Errorf(format, args...) }

// Fatal logs the message and exits.
func Fatal(msg string) { global().Fatal(msg) }

// Debug logs a message with structured fields.
func Debug(msg string, fields map[string]interface{}) {
	global().WithFields(logrus.Fields(fields)).Debug(msg)
}

// Info logs a message with structured fields.
func Info(msg string, fields map[string]interface{}) {
	global().WithFields(logrus.Fields(fields)).Info(msg)
}

// Error logs a message with structured fields.
func Error(msg string, fields map[string]interface{}) {
	global().WithFields(logrus.Fields(fields)).Error(msg)
}
