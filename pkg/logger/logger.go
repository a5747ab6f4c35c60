// Package logger provides structured logging for blockwatch using Logrus.
// A process-wide logger keeps request handlers, the poller, and the docker
// adapter on one consistent output without threading a logger through every
// constructor.
package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log *logrus.Logger
	mu  sync.RWMutex
)

func init() {
	log = logrus.New()
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

// Initialize reconfigures the global logger. level is one of debug, info,
// warn, error, fatal; format is json or text. Safe to call more than once.
func Initialize(level, format string) error {
	mu.Lock()
	defer mu.Unlock()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)

	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		return fmt.Errorf("invalid log format %q: must be json or text", format)
	}
	return nil
}

// Get returns the global logger instance.
func Get() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// WithField returns an entry with a single structured field attached.
func WithField(key string, value interface{}) *logrus.Entry {
	return Get().WithField(key, value)
}

// WithFields returns an entry with structured fields attached.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Get().WithFields(fields)
}

// WithError returns an entry with an error field attached.
func WithError(err error) *logrus.Entry {
	return Get().WithError(err)
}

// Infof logs a formatted message at level Info.
func Infof(format string, args ...interface{}) {
	Get().Infof(format, args...)
}

// Warnf logs a formatted message at level Warn.
func Warnf(format string, args ...interface{}) {
	Get().Warnf(format, args...)
}

// Errorf logs a formatted message at level Error.
func Errorf(format string, args ...interface{}) {
	Get().Errorf(format, args...)
}

// Fatalf logs a formatted message at level Fatal then exits.
func Fatalf(format string, args ...interface{}) {
	Get().Fatalf(format, args...)
}
