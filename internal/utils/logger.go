package utils

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging with verbose mode support.
// Debug output is only emitted when verbose mode is on.
type Logger struct {
	mu      sync.RWMutex
	verbose bool
	base    zerolog.Logger
}

var (
	loggerInstance *Logger
	once           sync.Once
)

// GetLogger returns the singleton logger instance.
func GetLogger() *Logger {
	once.Do(func() {
		loggerInstance = &Logger{
			base: newBase(os.Stderr, zerolog.InfoLevel),
		}
	})
	return loggerInstance
}

func newBase(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// InitLogger configures the global logger from a level name ("debug",
// "info", "warn", "error"). Verbose forces debug level.
func InitLogger(level string, verbose bool) {
	l := GetLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
	l.base = newBase(os.Stderr, resolveLevel(level, verbose))
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	l := GetLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base = l.base.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true})
}

func resolveLevel(level string, verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetVerboseMode sets the verbose mode globally.
func SetVerboseMode(verbose bool) {
	GetLogger().SetVerbose(verbose)
}

// SetVerbose sets the verbose mode for this logger instance.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
	if verbose {
		l.base = l.base.Level(zerolog.DebugLevel)
	} else if l.base.GetLevel() == zerolog.DebugLevel {
		l.base = l.base.Level(zerolog.InfoLevel)
	}
}

// IsVerbose returns whether verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// Zerolog returns a copy of the underlying structured logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	z := l.base
	return &z
}

// WithComponent returns a structured logger tagged with a component field.
func WithComponent(component string) zerolog.Logger {
	return GetLogger().Zerolog().With().Str("component", component).Logger()
}

// Debug logs a debug message (only shown when verbose=true).
func (l *Logger) Debug(msgOrFormat string, args ...interface{}) {
	if !l.IsVerbose() {
		return
	}
	l.Zerolog().Debug().Msgf(msgOrFormat, args...)
}

// Info logs an info message.
func (l *Logger) Info(msgOrFormat string, args ...interface{}) {
	l.Zerolog().Info().Msgf(msgOrFormat, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msgOrFormat string, args ...interface{}) {
	l.Zerolog().Warn().Msgf(msgOrFormat, args...)
}

// Error logs an error message.
func (l *Logger) Error(msgOrFormat string, args ...interface{}) {
	l.Zerolog().Error().Msgf(msgOrFormat, args...)
}

// Debugf logs a debug message using the global logger.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof logs an info message using the global logger.
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf logs a warning message using the global logger.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf logs an error message using the global logger.
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}
