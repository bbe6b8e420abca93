package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger = zerolog.Logger

// LogLevel represents available log levels
type LogLevel = int

// Log levels
const (
	TraceLevel LogLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

// InitializeLogger sets up the global logger with the specified configuration.
// Logs go to stderr so they never mix with command output.
func InitializeLogger(level LogLevel) {
	InitializeLoggerTo(os.Stderr, level)
}

// InitializeLoggerTo is InitializeLogger with an explicit destination.
func InitializeLoggerTo(out io.Writer, level LogLevel) {
	// Set time format to ISO8601
	zerolog.TimeFieldFormat = time.RFC3339

	// Set global log level based on configuration
	switch level {
	case TraceLevel:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case DebugLevel:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case InfoLevel:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case WarnLevel:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case ErrorLevel:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Create a console writer with nice formatting for terminal output
	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}

	// Set global logger
	ctx := zerolog.New(output).With().Timestamp()
	if level == TraceLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	log.Debug().Msg("Logger initialized")
}

// GetLogger returns a configured logger for a specific component
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// FormatLogger adapts a component logger to printf-style logging
// interfaces such as badger.Logger.
type FormatLogger struct {
	logger zerolog.Logger
}

// NewFormatLogger returns a FormatLogger for component.
func NewFormatLogger(component string) *FormatLogger {
	return &FormatLogger{logger: GetLogger(component)}
}

func (l *FormatLogger) Errorf(format string, args ...any) {
	l.log(zerolog.ErrorLevel, format, args...)
}

func (l *FormatLogger) Warningf(format string, args ...any) {
	l.log(zerolog.WarnLevel, format, args...)
}

func (l *FormatLogger) Infof(format string, args ...any) {
	l.log(zerolog.InfoLevel, format, args...)
}

func (l *FormatLogger) Debugf(format string, args ...any) {
	l.log(zerolog.DebugLevel, format, args...)
}

func (l *FormatLogger) log(level zerolog.Level, format string, args ...any) {
	// libraries terminate lines themselves
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	l.logger.WithLevel(level).Msg(msg)
}
