package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level represents logging level
type Level = zerolog.Level

// Logger levels
const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config holds logger configuration
type Config struct {
	Level      Level
	TimeFormat string
	Output     io.Writer
	// JSON disables the console writer.
	JSON bool
}

// Logger wraps zerolog.Logger
type Logger struct {
	ZL zerolog.Logger
}

// NewLogger creates a new logger instance
func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = &Config{
			Level:      InfoLevel,
			TimeFormat: time.RFC3339,
			Output:     os.Stdout,
		}
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        cfg.Output,
		TimeFormat: cfg.TimeFormat,
	}
	if cfg.JSON {
		output = cfg.Output
	}

	logger := zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Caller().
		Logger()

	return &Logger{ZL: logger}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{ZL: zerolog.Nop()}
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(name string) Level {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return InfoLevel
	}
	return lvl
}

// WithFields adds fields to logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{ZL: l.ZL.With().Fields(fields).Logger()}
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.ZL.Info().Fields(fields).Msg(msg)
}

func (l *Logger) Warn(err error, msg string, fields ...interface{}) {
	l.ZL.Warn().Err(err).Fields(fields).Msg(msg)
}

func (l *Logger) Error(err error, msg string, fields ...interface{}) {
	l.ZL.Error().Err(err).Fields(fields).Msg(msg)
}

func (l *Logger) Fatal(err error, msg string, fields ...interface{}) {
	l.ZL.Fatal().Err(err).Fields(fields).Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.ZL.Debug().Fields(fields).Msg(msg)
}
