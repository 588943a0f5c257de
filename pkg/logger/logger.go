// Package logger wraps zerolog with the console layout of roomlink apps.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Level int8

const (
	TraceLevel Level = iota - 1
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Context fields that the console writer prints as columns.
const (
	TagField       = "s"
	DirectionField = "d"
	ClientField    = "c"
	MarkField      = "m"
)

var consoleParts = []string{
	zerolog.TimestampFieldName,
	"pid",
	zerolog.LevelFieldName,
	zerolog.CallerFieldName,
	TagField,
	DirectionField,
	ClientField,
	MarkField,
	zerolog.MessageFieldName,
}

type Logger struct {
	logger *zerolog.Logger
}

// NewConsole makes a human-readable logger into stdout.
// The tag is a short app label: b for the broker, u for the client.
func NewConsole(debug bool, tag string, noColor bool) *Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := zerolog.ConsoleWriter{
		Out:           os.Stdout,
		TimeFormat:    "15:04:05.0000",
		NoColor:       noColor,
		PartsOrder:    consoleParts,
		FieldsExclude: []string{"pid", TagField, DirectionField, ClientField, MarkField},
	}
	if noColor {
		out.FormatMessage = func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprint(i)
		}
	}

	l := zerolog.New(out).With().
		Timestamp().
		Str("pid", fmt.Sprintf("%4x", os.Getpid())).
		Str(TagField, tag).
		Str(DirectionField, " ").
		Str(ClientField, " ").
		Str(MarkField, "").
		Logger()
	return &Logger{logger: &l}
}

// NewWriter makes a plain JSON logger into w.
func NewWriter(w io.Writer) *Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	return &Logger{logger: &l}
}

// Default is the zerolog global logger.
func Default() *Logger { return &Logger{logger: &log.Logger} }

func (l *Logger) GetLevel() Level                              { return Level(l.logger.GetLevel()) }
func (l *Logger) With() zerolog.Context                        { return l.logger.With() }
func (l *Logger) Level(level zerolog.Level) zerolog.Logger     { return l.logger.Level(level) }
func (l *Logger) Debug() *zerolog.Event                        { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event                         { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event                         { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event                        { return l.logger.Error() }
func (l *Logger) WithLevel(level zerolog.Level) *zerolog.Event { return l.logger.WithLevel(level) }

// Fatal exits the process after the message is written.
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

// Extend makes a child logger from the context.
func (l *Logger) Extend(ctx zerolog.Context) *Logger {
	child := ctx.Logger()
	return &Logger{logger: &child}
}

// Tagged makes a child logger marked with a module name.
func (l *Logger) Tagged(mark string) *Logger { return l.Extend(l.With().Str(MarkField, mark)) }
