package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologOption configures a zerolog-backed Logger.
type ZerologOption func(*zerolog.Context)

// NewZerologLogger builds a Logger backed by zerolog, writing to w (or a
// colorized console writer over stderr when w is nil and pretty is true).
func NewZerologLogger(w io.Writer, pretty bool, opts ...ZerologOption) Logger {
	if w == nil {
		if pretty {
			w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		} else {
			w = os.Stderr
		}
	}
	ctx := zerolog.New(w).With().Timestamp()
	for _, opt := range opts {
		if opt != nil {
			opt(&ctx)
		}
	}
	return zerologLogger{logger: ctx.Logger()}
}

// WithComponent attaches a static "component" field to every log line.
func WithComponent(name string) ZerologOption {
	return func(ctx *zerolog.Context) {
		*ctx = ctx.Str("component", name)
	}
}

type zerologLogger struct {
	logger zerolog.Logger
}

func (l zerologLogger) Debug(msg string, fields ...Field) { emit(l.logger.Debug(), msg, fields) }
func (l zerologLogger) Info(msg string, fields ...Field)  { emit(l.logger.Info(), msg, fields) }
func (l zerologLogger) Warn(msg string, fields ...Field)  { emit(l.logger.Warn(), msg, fields) }
func (l zerologLogger) Error(msg string, fields ...Field) { emit(l.logger.Error(), msg, fields) }

func emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		event = event.Interface(f.Key, f.Value)
	}
	event.Msg(msg)
}
