package observability

import (
	"context"
	"log/slog"
	"time"
)

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger adapts a slog.Logger. A nil logger uses slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value().(error); ok {
			out = append(out, slog.String(f.Key(), err.Error()))
			continue
		}
		out = append(out, slog.Any(f.Key(), f.Value()))
	}
	return out
}

func (s slogLogger) Debug(msg string, fields ...Field) { s.l.Debug(msg, attrs(fields)...) }
func (s slogLogger) Info(msg string, fields ...Field)  { s.l.Info(msg, attrs(fields)...) }
func (s slogLogger) Warn(msg string, fields ...Field)  { s.l.Warn(msg, attrs(fields)...) }
func (s slogLogger) Error(msg string, fields ...Field) { s.l.Error(msg, attrs(fields)...) }

func (s slogLogger) With(fields ...Field) Logger {
	return slogLogger{l: s.l.With(attrs(fields)...)}
}

// LogTracer records each finished span as a debug log line with its
// duration and tags.
type LogTracer struct {
	Log Logger
}

func (t LogTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	log := t.Log
	if log == nil {
		log = NopLogger{}
	}
	return ctx, &logSpan{log: log, name: name, start: time.Now()}
}

type logSpan struct {
	log   Logger
	name  string
	start time.Time
	tags  []Field
	err   error
}

func (s *logSpan) SetTag(key string, value interface{}) {
	s.tags = append(s.tags, Any(key, value))
}

func (s *logSpan) SetError(err error) { s.err = err }

func (s *logSpan) Finish() {
	fields := append([]Field{String("span", s.name), String("elapsed", time.Since(s.start).String())}, s.tags...)
	if s.err != nil {
		s.log.Warn("span failed", append(fields, Error("error", s.err))...)
		return
	}
	s.log.Debug("span finished", fields...)
}
