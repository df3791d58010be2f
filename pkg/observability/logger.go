package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lunarjar/wishtree/pkg/contextkeys"
)

// LogLevel is the minimum severity a logger emits.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

var slogLevels = map[LogLevel]slog.Level{
	DebugLevel: slog.LevelDebug,
	InfoLevel:  slog.LevelInfo,
	WarnLevel:  slog.LevelWarn,
	ErrorLevel: slog.LevelError,
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

func (l LogLevel) slogLevel() slog.Level {
	if level, ok := slogLevels[l]; ok {
		return level
	}
	return slog.LevelInfo
}

// Logger is the JSON logger the service writes through. It wraps slog so
// call sites keep a small fluent surface (WithField, WithError, leveled
// printf variants) without pulling slog into every package.
type Logger struct {
	s *slog.Logger
}

// NewLogger builds a JSON logger writing to output at the given level.
// A nil output falls back to stdout.
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: level.slogLevel(),
	})
	return &Logger{s: slog.New(handler)}
}

// WithField returns a logger that tags every line with key=value.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{s: l.s.With(key, value)}
}

// WithFields returns a logger tagged with every entry of fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	attrs := make([]interface{}, 0, len(fields)*2)
	for key, value := range fields {
		attrs = append(attrs, key, value)
	}
	return &Logger{s: l.s.With(attrs...)}
}

// WithError tags the logger with the error message. Nil is a no-op so
// callers can chain it unconditionally.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{s: l.s.With("error", err.Error())}
}

func (l *Logger) Debug(msg string) { l.s.Debug(msg) }
func (l *Logger) Info(msg string)  { l.s.Info(msg) }
func (l *Logger) Warn(msg string)  { l.s.Warn(msg) }
func (l *Logger) Error(msg string) { l.s.Error(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.s.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.s.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.s.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.s.Error(fmt.Sprintf(format, args...))
}

// Request-scoped plumbing. The request-ID middleware stores the base logger
// and request ID; the auth layer stores the caller ID. FromContext stitches
// them back together so any layer below can log with full attribution.

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// WithCallerID stores the authenticated caller's user ID in the context.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, callerID)
}

// WithLogger stores the base logger in the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextkeys.LoggerKey, logger)
}

// RequestIDFrom returns the request ID stored in ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.RequestIDKey).(string)
	return id
}

// CallerIDFrom returns the caller's user ID stored in ctx, or "".
func CallerIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.UserIDKey).(string)
	return id
}

// FromContext returns the context's logger tagged with the request ID and
// caller ID when present. Without a stored logger it falls back to a stdout
// logger, so logging through a bare context is always safe.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextkeys.LoggerKey).(*Logger)
	if !ok {
		logger = NewLogger(InfoLevel, os.Stdout)
	}
	if id := RequestIDFrom(ctx); id != "" {
		logger = logger.WithField("request_id", id)
	}
	if id := CallerIDFrom(ctx); id != "" {
		logger = logger.WithField("user_id", id)
	}
	return logger
}
