// Package logger provides structured logging capabilities for tokenkit.
// It wraps zap with a context-first interface, masks sensitive fields and
// attaches OpenTelemetry trace identifiers when the context carries a span.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/tokenkit/pkg/constants"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ================================================================================
// Logger Interface
// ================================================================================

// Logger defines the interface for structured logging
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, message string, fields ...Field)

	// Info logs an informational message
	Info(ctx context.Context, message string, fields ...Field)

	// Warn logs a warning message
	Warn(ctx context.Context, message string, fields ...Field)

	// Error logs an error message
	Error(ctx context.Context, message string, err error, fields ...Field)

	// WithFields creates a new logger with additional fields
	WithFields(fields ...Field) Logger

	// WithComponent creates a new logger for a specific component
	WithComponent(component string) Logger

	// SetLevel sets the logging level
	SetLevel(level constants.LogLevel)

	// GetLevel returns the current logging level
	GetLevel() constants.LogLevel
}

// ================================================================================
// Field Type for Structured Logging
// ================================================================================

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand constructor for Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// String creates a string field
func String(key string, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Any creates a field with any type
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// ================================================================================
// Logger Implementation
// ================================================================================

type logger struct {
	zl    *zap.Logger
	level zap.AtomicLevel
}

// NewLogger creates a JSON logger writing to output at the given level
func NewLogger(level constants.LogLevel, output io.Writer) Logger {
	if output == nil {
		output = os.Stdout
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	atom := zap.NewAtomicLevelAt(toZapLevel(level))
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(output),
		atom,
	)

	return &logger{
		zl:    zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		level: atom,
	}
}

var (
	defaultOnce   sync.Once
	defaultLogger Logger
)

// Default returns the process-wide logger (stderr, info level)
func Default() Logger {
	defaultOnce.Do(func() {
		defaultLogger = NewLogger(constants.LogLevelInfo, os.Stderr)
	})
	return defaultLogger
}

func (l *logger) Debug(ctx context.Context, message string, fields ...Field) {
	l.zl.Debug(message, l.convert(ctx, fields)...)
}

func (l *logger) Info(ctx context.Context, message string, fields ...Field) {
	l.zl.Info(message, l.convert(ctx, fields)...)
}

func (l *logger) Warn(ctx context.Context, message string, fields ...Field) {
	l.zl.Warn(message, l.convert(ctx, fields)...)
}

func (l *logger) Error(ctx context.Context, message string, err error, fields ...Field) {
	if err != nil {
		fields = append(fields, Error(err))
	}
	l.zl.Error(message, l.convert(ctx, fields)...)
}

// WithFields creates a new logger with additional base fields
func (l *logger) WithFields(fields ...Field) Logger {
	return &logger{
		zl:    l.zl.With(l.convert(nil, fields)...),
		level: l.level,
	}
}

// WithComponent creates a new logger with a component name
func (l *logger) WithComponent(component string) Logger {
	return &logger{
		zl:    l.zl.With(zap.String("component", component)),
		level: l.level,
	}
}

func (l *logger) SetLevel(level constants.LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *logger) GetLevel() constants.LogLevel {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return constants.LogLevelDebug
	case zapcore.WarnLevel:
		return constants.LogLevelWarn
	case zapcore.ErrorLevel:
		return constants.LogLevelError
	default:
		return constants.LogLevelInfo
	}
}

func (l *logger) convert(ctx context.Context, fields []Field) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)+2)

	if ctx != nil {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			zapFields = append(zapFields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}
		if id, ok := ctx.Value(constants.ContextKeyInvocationID).(string); ok {
			zapFields = append(zapFields, zap.String("invocation_id", id))
		}
	}

	for _, f := range fields {
		zapFields = append(zapFields, zap.Any(f.Key, sanitizeValue(f.Key, f.Value)))
	}
	return zapFields
}

// WithInvocationID returns ctx tagged so every entry logged with it carries id
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.ContextKeyInvocationID, id)
}

// ParseLevel converts a textual level; unknown values map to info
func ParseLevel(s string) constants.LogLevel {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return constants.LogLevelInfo
	}
	switch lvl {
	case zapcore.DebugLevel:
		return constants.LogLevelDebug
	case zapcore.WarnLevel:
		return constants.LogLevelWarn
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return constants.LogLevelError
	default:
		return constants.LogLevelInfo
	}
}

func toZapLevel(level constants.LogLevel) zapcore.Level {
	switch level {
	case constants.LogLevelDebug:
		return zapcore.DebugLevel
	case constants.LogLevelWarn:
		return zapcore.WarnLevel
	case constants.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ================================================================================
// Utility Functions
// ================================================================================

// sensitiveKeys lists field key fragments whose values are masked
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"private_key",
	"credential",
	"descriptor",
}

// sanitizeValue masks sensitive field values
func sanitizeValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	for _, sensitiveKey := range sensitiveKeys {
		if strings.Contains(keyLower, sensitiveKey) {
			if str, ok := value.(string); ok && len(str) > 0 {
				return maskString(str)
			}
			return "***REDACTED***"
		}
	}
	return value
}

// maskString partially masks a string value
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}
