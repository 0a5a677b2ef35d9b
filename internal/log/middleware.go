package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := NewContext(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPEnd writes the access log line for r. Client errors log at warn,
// server errors at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP, requestID string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithComponent(ComponentHTTP).
		WithRequestID(requestID).
		WithRequest(r.Method, r.URL.Path, r.Pattern, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithResponse(statusCode, durationMs).
		With(FieldClientIP, clientIP)

	sl.logger.Logger.LogAttrs(ctx, level, "HTTP request completed", fields...)
}

// LogOutgoingsReplaced logs a successful save of one person's outgoings.
func (sl *StructuredLogger) LogOutgoingsReplaced(ctx context.Context, person string, count int, totalPence int64) {
	fields := NewFields().
		WithComponent(ComponentOutgoings).
		WithOperation(OpReplace).
		WithOutgoings(person, count, totalPence)

	sl.logger.Logger.LogAttrs(ctx, slog.LevelInfo, "Outgoings replaced", fields...)
}

// LogError logs err with the component and operation it came from, plus any
// extra fields.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, extra Fields) {
	fields := NewFields().
		WithComponent(component).
		WithOperation(operation).
		WithError(err)
	fields = append(fields, extra...)

	sl.logger.Logger.LogAttrs(ctx, slog.LevelError, msg, fields...)
}
