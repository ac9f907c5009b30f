package log

import (
	"context"
	"log/slog"
	"time"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	// Return default logger if not found
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

// LogAnalysisCompleted logs the result of one analysis run
func (sl *StructuredLogger) LogAnalysisCompleted(ctx context.Context, userID string, transactions int, label string, anomalies int, duration time.Duration) {
	fields := NewFields().
		WithAnalysis(userID, transactions, label, anomalies).
		WithSuccess(true).
		WithDuration(duration).
		WithOperation(OpAnalyze).
		WithComponent(ComponentInsights)

	sl.logger.Logger.InfoContext(ctx, "Analysis completed", fields.ToSlice()...)
}

// LogOutcome logs a run that ended without a full report
func (sl *StructuredLogger) LogOutcome(ctx context.Context, outcome string, duration time.Duration) {
	fields := NewFields().
		WithOutcome(outcome).
		WithSuccess(true).
		WithDuration(duration).
		WithOperation(OpAnalyze).
		WithComponent(ComponentInsights)

	sl.logger.Logger.InfoContext(ctx, "Analysis skipped", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
