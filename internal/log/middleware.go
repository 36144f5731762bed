package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

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

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogTransactionCreated logs a stored transaction after categorization.
func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, userID int64, tx TransactionRecord) {
	fields := NewFields().
		WithUser(userID).
		WithTransaction(tx.ID, tx.Description, tx.AmountCents, tx.Category, tx.Type).
		WithOperation(OpCreate)

	sl.logger.WithComponent(ComponentTransaction).InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

// TransactionRecord is the log view of a transaction.
type TransactionRecord struct {
	ID          int64
	Description string
	AmountCents int64
	Category    string
	Type        string
}

// LogFallback logs a degraded answer taken instead of an LLM-backed one.
func (sl *StructuredLogger) LogFallback(ctx context.Context, component, operation string, err error) {
	fields := NewFields().
		WithError(err).
		WithErrorType(ErrorTypeUpstream).
		WithOperation(operation)

	sl.logger.WithComponent(component).WarnContext(ctx, "Falling back to rule-based result", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.WithComponent(component).ErrorContext(ctx, msg, allFields.ToSlice()...)
}
