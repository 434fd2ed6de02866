package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithBookingID adds booking ID to logger context
func (l *Logger) WithBookingID(bookingID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("booking_id", bookingID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Ledger and escrow logging methods

// LogPaymentRecorded logs a completed guest payment into escrow
func (l *Logger) LogPaymentRecorded(ctx context.Context, bookingID, transactionID string, amount float64) {
	l.Logger.InfoContext(ctx,
		"Guest Payment Recorded",
		slog.String("booking_id", bookingID),
		slog.String("transaction_id", transactionID),
		slog.Float64("amount", amount),
	)
}

// LogPayoutReleased logs a host payout leaving escrow
func (l *Logger) LogPayoutReleased(ctx context.Context, bookingID, transactionID string, amount float64) {
	l.Logger.InfoContext(ctx,
		"Host Payout Released",
		slog.String("booking_id", bookingID),
		slog.String("transaction_id", transactionID),
		slog.Float64("amount", amount),
	)
}

// LogRefundIssued logs a refund back to the guest
func (l *Logger) LogRefundIssued(ctx context.Context, bookingID, transactionID string, amount float64, reason string) {
	l.Logger.InfoContext(ctx,
		"Refund Issued",
		slog.String("booking_id", bookingID),
		slog.String("transaction_id", transactionID),
		slog.Float64("amount", amount),
		slog.String("reason", reason),
	)
}

// LogGatewayFailure logs an external payment gateway failure
func (l *Logger) LogGatewayFailure(ctx context.Context, bookingID, operation string, err error) {
	l.Logger.WarnContext(ctx,
		"Payment Gateway Failure",
		slog.String("booking_id", bookingID),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// LogDisputeResolved logs a dispute resolution outcome
func (l *Logger) LogDisputeResolved(ctx context.Context, bookingID, decision, resolvedBy string) {
	l.Logger.InfoContext(ctx,
		"Dispute Resolved",
		slog.String("booking_id", bookingID),
		slog.String("decision", decision),
		slog.String("resolved_by", resolvedBy),
	)
}

// Scheduler logging methods

// LogSweepStarted logs the start of a release sweep
func (l *Logger) LogSweepStarted(ctx context.Context, candidates int) {
	l.Logger.DebugContext(ctx,
		"Release Sweep Started",
		slog.Int("candidates", candidates),
	)
}

// LogSweepCompleted logs the end of a release sweep
func (l *Logger) LogSweepCompleted(ctx context.Context, released, skipped int, duration time.Duration) {
	l.Logger.InfoContext(ctx,
		"Release Sweep Completed",
		slog.Int("released", released),
		slog.Int("skipped", skipped),
		slog.Duration("duration", duration),
	)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
