package instrumentation

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// ToolInvocation is the audit record of one tool call.
//
// Argument values are never recorded: they carry mail addresses, phone
// numbers and free text. Only argument names are kept, and only when the
// audit logger is configured with IncludeArguments.
type ToolInvocation struct {
	Tool      string
	SessionID string
	Arguments []string

	StartTime time.Time
	Duration  time.Duration
	Status    string
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a ToolInvocation with timing started.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithSession records the transport session that issued the call.
func (ti *ToolInvocation) WithSession(sessionID string) *ToolInvocation {
	ti.SessionID = sessionID
	return ti
}

// WithArguments records the sorted argument names of the call.
func (ti *ToolInvocation) WithArguments(args map[string]any) *ToolInvocation {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ti.Arguments = keys
	return ti
}

// WithSpanContext copies trace identifiers from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete stops the clock and records the outcome.
func (ti *ToolInvocation) Complete(status string, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Status = status
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(StatusSuccess, nil)
}

// CompleteWithError marks the invocation as failed with a hard error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(StatusError, err)
}

// CompleteWithSoftError marks a handler failure reported inside the result payload.
func (ti *ToolInvocation) CompleteWithSoftError(err error) *ToolInvocation {
	return ti.Complete(StatusSoftError, err)
}

// Success reports whether the invocation completed without any error.
func (ti *ToolInvocation) Success() bool {
	return ti.Status == StatusSuccess
}

func (ti *ToolInvocation) logAttrs(includeArguments bool) []any {
	attrs := []any{
		slog.String("tool", ti.Tool),
		slog.String("status", ti.Status),
		slog.Duration("duration", ti.Duration),
	}
	if ti.SessionID != "" {
		attrs = append(attrs, slog.String("session", ti.SessionID))
	}
	if includeArguments && len(ti.Arguments) > 0 {
		attrs = append(attrs, slog.Any("arguments", ti.Arguments))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// AuditLogger writes one structured line per tool invocation.
type AuditLogger struct {
	logger           *slog.Logger
	includeArguments bool
	enabled          bool
}

// NewAuditLogger creates an enabled AuditLogger that omits argument names.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:           logger,
		includeArguments: config.IncludeArguments,
		enabled:          config.Enabled,
	}
}

// LogToolInvocation logs "tool_executed" on success and "tool_failed" otherwise.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled || ti == nil {
		return
	}

	args := ti.logAttrs(al.includeArguments)
	if ti.Success() {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
