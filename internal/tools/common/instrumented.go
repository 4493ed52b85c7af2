package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/tools/registry"
)

// InstrumentedToolHandler wraps a tool handler with tracing, metrics and
// audit logging. A payload implementing SoftFailure with a non-empty
// message is recorded as a soft error; the payload itself is returned
// unchanged.
//
// Usage:
//
//	reg.MustRegister(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler registry.Handler) registry.Handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSession(SessionID(ctx)).
			WithArguments(request.GetArguments()).
			WithSpanContext(ctx)

		payload, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
			instrumentation.EndSpan(span, err)
		case softMessage(payload) != "":
			status = instrumentation.StatusSoftError
			softErr := errors.New(softMessage(payload))
			invocation.CompleteWithSoftError(softErr)
			instrumentation.EndSpan(span, softErr)
		default:
			invocation.CompleteSuccess()
			instrumentation.EndSpan(span, nil)
		}

		metrics.RecordToolInvocation(ctx, toolName, status, duration)
		auditLogger.LogToolInvocation(invocation)

		return payload, err
	}
}

// Middleware returns a registry middleware that instruments every tool.
func Middleware(sc *server.ServerContext) registry.Middleware {
	return func(name string, next registry.Handler) registry.Handler {
		return InstrumentedToolHandler(name, sc, next)
	}
}

// SessionID returns the id of the client session bound to ctx, or "".
func SessionID(ctx context.Context) string {
	if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
		return session.SessionID()
	}
	return ""
}

func softMessage(payload any) string {
	if sf, ok := payload.(SoftFailure); ok {
		return sf.SoftError()
	}
	return ""
}
