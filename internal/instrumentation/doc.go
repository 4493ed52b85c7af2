// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the bizgateway MCP server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of connected MCP sessions by transport
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of tool invocations by tool and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// Backend Metrics:
//   - backend_operations_total: Counter of IMAP, SMTP, ICS, data store and
//     connector operations by backend, operation and status
//   - backend_operation_duration_seconds: Histogram of backend operation durations
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>) and backend calls
// (<backend>.<operation>).
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: bizgateway)
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_ARGUMENTS
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	start := time.Now()
//	err = doFetch(ctx)
//	provider.Metrics().RecordBackendOperation(ctx, instrumentation.BackendIMAP,
//		instrumentation.OperationFetch, instrumentation.StatusFor(err), time.Since(start))
package instrumentation
