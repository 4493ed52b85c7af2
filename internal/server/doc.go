// Package server provides the shared server context, the single-session
// SSE transport, the stdio loop and the HTTP surface of bizgateway.
//
// # Key Components
//
// ServerContext carries the downstream connectors (IMAP reader, SMTP
// sender, calendar feed, data stores, edge functions, SMS) to the tools.
//
// SSETransport serves GET /mcp/sse and POST /mcp/messages. At most one
// session is live at a time: SessionSlot refuses a second stream with 409
// and messages without a stream with 503. The stream carries the endpoint
// event, JSON-RPC replies as "message" events and a ": ping" comment every
// keep-alive interval.
//
// ServeStdio runs the same message handler over newline-delimited JSON on
// stdin and stdout.
//
// HTTPServer adds CORS, request metrics, /health, /analytics, the root
// manifest and the Kubernetes liveness and readiness endpoints.
// MetricsServer exposes Prometheus metrics on a dedicated port.
package server
