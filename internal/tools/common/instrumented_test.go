package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/server"
)

type testEnv struct {
	sc     *server.ServerContext
	reader *sdkmetric.ManualReader
	audit  *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	metrics, err := instrumentation.NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	audit := &bytes.Buffer{}
	auditLogger := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(audit, nil)))

	sc, err := server.NewServerContext(ctx,
		server.WithMetrics(metrics),
		server.WithAuditLogger(auditLogger),
	)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })

	return &testEnv{sc: sc, reader: reader, audit: audit}
}

// invocations returns the recorded tool invocation counts keyed by status.
func (e *testEnv) invocations(t *testing.T, tool string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := e.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "mcp_tool_invocations_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				name, _ := dp.Attributes.Value("tool")
				if name.AsString() != tool {
					continue
				}
				status, _ := dp.Attributes.Value("status")
				out[status.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	env := newTestEnv(t)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
		called = true
		return map[string]any{"ok": true}, nil
	}

	wrapped := InstrumentedToolHandler("read_emails", env.sc, handler)
	payload, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if payload == nil {
		t.Error("expected payload, got nil")
	}

	got := env.invocations(t, "read_emails")
	if got[instrumentation.StatusSuccess] != 1 {
		t.Errorf("success count = %d, want 1", got[instrumentation.StatusSuccess])
	}
	if !strings.Contains(env.audit.String(), "tool_executed") {
		t.Errorf("audit log missing tool_executed: %s", env.audit.String())
	}
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	env := newTestEnv(t)

	expectedErr := errors.New("imap down")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedToolHandler("sort_emails", env.sc, handler)
	_, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}

	got := env.invocations(t, "sort_emails")
	if got[instrumentation.StatusError] != 1 {
		t.Errorf("error count = %d, want 1", got[instrumentation.StatusError])
	}
	if !strings.Contains(env.audit.String(), "tool_failed") {
		t.Errorf("audit log missing tool_failed: %s", env.audit.String())
	}
}

func TestInstrumentedToolHandler_SoftFailure(t *testing.T) {
	env := newTestEnv(t)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
		return Fail(errors.New("SMS not configured")), nil
	}

	wrapped := InstrumentedToolHandler("send_sms", env.sc, handler)
	payload, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	f, ok := payload.(Failure)
	if !ok {
		t.Fatalf("payload type = %T, want Failure", payload)
	}
	if f.Success || f.Error != "SMS not configured" {
		t.Errorf("payload = %+v", f)
	}

	got := env.invocations(t, "send_sms")
	if got[instrumentation.StatusSoftError] != 1 {
		t.Errorf("soft error count = %d, want 1", got[instrumentation.StatusSoftError])
	}
	if !strings.Contains(env.audit.String(), "SMS not configured") {
		t.Errorf("audit log missing error message: %s", env.audit.String())
	}
}

func TestInstrumentedToolHandler_SessionID(t *testing.T) {
	env := newTestEnv(t)

	slot := server.NewSessionSlot(context.Background(), nil)
	sess, err := slot.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer slot.Release(sess)

	srv := mcpserver.NewMCPServer("test", "1.0.0")
	ctx := srv.WithContext(context.Background(), sess)

	var seen string
	handler := func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
		seen = SessionID(ctx)
		return nil, nil
	}

	if _, err := InstrumentedToolHandler("get_calendar", env.sc, handler)(ctx, mcp.CallToolRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != sess.SessionID() {
		t.Errorf("SessionID() = %q, want %q", seen, sess.SessionID())
	}
	if !strings.Contains(env.audit.String(), sess.SessionID()) {
		t.Errorf("audit log missing session id: %s", env.audit.String())
	}
}

func TestInstrumentedToolHandler_NoInstrumentation(t *testing.T) {
	sc, err := server.NewServerContext(context.Background())
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer sc.Shutdown()

	handler := func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
		return "ok", nil
	}
	payload, err := InstrumentedToolHandler("get_calendar", sc, handler)(context.Background(), mcp.CallToolRequest{})
	if err != nil || payload != "ok" {
		t.Errorf("got (%v, %v), want (ok, nil)", payload, err)
	}
}

func TestMiddleware(t *testing.T) {
	env := newTestEnv(t)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
		return nil, nil
	}
	wrapped := Middleware(env.sc)("business_snapshot", handler)
	if _, err := wrapped(context.Background(), mcp.CallToolRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.invocations(t, "business_snapshot"); got[instrumentation.StatusSuccess] != 1 {
		t.Errorf("success count = %d, want 1", got[instrumentation.StatusSuccess])
	}
}

func TestSessionID_NoSession(t *testing.T) {
	if got := SessionID(context.Background()); got != "" {
		t.Errorf("SessionID() = %q, want empty", got)
	}
}
