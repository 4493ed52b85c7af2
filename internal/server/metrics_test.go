package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bizgateway/internal/instrumentation"
)

func newPrometheusProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		ServiceName:     "bizgateway-test",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestNewMetricsServer_Validation(t *testing.T) {
	disabled, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{Enabled: false})
	require.NoError(t, err)

	tests := []struct {
		name     string
		provider *instrumentation.Provider
		addr     string
		wantAddr string
		wantErr  string
	}{
		{name: "explicit addr", provider: newPrometheusProvider(t), addr: ":9191", wantAddr: ":9191"},
		{name: "default addr", provider: newPrometheusProvider(t), wantAddr: DefaultMetricsAddr},
		{name: "nil provider", wantErr: "instrumentation provider is required"},
		{name: "disabled provider", provider: disabled, wantErr: "instrumentation provider is not enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewMetricsServer(MetricsServerConfig{
				Addr:                    tt.addr,
				Enabled:                 true,
				InstrumentationProvider: tt.provider,
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, srv.Addr())
		})
	}
}

func TestMetricsServer_ServesToolMetrics(t *testing.T) {
	provider := newPrometheusProvider(t)
	srv, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    "127.0.0.1:0",
		InstrumentationProvider: provider,
	})
	require.NoError(t, err)

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- srv.StartWithReadySignal(ready) }()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("metrics server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not start")
	}

	provider.Metrics().RecordToolInvocation(context.Background(), "sda_get_tenancies", instrumentation.StatusSuccess, 5*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "mcp_tool_invocations_total")
	assert.Contains(t, string(body), `tool="sda_get_tenancies"`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Error("metrics server did not stop")
	}
}

func TestMetricsServer_ShutdownBeforeStart(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: newPrometheusProvider(t)})
	require.NoError(t, err)

	assert.NoError(t, srv.Shutdown(context.Background()))
}
