package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/bizgateway/internal/tools/registry"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// Catalog is the read side of the tool registry.
type Catalog interface {
	Names() []string
	Len() int
	Stats() registry.Stats
}

// ServiceInfo describes the service in the root manifest.
type ServiceInfo struct {
	Name    string
	Title   string
	Version string
}

// HealthChecker provides the service status endpoints and the Kubernetes
// liveness and readiness endpoints.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic
	ready atomic.Bool
	// serverContext provides access to dependencies for health checks
	serverContext *ServerContext
	catalog       Catalog
	slot          *SessionSlot
	info          ServiceInfo
	// startTime tracks when the server started
	startTime time.Time
	now       func() time.Time
}

// NewHealthChecker creates a new HealthChecker. catalog and slot may be nil.
func NewHealthChecker(sc *ServerContext, catalog Catalog, slot *SessionSlot, info ServiceInfo) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		catalog:       catalog,
		slot:          slot,
		info:          info,
		startTime:     time.Now(),
		now:           time.Now,
	}
	// Server starts as ready by default
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// isServerShuttingDown checks if the server context is shutting down.
// Returns false if serverContext is nil (safe for testing).
func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// Liveness tells the orchestrator whether the process should be restarted.
// This should be a simple check that the server process is running.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := HealthResponse{
			Status: healthStatusOK,
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
// Readiness tells the orchestrator whether the server can receive traffic.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		// Check if server is marked as ready
		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
			allOk = false
		} else {
			checks["ready"] = healthStatusOK
		}

		// Check if server context is not shutdown
		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		response := HealthResponse{
			Checks: checks,
		}

		if allOk {
			response.Status = healthStatusOK
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("GET /healthz", h.LivenessHandler())
	mux.Handle("GET /readyz", h.ReadinessHandler())
	mux.Handle("GET /healthz/detailed", h.DetailedHealthHandler())
	mux.Handle("GET /health", h.StatusHandler())
	mux.Handle("GET /analytics", h.AnalyticsHandler())
	mux.Handle("GET /{$}", h.ManifestHandler())
}

// StatusResponse is the body of /health.
type StatusResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Tools     int    `json:"tools"`
}

// StatusHandler returns the /health handler.
func (h *HealthChecker) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		tools := 0
		if h.catalog != nil {
			tools = h.catalog.Len()
		}
		writeJSON(w, http.StatusOK, StatusResponse{
			Status:    healthStatusOK,
			Service:   h.info.Title,
			Timestamp: h.now().UTC().Format(time.RFC3339Nano),
			Tools:     tools,
		})
	})
}

// AnalyticsResponse is the body of /analytics.
type AnalyticsResponse struct {
	Uptime        string           `json:"uptime"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	TotalCalls    int64            `json:"total_calls"`
	ToolCalls     map[string]int64 `json:"tool_calls"`
	MostUsedTool  string           `json:"most_used_tool"`
	ActiveSession bool             `json:"active_session"`
}

// AnalyticsHandler returns the /analytics handler.
func (h *HealthChecker) AnalyticsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		uptime := h.now().Sub(h.startTime)
		resp := AnalyticsResponse{
			Uptime:        uptime.Truncate(time.Second).String(),
			UptimeSeconds: int64(uptime.Seconds()),
			ToolCalls:     map[string]int64{},
		}
		if h.catalog != nil {
			stats := h.catalog.Stats()
			resp.TotalCalls = stats.Total
			resp.ToolCalls = stats.PerTool
			resp.MostUsedTool = stats.MostUsed
		}
		if h.slot != nil {
			resp.ActiveSession = h.slot.Active()
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// Manifest is the body of the root endpoint.
type Manifest struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Protocol        string   `json:"protocol"`
	MCPEndpoint     string   `json:"mcp_endpoint"`
	MessageEndpoint string   `json:"message_endpoint"`
	Tools           []string `json:"tools"`
	Capabilities    []string `json:"capabilities"`
	Status          string   `json:"status"`
}

// ManifestHandler returns the handler for the root endpoint.
func (h *HealthChecker) ManifestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		tools := []string{}
		if h.catalog != nil {
			tools = h.catalog.Names()
		}
		writeJSON(w, http.StatusOK, Manifest{
			Name:            h.info.Title,
			Version:         h.info.Version,
			Protocol:        "mcp",
			MCPEndpoint:     SSEPath,
			MessageEndpoint: MessagesPath,
			Tools:           tools,
			Capabilities:    []string{"tools"},
			Status:          "operational",
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed endpoint.
// This endpoint provides comprehensive health information.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		response := DetailedHealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}

		// Determine overall status
		if !h.ready.Load() {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		} else if h.isServerShuttingDown() {
			response.Status = healthStatusShuttingDown
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}
