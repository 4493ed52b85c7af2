package registry

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Dispatcher routes JSON-RPC messages. tools/call requests are answered by
// the registry; everything else goes to the mcp-go server.
type Dispatcher struct {
	registry *Registry
	server   *mcpserver.MCPServer
	logger   *slog.Logger
}

// NewDispatcher adds every registered tool to srv, so tools/list serves the
// same catalog, and returns a dispatcher over both.
func NewDispatcher(reg *Registry, srv *mcpserver.MCPServer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	for _, tool := range reg.Tools() {
		srv.AddTool(tool, reg.Handle)
	}
	return &Dispatcher{registry: reg, server: srv, logger: logger}
}

// Server returns the underlying mcp-go server.
func (d *Dispatcher) Server() *mcpserver.MCPServer {
	return d.server
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// HandleMessage answers one JSON-RPC message. It returns nil for
// notifications.
func (d *Dispatcher) HandleMessage(ctx context.Context, raw json.RawMessage) mcp.JSONRPCMessage {
	var msg rpcEnvelope
	if err := json.Unmarshal(raw, &msg); err != nil ||
		msg.JSONRPC != mcp.JSONRPC_VERSION ||
		msg.Method != string(mcp.MethodToolsCall) ||
		len(msg.ID) == 0 {
		return d.server.HandleMessage(ctx, raw)
	}

	var id mcp.RequestId
	if err := json.Unmarshal(msg.ID, &id); err != nil {
		return d.server.HandleMessage(ctx, raw)
	}

	var params callParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.Name == "" {
		return mcp.NewJSONRPCError(id, mcp.INVALID_PARAMS, "invalid tools/call params", nil)
	}

	return mcp.NewJSONRPCResultResponse(id, d.registry.Invoke(ctx, params.Name, params.Arguments))
}
