package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	r := New(nil)
	r.MustRegister(readEmailsTool(), echoHandler)
	r.MustRegister(sendEmailTool(), echoHandler)
	r.Seal()
	return NewDispatcher(r, mcpserver.NewMCPServer("bizgateway", "test"), nil)
}

func roundTrip(t *testing.T, d *Dispatcher, msg string) map[string]any {
	t.Helper()
	resp := d.HandleMessage(context.Background(), json.RawMessage(msg))
	require.NotNil(t, resp)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestDispatcher_ToolsCall(t *testing.T) {
	d := newDispatcher(t)
	out := roundTrip(t, d, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"read_emails","arguments":{"limit":3}}}`)

	assert.Equal(t, float64(7), out["id"])
	result := out["result"].(map[string]any)
	assert.Nil(t, result["isError"])
	content := result["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "text", content["type"])

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(content["text"].(string)), &args))
	assert.Equal(t, float64(3), args["limit"])
	assert.Equal(t, "INBOX", args["folder"])
}

func TestDispatcher_UnknownTool(t *testing.T) {
	d := newDispatcher(t)
	out := roundTrip(t, d, `{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"nope"}}`)
	result := out["result"].(map[string]any)
	assert.Equal(t, true, result["isError"])
	assert.Equal(t, int64(1), d.registry.Stats().PerTool[UnknownBucket])
	assert.Equal(t, int64(1), d.registry.Stats().Total)
}

func TestDispatcher_InvalidParams(t *testing.T) {
	d := newDispatcher(t)
	out := roundTrip(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"read_emails","arguments":[1,2]}}`)
	errObj := out["error"].(map[string]any)
	assert.Equal(t, float64(mcp.INVALID_PARAMS), errObj["code"])
}

func TestDispatcher_ToolsListDelegated(t *testing.T) {
	d := newDispatcher(t)
	out := roundTrip(t, d, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	tools := out["result"].(map[string]any)["tools"].([]any)
	require.Len(t, tools, 2)
	assert.Equal(t, "read_emails", tools[0].(map[string]any)["name"])
	assert.Equal(t, "send_email", tools[1].(map[string]any)["name"])
}

func TestDispatcher_Initialize(t *testing.T) {
	d := newDispatcher(t)
	out := roundTrip(t, d, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	result := out["result"].(map[string]any)
	info := result["serverInfo"].(map[string]any)
	assert.Equal(t, "bizgateway", info["name"])
	assert.Contains(t, result["capabilities"].(map[string]any), "tools")
}

func TestDispatcher_Notification(t *testing.T) {
	d := newDispatcher(t)
	resp := d.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.Nil(t, resp)
}

func TestDispatcher_MalformedDelegated(t *testing.T) {
	d := newDispatcher(t)
	out := roundTrip(t, d, `{"jsonrpc":"2.0",`)
	errObj := out["error"].(map[string]any)
	assert.Equal(t, float64(mcp.PARSE_ERROR), errObj["code"])
}
