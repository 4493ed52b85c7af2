package registry

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// payloadResult renders a handler payload as indented JSON text.
func payloadResult(payload any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResult("failed to encode result: " + err.Error())
	}
	return mcp.NewToolResultText(string(data))
}

// errorResult renders msg as {"error": msg} with isError set.
func errorResult(msg string) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(map[string]string{"error": msg}, "", "  ")
	res := mcp.NewToolResultText(string(data))
	res.IsError = true
	return res
}
