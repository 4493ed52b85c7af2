// Package registry holds the static tool catalog and dispatches tool calls.
//
// Tools are registered once at startup together with their handler. Every
// call goes through Registry.Invoke, which counts the call, resolves the
// tool, applies schema defaults, validates the arguments and converts the
// handler outcome into a CallToolResult:
//
//   - a payload is returned as indented JSON text with isError=false
//   - a Go error is returned as {"error": msg} with isError=true
//
// Dispatcher adapts the registry to JSON-RPC: tools/call is answered by the
// registry and every other method is delegated to the mcp-go server.
package registry
