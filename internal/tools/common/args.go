package common

import (
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// OptionalString returns the trimmed string argument key and whether it
// was supplied with a non-empty value.
func OptionalString(request mcp.CallToolRequest, key string) (string, bool) {
	v, ok := request.GetArguments()[key].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// OptionalNumber returns the numeric argument key and whether it was supplied.
func OptionalNumber(request mcp.CallToolRequest, key string) (float64, bool) {
	switch v := request.GetArguments()[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// OptionalBool returns the boolean argument key and whether it was supplied.
func OptionalBool(request mcp.CallToolRequest, key string) (bool, bool) {
	v, ok := request.GetArguments()[key].(bool)
	return v, ok
}

// Limit returns the integer argument key, or def when it is missing or not
// positive. Values above math.MaxInt32 are clamped to it.
func Limit(request mcp.CallToolRequest, key string, def int) int {
	n, ok := OptionalNumber(request, key)
	if !ok || !(n >= 1) {
		return def
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
