package registry

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
)

// compileSchema resolves the tool's input schema for validation.
func compileSchema(tool mcp.Tool) (*jsonschema.Resolved, error) {
	var raw []byte
	if tool.RawInputSchema != nil {
		raw = tool.RawInputSchema
	} else {
		data, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode input schema: %w", err)
		}
		raw = data
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to decode input schema: %w", err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
	if err != nil {
		return nil, fmt.Errorf("invalid input schema: %w", err)
	}
	return resolved, nil
}

// validateArgs fills in schema defaults, then validates args in place.
func validateArgs(schema *jsonschema.Resolved, args map[string]any) error {
	if err := schema.ApplyDefaults(&args); err != nil {
		return err
	}
	return schema.Validate(args)
}
