package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-dashboards/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboards/pkg/params"
)

func trimString(s string) string {
	return strings.TrimSpace(s)
}

func getArguments(req mcp.CallToolRequest) map[string]any {
	args, _ := req.Params.Arguments.(map[string]any)
	return args
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	val, _ := getArguments(req)[key].(string)
	return val
}

// decodeObjectArgument re-encodes an object argument into dst.
func decodeObjectArgument(req mcp.CallToolRequest, key string, dst any) error {
	raw, ok := getArguments(req)[key]
	if !ok || raw == nil {
		return fmt.Errorf("parameter '%s' is required", key)
	}
	if _, ok := raw.(map[string]any); !ok {
		return fmt.Errorf("parameter '%s' must be an object", key)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("parameter '%s': %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parameter '%s': %w", key, err)
	}
	return nil
}

// getRawParameters reads the "parameters" object as input text. Agents
// often send JSON numbers and booleans; those are rendered the same way a
// default value pre-populates an input, so coercion sees the usual text.
func getRawParameters(req mcp.CallToolRequest) models.RawParameterInput {
	raw := models.RawParameterInput{}
	values, _ := getArguments(req)["parameters"].(map[string]any)
	for name, v := range values {
		raw[name] = params.DefaultInput(models.QueryParameter{Name: name, DefaultValue: v})
	}
	return raw
}

// jsonResult marshals v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
