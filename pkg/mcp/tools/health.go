package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

// RegisterHealthTool adds a health check tool reporting the server version
// and the number of live dashboard sessions.
func RegisterHealthTool(s *server.MCPServer, version string, sessions SessionProvider) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and live dashboard session count"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version}
		if sessions != nil {
			result.Sessions = sessions.Len()
		}
		return jsonResult(result)
	})
}
