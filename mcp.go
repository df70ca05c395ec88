package analyzer

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/analyzer-client-go/internal/mcp"
)

// MCP server identity reported to clients.
const (
	MCPServerName    = "fl-analyze"
	MCPServerVersion = "0.1.0"
)

// MCP tool names.
const (
	ToolAnalyzeText = internalmcp.ToolAnalyzeText
	ToolAnalyzeFile = internalmcp.ToolAnalyzeFile
	ToolServerStats = internalmcp.ToolServerStats
)

// MCPServer exposes a Client as Model Context Protocol tools.
type MCPServer = internalmcp.Server

// NewMCPServer returns an MCP server whose tools are backed by c.
//
// Example:
//
//	client, _ := analyzer.Connect("localhost:50005")
//	defer client.Close()
//
//	srv := analyzer.NewMCPServer(client)
//	_ = srv.Run(ctx, &mcp.StdioTransport{})
func NewMCPServer(c Client) *MCPServer {
	srv := internalmcp.NewServer(MCPServerName, MCPServerVersion)
	internalmcp.RegisterAnalyzerTools(srv, c)

	return srv
}

// ServeMCP serves c's tools over stdin/stdout until ctx is done or the peer
// disconnects.
func ServeMCP(ctx context.Context, c Client) error {
	return NewMCPServer(c).Run(ctx, &mcp.StdioTransport{})
}
