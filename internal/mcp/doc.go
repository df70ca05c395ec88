// Package mcp exposes an analyzer as a Model Context Protocol server.
//
// Server wraps the official MCP SDK server and keeps its own registry of
// tools so they can also be invoked directly, without a transport. The
// analyzer tools are analyze_text, analyze_file and server_stats.
package mcp
