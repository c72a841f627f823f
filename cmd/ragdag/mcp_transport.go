package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// runMCPStdio serves server over the standard MCP stdio transport, blocking
// until the client disconnects or ctx is canceled.
func runMCPStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
