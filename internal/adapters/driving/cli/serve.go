package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/govlens/internal/adapters/driving/mcp"
)

var servePort int

// serveServer is swapped by tests to avoid blocking on stdio.
var serveServer = func(cmd *cobra.Command, server *mcp.Server, port int) error {
	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s (metrics on /metrics)\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Prometheus metrics on /metrics

Examples:
  # Stdio mode (default, for Claude Desktop)
  govlens serve

  # HTTP mode (for MCP Inspector, remote access)
  govlens serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "govlens": {
        "command": "/path/to/govlens",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{Query: svc, Metrics: metricsHandler})
	if err != nil {
		return err
	}

	// Warming and file watching run for the lifetime of the server.
	if application != nil {
		application.Start(cmd.Context())
	}

	return serveServer(cmd, server, servePort)
}
