package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/actscript/internal/cli"
	"github.com/aretw0/actscript/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes scripts and sessions as MCP tools so agents can start sessions,
play acts and record replies.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		srv := mcp.NewServer(rt.Engine, rt.Sessions, rt.Logger)

		switch transport {
		case "stdio":
			// Logs never go to stdout here; it carries JSON-RPC.
			rt.Logger.Info("starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			sigCtx := cli.NewSignalContext(context.Background())
			defer sigCtx.Cancel()
			baseURL := "http://localhost" + addr
			return srv.ServeSSE(sigCtx, addr, baseURL)
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
}
