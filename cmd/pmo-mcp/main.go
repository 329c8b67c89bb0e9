// Command pmo-mcp serves the PMO tools over the Model Context Protocol, so
// MCP clients can call them without the chat agent.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dileep-u-k/pmo-assistant/internal/app"
	"github.com/dileep-u-k/pmo-assistant/internal/config"
	"github.com/dileep-u-k/pmo-assistant/internal/logging"
	"github.com/dileep-u-k/pmo-assistant/internal/version"
)

const serverName = "pmo-assistant"

func main() {
	stdio := flag.Bool("stdio", false, "Use stdio transport (for desktop MCP clients)")
	configFile := flag.String("config", "", "Path to config file (default $PMO_CONFIG or config.yaml)")
	port := flag.String("port", "8090", "Port for the streamable HTTP transport")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	// stdout belongs to the protocol in stdio mode; arbor logs to stderr.
	logger := logging.New(cfg.LogLevel)

	registry, err := app.BuildRegistry(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tool registry error: %v\n", err)
		os.Exit(1)
	}

	mcpServer := server.NewMCPServer(
		serverName,
		version.Get().Version,
		server.WithToolCapabilities(true),
	)
	if err := registerTools(mcpServer, registry, logger); err != nil {
		fmt.Fprintf(os.Stderr, "register tools: %v\n", err)
		os.Exit(1)
	}

	if *stdio {
		if err := server.ServeStdio(mcpServer); err != nil {
			fmt.Fprintf(os.Stderr, "stdio server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	httpServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
	)
	logger.Info().Str("port", *port).Int("tools", registry.Count()).Msg("starting MCP streamable HTTP")
	if err := httpServer.Start(":" + *port); err != nil {
		fmt.Fprintf(os.Stderr, "http server error: %v\n", err)
		os.Exit(1)
	}
}
