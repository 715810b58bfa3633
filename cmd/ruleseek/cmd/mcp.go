package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ruleseek/internal/logging"
	mcpserver "github.com/Aman-CERP/ruleseek/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP over stdio",
		Long: `Run the Model Context Protocol server on stdin/stdout.

Stdout carries JSON-RPC only, so all logging goes to the log file.
The tools are search_rules, list_categories and rules_status.`,
		Example: `  # Claude Desktop / Cursor server entry
  {"command": "ruleseek", "args": ["mcp"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context())
		},
	}
}

func runMCP(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cleanup, err := logging.SetupStdio(cfg.LogDir(), cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	defer cleanup()
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := shutdownContext()
		defer cancel()
		_ = svc.Close(sctx)
	}()

	srv, err := mcpserver.NewServer(svc.engine, mcpserver.WithMetrics(svc.metrics), mcpserver.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return srv.Run(ctx)
}
