package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/mcpserver"
	"github.com/jingkaihe/skillz/pkg/presenter"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve every skill as an MCP tool over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout.

All tools share one session, so directory cursors survive between calls.
Logs are written to stderr.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		logger.SetLogOutput(os.Stderr)
		presenter.SetQuiet(true)

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		state := mustState(ctx)
		s, err := mcpserver.New(state)
		if err != nil {
			logger.G(ctx).WithError(err).Error("failed to create MCP server")
			exit(ctx, 1)
		}

		if err := mcpserver.ServeStdio(ctx, s, os.Stdin, os.Stdout); err != nil {
			logger.G(ctx).WithError(err).Error("MCP server stopped")
			exit(ctx, 1)
		}
	},
}
