package cli

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"tourrag/internal/app"
	"tourrag/internal/mcp"
	"tourrag/internal/usecase"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for LLM agents",
	Long: `Run the assistant as an MCP (Model Context Protocol) server on stdio.

Tools:
  search_attractions   retrieval with tier and confidence
  ask                  retrieval-augmented answer (needs a generation API key)

Logs go to .rag/mcp.log since stdout carries the protocol.`,
	RunE: runMCP,
	Example: `  # claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "attractions": {"command": "rag", "args": ["mcp", "-d", "/path/to/project"]}
  #   }
  # }`,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}

	var chat *usecase.ChatUseCase
	if c, err := a.NewChat(ctx); err != nil {
		logger.Warn().Err(err).Msg("Generation unavailable; ask tool disabled")
	} else {
		chat = c
	}

	server := mcp.NewServer(a.Retrieve, chat, logger)
	logger.Info().Str("collection", GetConfig().Index.Collection).Msg("MCP server starting on stdio")

	if err := mcpserver.ServeStdio(server); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
