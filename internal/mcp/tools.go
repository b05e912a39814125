package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"tourrag/internal/usecase"
)

const (
	ServerName = "tourrag"
	Version    = "0.1.0"
)

// NewServer builds an MCP server with the attraction tools registered.
// chat may be nil, in which case the ask tool is not offered.
func NewServer(retrieve *usecase.RetrieveUseCase, chat *usecase.ChatUseCase, logger arbor.ILogger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(ServerName, Version)
	RegisterTools(server, NewHandlers(retrieve, chat, logger))
	return server
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, handlers *Handlers) {
	server.AddTool(mcp.Tool{
		Name:        "search_attractions",
		Description: "Search the tourist attraction knowledge base. Falls back from vector search to keyword matching to the local store; results flagged low_confidence were matched by keyword only.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question or keywords",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchAttractions)

	if handlers.chat == nil {
		return
	}

	server.AddTool(mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about tourist attractions using retrieved context.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.Ask)
}
