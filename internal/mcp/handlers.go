package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ternarybob/arbor"

	"tourrag/internal/domain"
	"tourrag/internal/usecase"
)

const maxResultsLimit = 50

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	retrieve *usecase.RetrieveUseCase
	chat     *usecase.ChatUseCase
	logger   arbor.ILogger
}

func NewHandlers(retrieve *usecase.RetrieveUseCase, chat *usecase.ChatUseCase, logger arbor.ILogger) *Handlers {
	return &Handlers{retrieve: retrieve, chat: chat, logger: logger}
}

type searchResult struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Type       string  `json:"type,omitempty"`
	Region     string  `json:"region,omitempty"`
	Score      float64 `json:"score"`
	ChunkIndex *int    `json:"chunk_index,omitempty"`
	SourceFile string  `json:"source_file,omitempty"`
	Content    string  `json:"content"`
}

type searchResponse struct {
	Query         string         `json:"query"`
	Tier          domain.Tier    `json:"tier"`
	LowConfidence bool           `json:"low_confidence"`
	Results       []searchResult `json:"results"`
}

// SearchAttractions handles the search_attractions tool
func (h *Handlers) SearchAttractions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	maxResults := request.GetInt("max_results", 5)
	if maxResults <= 0 {
		maxResults = 5
	}
	maxResults = min(maxResults, maxResultsLimit)

	result, err := h.retrieve.Retrieve(ctx, query, maxResults)
	if err != nil {
		h.logger.Error().Err(err).Msg("MCP search failed")
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	resp := searchResponse{
		Query:         result.Query,
		Tier:          result.Tier,
		LowConfidence: result.LowConfidence,
		Results:       make([]searchResult, 0, len(result.Hits)),
	}
	for _, hit := range result.Hits {
		resp.Results = append(resp.Results, searchResult{
			ID:         hit.ID,
			Title:      hit.Payload.Title,
			Type:       hit.Payload.Type,
			Region:     hit.Payload.Region,
			Score:      hit.Score,
			ChunkIndex: hit.Payload.ChunkIndex,
			SourceFile: hit.Payload.SourceFile,
			Content:    hit.Payload.Content,
		})
	}

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	h.logger.Debug().Str("tier", result.Tier.String()).Int("results", len(resp.Results)).Msg("MCP search served")
	return mcp.NewToolResultText(string(data)), nil
}

// Ask handles the ask tool. The streamed answer is collected into one result.
func (h *Handlers) Ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}

	var answer strings.Builder
	result, err := h.chat.Stream(ctx, usecase.ChatRequest{Message: question}, func(chunk string) error {
		answer.WriteString(chunk)
		return nil
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("MCP ask failed")
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	text := strings.TrimSpace(answer.String())
	if sources := sourceList(result); sources != "" {
		text += "\n\nSources:\n" + sources
	}
	return mcp.NewToolResultText(text), nil
}

func sourceList(result *domain.RetrievalResult) string {
	if result.Empty() {
		return ""
	}

	seen := make(map[string]bool)
	var lines []string
	for _, hit := range result.Hits {
		title := hit.Payload.Title
		if title == "" {
			title = "Untitled"
		}
		if seen[title] {
			continue
		}
		seen[title] = true
		lines = append(lines, "- "+title)
	}
	if result.LowConfidence {
		lines = append(lines, "(keyword matches only)")
	}
	return strings.Join(lines, "\n")
}
