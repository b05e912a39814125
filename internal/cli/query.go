package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"tourrag/internal/app"
	"tourrag/internal/usecase"
)

var (
	queryText    string
	queryTopK    int
	queryJSON    bool
	queryContext bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show what retrieval finds for a question",
	Long: `Run a question through the retrieval fallback chain and print the hits together
with the tier that produced them.

Examples:
  rag query -q "waterfalls in the south"
  rag query -q "snorkelling" --top-k 10 --json
  rag query -q "hiking" --context   # the context block a chat prompt would get`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryContext, "context", false, "print the formatted prompt context")
	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := app.New(cmd.Context(), GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}

	result, err := a.Retrieve.Retrieve(cmd.Context(), queryText, queryTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch {
	case queryJSON:
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
	case queryContext:
		fmt.Println(usecase.FormatContext(result.Hits))
	default:
		if result.Empty() {
			fmt.Println("No results found (all retrieval tiers exhausted).")
			return nil
		}
		fmt.Printf("Found %d results for: %s\n", len(result.Hits), queryText)
		fmt.Printf("Tier: %s", result.Tier)
		if result.LowConfidence {
			fmt.Print(" (low confidence: keyword match)")
		}
		fmt.Print("\n\n")

		for i, h := range result.Hits {
			title := h.Payload.Title
			if title == "" {
				title = "Untitled"
			}
			fmt.Printf("--- [%d] %s (%s, score: %.3f) ---\n", i+1, title, h.Payload.SourceFile, h.Score)
			text := []rune(h.Payload.Content)
			if len(text) > 500 {
				text = append(text[:500], []rune("...")...)
			}
			fmt.Println(string(text))
			fmt.Println()
		}
	}

	return nil
}
