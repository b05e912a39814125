package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"tourrag/internal/domain"
)

const contextSeparator = "\n\n---\n\n"

// FormatContext renders hits as numbered source blocks for a prompt, in the
// order given. No hits yields "".
func FormatContext(hits []domain.SearchHit) string {
	if len(hits) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(hits))
	for i, h := range hits {
		title := h.Payload.Title
		if title == "" {
			title = "Untitled"
		}
		chunk := "?"
		if h.Payload.ChunkIndex != nil {
			chunk = strconv.Itoa(*h.Payload.ChunkIndex)
		}

		header := fmt.Sprintf("Source %d — %s (chunk %s, score %.3f)", i+1, title, chunk, h.Score)
		blocks = append(blocks, header+"\n"+h.Payload.Content)
	}

	return strings.Join(blocks, contextSeparator)
}
