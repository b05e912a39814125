package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tourrag/internal/domain"
)

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))
	assert.Equal(t, "", FormatContext([]domain.SearchHit{}))
}

func TestFormatContext_SingleHit(t *testing.T) {
	hit := hitWith("1", "Grand Bassin", "A sacred crater lake.", 0.87654)
	got := FormatContext([]domain.SearchHit{hit})

	assert.Equal(t, "Source 1 — Grand Bassin (chunk 0, score 0.877)\nA sacred crater lake.", got)
}

func TestFormatContext_MissingFields(t *testing.T) {
	hits := []domain.SearchHit{
		hitWith("1", "First", "one", 0.9),
		{ID: "2", Score: 0.5, Payload: domain.Metadata{Content: "two"}},
	}
	got := FormatContext(hits)

	blocks := strings.Split(got, "\n\n---\n\n")
	assert.Len(t, blocks, 2)
	assert.Equal(t, "Source 2 — Untitled (chunk ?, score 0.500)\ntwo", blocks[1])
}

func TestFormatContext_KeepsOrder(t *testing.T) {
	hits := []domain.SearchHit{
		hitWith("1", "Low", "l", 0.1),
		hitWith("2", "High", "h", 0.9),
	}
	got := FormatContext(hits)
	assert.Less(t, strings.Index(got, "Low"), strings.Index(got, "High"))
}
