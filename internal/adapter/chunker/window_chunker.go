package chunker

import (
	"fmt"
	"iter"

	"tourrag/internal/domain"
)

const (
	DefaultSize    = 300
	DefaultOverlap = 50
)

// WindowChunker cuts text into fixed-size overlapping character windows.
// Sizes count runes, so a window never ends inside a UTF-8 sequence.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("size=%d overlap=%d: %w", size, overlap, domain.ErrInvalidWindow)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

func (c *WindowChunker) Size() int    { return c.size }
func (c *WindowChunker) Overlap() int { return c.overlap }

// Step is the distance between two consecutive window starts.
func (c *WindowChunker) Step() int { return c.size - c.overlap }

// Chunk returns every window of text. Empty text yields no chunks.
func (c *WindowChunker) Chunk(parentID, text string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, chunk := range c.Windows(parentID, text) {
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Windows yields windows lazily. The sequence can be ranged over more than once.
func (c *WindowChunker) Windows(parentID, text string) iter.Seq2[int, domain.Chunk] {
	return func(yield func(int, domain.Chunk) bool) {
		runes := []rune(text)
		n := len(runes)

		index := 0
		for start := 0; start < n; start += c.Step() {
			end := min(start+c.size, n)
			chunk := domain.Chunk{
				Text:     string(runes[start:end]),
				Index:    index,
				ParentID: parentID,
			}
			if !yield(start, chunk) {
				return
			}
			index++
		}
	}
}
