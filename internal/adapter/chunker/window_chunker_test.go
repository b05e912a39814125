package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"tourrag/internal/domain"
)

func TestWindowChunker_InvalidWindow(t *testing.T) {
	tests := []struct{ size, overlap int }{
		{300, 300},
		{300, 301},
		{0, 0},
		{-1, 0},
		{10, -1},
	}
	for _, tt := range tests {
		_, err := NewWindowChunker(tt.size, tt.overlap)
		if !errors.Is(err, domain.ErrInvalidWindow) {
			t.Errorf("size=%d overlap=%d: expected ErrInvalidWindow, got %v", tt.size, tt.overlap, err)
		}
	}
}

func TestWindowChunker_Accessors(t *testing.T) {
	c, err := NewWindowChunker(300, 50)
	if err != nil {
		t.Fatal(err)
	}
	if c.Size() != 300 || c.Overlap() != 50 || c.Step() != 250 {
		t.Errorf("expected 300/50/250, got %d/%d/%d", c.Size(), c.Overlap(), c.Step())
	}
}

func TestWindowChunker_Empty(t *testing.T) {
	c, err := NewWindowChunker(DefaultSize, DefaultOverlap)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := c.Chunk("doc", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestWindowChunker_ShortText(t *testing.T) {
	c, _ := NewWindowChunker(DefaultSize, DefaultOverlap)

	chunks, _ := c.Chunk("doc", "Le Morne Brabant")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "Le Morne Brabant" {
		t.Errorf("unexpected text %q", chunks[0].Text)
	}
	if chunks[0].Index != 0 || chunks[0].ParentID != "doc" {
		t.Errorf("unexpected chunk metadata: %+v", chunks[0])
	}
}

func TestWindowChunker_RepeatedSentence(t *testing.T) {
	c, _ := NewWindowChunker(300, 50)
	text := strings.Repeat("Mauritius has beautiful beaches. ", 20)
	if len(text) != 660 {
		t.Fatalf("expected 660 chars, got %d", len(text))
	}

	var starts []int
	var lengths []int
	for start, chunk := range c.Windows("mu", text) {
		starts = append(starts, start)
		lengths = append(lengths, len(chunk.Text))
		if chunk.Text != text[start:start+len(chunk.Text)] {
			t.Errorf("chunk %d does not match source at offset %d", chunk.Index, start)
		}
	}

	wantStarts := []int{0, 250, 500}
	wantLengths := []int{300, 300, 160}
	if len(starts) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(starts))
	}
	for i := range wantStarts {
		if starts[i] != wantStarts[i] {
			t.Errorf("chunk %d: expected start %d, got %d", i, wantStarts[i], starts[i])
		}
		if lengths[i] != wantLengths[i] {
			t.Errorf("chunk %d: expected length %d, got %d", i, wantLengths[i], lengths[i])
		}
	}
}

func TestWindowChunker_CoverageAndCount(t *testing.T) {
	text := strings.Repeat("abcdefghij", 97) // 970 chars

	for _, cfg := range []struct{ size, overlap int }{
		{300, 50}, {100, 0}, {100, 99}, {7, 3}, {1000, 10},
	} {
		c, err := NewWindowChunker(cfg.size, cfg.overlap)
		if err != nil {
			t.Fatal(err)
		}

		covered := make([]bool, len(text))
		count := 0
		prevIndex := -1
		for start, chunk := range c.Windows("doc", text) {
			for i := start; i < start+len(chunk.Text); i++ {
				covered[i] = true
			}
			if chunk.Index != prevIndex+1 {
				t.Errorf("size=%d: indices not contiguous at %d", cfg.size, chunk.Index)
			}
			prevIndex = chunk.Index
			count++
		}

		for i, ok := range covered {
			if !ok {
				t.Fatalf("size=%d overlap=%d: offset %d not covered", cfg.size, cfg.overlap, i)
			}
		}

		step := cfg.size - cfg.overlap
		want := (len(text) + step - 1) / step
		if count != want {
			t.Errorf("size=%d overlap=%d: expected %d windows, got %d", cfg.size, cfg.overlap, want, count)
		}
	}
}

func TestWindowChunker_MultiByte(t *testing.T) {
	c, _ := NewWindowChunker(5, 1)
	text := strings.Repeat("é", 12)

	for _, chunk := range c.Windows("doc", text) {
		if !utf8.ValidString(chunk.Text) {
			t.Errorf("chunk %d is not valid UTF-8", chunk.Index)
		}
		if n := utf8.RuneCountInString(chunk.Text); n > 5 {
			t.Errorf("chunk %d has %d runes", chunk.Index, n)
		}
	}
}

func TestWindowChunker_Restartable(t *testing.T) {
	c, _ := NewWindowChunker(10, 2)
	seq := c.Windows("doc", strings.Repeat("x", 35))

	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != second || first == 0 {
		t.Errorf("expected equal non-zero counts, got %d and %d", first, second)
	}
}

func TestWindowChunker_EarlyStop(t *testing.T) {
	c, _ := NewWindowChunker(10, 0)
	seen := 0
	for range c.Windows("doc", strings.Repeat("x", 100)) {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("expected to stop after 2, got %d", seen)
	}
}
