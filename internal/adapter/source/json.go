package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"tourrag/internal/domain"
)

// jsonEntry accepts both attraction records and plain {title, content}
// documents; which one an entry is depends on the fields present.
type jsonEntry struct {
	domain.AttractionRecord
	Title   string `json:"title"`
	Content string `json:"content"`
}

// parseJSON accepts a single object, an array of objects, or an object
// wrapping one under "attractions" or "documents".
func parseJSON(data []byte, path, label string) ([]domain.SourceDocument, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var entries []jsonEntry
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case '{':
		var wrapper struct {
			Attractions []jsonEntry `json:"attractions"`
			Documents   []jsonEntry `json:"documents"`
		}
		if err := json.Unmarshal(data, &wrapper); err == nil && (len(wrapper.Attractions) > 0 || len(wrapper.Documents) > 0) {
			entries = append(wrapper.Attractions, wrapper.Documents...)
			break
		}
		var entry jsonEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		entries = []jsonEntry{entry}
	default:
		return nil, fmt.Errorf("failed to parse %s: expected a JSON object or array", path)
	}

	docs := make([]domain.SourceDocument, 0, len(entries))
	for i, e := range entries {
		doc := domain.SourceDocument{
			SourceFile:  filepath.Base(path),
			SourceLabel: label,
		}

		switch {
		case e.Name != "":
			rec := e.AttractionRecord
			doc.Attraction = &rec
			doc.ID = firstNonEmpty(rec.ID, rec.Name)
		case e.Title != "" || e.Content != "":
			doc.Title = e.Title
			doc.Content = e.Content
			doc.ID = firstNonEmpty(e.ID, e.Title)
		default:
			// Neither shape; keep it so validation reports it.
			rec := e.AttractionRecord
			doc.Attraction = &rec
		}
		if doc.ID == "" {
			doc.ID = label + "_" + strconv.Itoa(i)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
