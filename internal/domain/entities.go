package domain

import "time"

// DefaultDimension is the embedding size produced by the default embedding model.
const DefaultDimension = 768

// SourceDocument is one input document. Exactly one of Attraction or
// (Title, Content) carries the text.
type SourceDocument struct {
	ID          string
	SourceFile  string
	SourceLabel string
	Title       string
	Content     string
	Attraction  *AttractionRecord
}

// IsStructured reports whether the document is an attraction record.
func (d SourceDocument) IsStructured() bool {
	return d.Attraction != nil
}

// DisplayTitle returns the title used in payloads.
func (d SourceDocument) DisplayTitle() string {
	if d.Attraction != nil {
		return d.Attraction.Name
	}
	return d.Title
}

// Kind returns the payload type of the document.
func (d SourceDocument) Kind() string {
	if d.Attraction != nil {
		if d.Attraction.Type != "" {
			return d.Attraction.Type
		}
		return "attraction"
	}
	return "document"
}

type AttractionRecord struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name" validate:"required"`
	Type        string            `json:"type,omitempty"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty" validate:"dive,required"`
	Location    *Location         `json:"location,omitempty"`
	Reviews     []Review          `json:"reviews,omitempty" validate:"dive"`
	Notes       string            `json:"notes,omitempty"`
	Advisories  *Advisories       `json:"advisories,omitempty"`
	Popularity  map[string]string `json:"popularity,omitempty"`
}

type Location struct {
	Address string `json:"address,omitempty"`
	Region  string `json:"region,omitempty"`
}

type Review struct {
	Source  string  `json:"source,omitempty"`
	Rating  float64 `json:"rating,omitempty" validate:"gte=0,lte=10"`
	Count   int     `json:"count,omitempty" validate:"gte=0"`
	Summary string  `json:"summary,omitempty"`
}

type Advisories struct {
	Safety string `json:"safety,omitempty"`
	Travel string `json:"travel,omitempty"`
}

// Chunk is a window of a normalized document.
type Chunk struct {
	Text     string
	Index    int
	ParentID string
}

// Metadata is the payload stored next to every vector.
type Metadata struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	ChunkIndex *int   `json:"chunk_index,omitempty"`
	SourceFile string `json:"source_file"`
	Region     string `json:"region,omitempty"`
	DocumentID string `json:"document_id"`
}

type EmbeddingRecord struct {
	ID      string
	Vector  []float32
	Payload Metadata
}

// LocalRecord is the on-disk shape of the local embedding store.
type LocalRecord struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Document  string    `json:"document"`
	Metadata  Metadata  `json:"metadata"`
}

// ToLocal converts an embedding record into its local store form.
func (r EmbeddingRecord) ToLocal() LocalRecord {
	return LocalRecord{
		ID:        r.ID,
		Embedding: r.Vector,
		Document:  r.Payload.Content,
		Metadata:  r.Payload,
	}
}

type SearchHit struct {
	ID      string   `json:"id"`
	Score   float64  `json:"score"`
	Payload Metadata `json:"payload"`
	Tier    Tier     `json:"tier"`
}

type RetrievalResult struct {
	Query         string      `json:"query"`
	Hits          []SearchHit `json:"hits"`
	Tier          Tier        `json:"tier"`
	LowConfidence bool        `json:"low_confidence"`
}

// Empty reports whether no context is available.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Hits) == 0
}

type IngestReport struct {
	RunID     string        `json:"run_id"`
	Documents int           `json:"documents"`
	Skipped   int           `json:"skipped"`
	Chunks    int           `json:"chunks"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Uploaded  int           `json:"uploaded"`
	Warnings  []string      `json:"warnings,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
