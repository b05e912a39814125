package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"tourrag/internal/adapter/analyzer"
	"tourrag/internal/adapter/retriever"
	"tourrag/internal/domain"
	"tourrag/internal/port"
)

// URL selects the in-memory index in place of a Qdrant URL.
const URL = "memory://"

// MemoryIndex is a process-local vector index with the same contract as the
// Qdrant adapter. Contents are lost on exit.
type MemoryIndex struct {
	mu         sync.RWMutex
	name       string
	exists     bool
	spec       port.CollectionSpec
	order      []string
	records    map[string]domain.EmbeddingRecord
	textFields map[string]bool
	tokenizer  *analyzer.Tokenizer
}

var (
	_ port.VectorIndex  = (*MemoryIndex)(nil)
	_ port.TextSearcher = (*MemoryIndex)(nil)
)

func NewMemoryIndex(name string) *MemoryIndex {
	return &MemoryIndex{
		name:       name,
		records:    make(map[string]domain.EmbeddingRecord),
		textFields: make(map[string]bool),
		tokenizer:  analyzer.NewTokenizer(),
	}
}

func (s *MemoryIndex) Name() string {
	return s.name
}

func (s *MemoryIndex) CreateCollection(ctx context.Context, spec port.CollectionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exists {
		return &domain.IndexUnavailableError{Op: "create_collection", Err: fmt.Errorf("collection %s already exists", s.name)}
	}
	s.exists = true
	s.spec = spec
	return nil
}

// DeleteCollection is a no-op when the collection does not exist.
func (s *MemoryIndex) DeleteCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = false
	s.order = nil
	s.records = make(map[string]domain.EmbeddingRecord)
	s.textFields = make(map[string]bool)
	return nil
}

func (s *MemoryIndex) GetCollection(ctx context.Context) (*port.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, domain.ErrCollectionNotFound
	}
	return &port.CollectionInfo{
		Name:        s.name,
		Status:      "green",
		PointsCount: len(s.records),
		Dimension:   s.spec.Dimension,
	}, nil
}

// Upsert replaces records with the same id and keeps first-insert order.
func (s *MemoryIndex) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return &domain.IndexUnavailableError{Op: "upsert", Err: domain.ErrCollectionNotFound}
	}

	for _, r := range records {
		if len(r.Vector) != s.spec.Dimension {
			return &domain.MalformedVectorError{Got: len(r.Vector), Want: s.spec.Dimension}
		}
	}
	for _, r := range records {
		if _, ok := s.records[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.records[r.ID] = r
	}
	return nil
}

func (s *MemoryIndex) Search(ctx context.Context, req port.SearchRequest) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, &domain.IndexUnavailableError{Op: "search", Err: domain.ErrCollectionNotFound}
	}

	hits := make([]domain.SearchHit, 0, len(s.order))
	for _, id := range s.order {
		r := s.records[id]
		hits = append(hits, domain.SearchHit{
			ID:      r.ID,
			Score:   retriever.Cosine(req.Vector, r.Vector),
			Payload: r.Payload,
			Tier:    domain.TierVectorSearch,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	return hits, nil
}

func (s *MemoryIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return 0, &domain.IndexUnavailableError{Op: "count", Err: domain.ErrCollectionNotFound}
	}
	return len(s.records), nil
}

func (s *MemoryIndex) EnsureTextIndex(ctx context.Context, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return &domain.IndexUnavailableError{Op: "create_index", Err: domain.ErrCollectionNotFound}
	}
	s.textFields[field] = true
	return nil
}

// Scroll returns, in insertion order, records whose field contains any of
// the keywords as a whole word.
func (s *MemoryIndex) Scroll(ctx context.Context, req port.ScrollRequest) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, &domain.IndexUnavailableError{Op: "scroll", Err: domain.ErrCollectionNotFound}
	}
	if !s.textFields[req.Field] {
		return nil, &domain.IndexUnavailableError{Op: "scroll", Err: fmt.Errorf("no text index on %q", req.Field)}
	}

	want := make(map[string]struct{}, len(req.Keywords))
	for _, k := range req.Keywords {
		want[strings.ToLower(k)] = struct{}{}
	}

	var hits []domain.SearchHit
	for _, id := range s.order {
		r := s.records[id]
		if !s.matches(payloadField(r.Payload, req.Field), want) {
			continue
		}
		hits = append(hits, domain.SearchHit{ID: r.ID, Payload: r.Payload, Tier: domain.TierTextFilter})
		if req.Limit > 0 && len(hits) == req.Limit {
			break
		}
	}
	return hits, nil
}

func (s *MemoryIndex) matches(text string, want map[string]struct{}) bool {
	for _, tok := range s.tokenizer.Tokenize(text) {
		if _, ok := want[tok]; ok {
			return true
		}
	}
	return false
}

func payloadField(m domain.Metadata, field string) string {
	switch field {
	case "content":
		return m.Content
	case "title":
		return m.Title
	case "type":
		return m.Type
	case "region":
		return m.Region
	}
	return ""
}
