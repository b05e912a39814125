package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tourrag/internal/domain"
	"tourrag/internal/port"
)

type fakeEmbedder struct {
	dim    int
	failOn string // texts containing it fail
	short  string // texts containing it get a vector one element too short
	calls  int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("quota exceeded")
	}
	vec := make([]float32, e.dim)
	vec[0] = 1
	if e.short != "" && strings.Contains(text, e.short) {
		return vec[:e.dim-1], nil
	}
	return vec, nil
}

func (e *fakeEmbedder) Dimension() int    { return e.dim }
func (e *fakeEmbedder) ModelName() string { return "fake" }

type fakeIndex struct {
	mu sync.Mutex

	exists  bool
	records []domain.EmbeddingRecord
	spec    port.CollectionSpec

	searchHits []domain.SearchHit
	searchErr  error
	scrollHits []domain.SearchHit
	scrollErr  error
	upsertErr  error

	deletes     int
	searches    int
	scrolls     int
	textIndexes int
	lastScroll  port.ScrollRequest
}

func (f *fakeIndex) CreateCollection(ctx context.Context, spec port.CollectionSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists = true
	f.spec = spec
	return nil
}

func (f *fakeIndex) DeleteCollection(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	f.exists = false
	f.records = nil
	return nil
}

func (f *fakeIndex) GetCollection(ctx context.Context) (*port.CollectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.exists {
		return nil, domain.ErrCollectionNotFound
	}
	return &port.CollectionInfo{Name: "test", PointsCount: len(f.records), Dimension: f.spec.Dimension}, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, req port.SearchRequest) ([]domain.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]domain.SearchHit(nil), f.searchHits...), nil
}

func (f *fakeIndex) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records), nil
}

func (f *fakeIndex) Name() string { return "test" }

func (f *fakeIndex) EnsureTextIndex(ctx context.Context, field string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textIndexes++
	return nil
}

func (f *fakeIndex) Scroll(ctx context.Context, req port.ScrollRequest) ([]domain.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls++
	f.lastScroll = req
	if f.scrollErr != nil {
		return nil, f.scrollErr
	}
	return append([]domain.SearchHit(nil), f.scrollHits...), nil
}

// vectorOnlyIndex hides the TextSearcher methods of fakeIndex.
type vectorOnlyIndex struct {
	port.VectorIndex
}

type fakeStore struct {
	records []domain.LocalRecord
	saved   bool
	saves   int
}

func (s *fakeStore) Load(ctx context.Context) ([]domain.LocalRecord, error) {
	if !s.saved {
		return nil, domain.ErrStoreNotFound
	}
	return s.records, nil
}

func (s *fakeStore) Save(ctx context.Context, records []domain.LocalRecord) error {
	s.records = records
	s.saved = true
	s.saves++
	return nil
}

func (s *fakeStore) Path() string { return "fake" }

type fakeGenerator struct {
	chunks []string
	err    error
	last   port.GenerateRequest
}

func (g *fakeGenerator) Stream(ctx context.Context, req port.GenerateRequest, onChunk func(string) error) error {
	g.last = req
	for _, c := range g.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return g.err
}

func (g *fakeGenerator) ModelName() string { return "fake-llm" }

func hitWith(id, title, content string, score float64) domain.SearchHit {
	idx := 0
	return domain.SearchHit{
		ID:    id,
		Score: score,
		Payload: domain.Metadata{
			Type:       "document",
			Title:      title,
			Content:    content,
			ChunkIndex: &idx,
		},
	}
}
