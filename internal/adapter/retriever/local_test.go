package retriever

import (
	"context"
	"errors"
	"math"
	"testing"

	"tourrag/internal/domain"
)

type memStore struct {
	records []domain.LocalRecord
	err     error
}

func (m *memStore) Load(ctx context.Context) ([]domain.LocalRecord, error) {
	return m.records, m.err
}

func (m *memStore) Save(ctx context.Context, records []domain.LocalRecord) error {
	m.records = records
	return nil
}

func (m *memStore) Path() string { return "mem" }

func TestCosine(t *testing.T) {
	v := []float32{0.3, -1.2, 4}
	if got := Cosine(v, v); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected Cosine(v,v)=1, got %f", got)
	}
	if got := Cosine(v, []float32{0, 0, 0}); got != 0 {
		t.Errorf("expected 0 for zero vector, got %f", got)
	}
	if got := Cosine(v, []float32{1, 2}); got != 0 {
		t.Errorf("expected 0 for length mismatch, got %f", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("expected -1 for opposite vectors, got %f", got)
	}
}

func TestRank_OrderAndTruncate(t *testing.T) {
	records := []domain.LocalRecord{
		{ID: "far", Embedding: []float32{0, 1}},
		{ID: "near", Embedding: []float32{1, 0.1}},
		{ID: "tie-a", Embedding: []float32{1, 1}},
		{ID: "tie-b", Embedding: []float32{1, 1}},
	}

	hits := Rank([]float32{1, 0}, records, 3, 0)
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	want := []string{"near", "tie-a", "tie-b"}
	for i, id := range want {
		if hits[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, hits[i].ID)
		}
		if hits[i].Tier != domain.TierLocalFallback {
			t.Errorf("expected local fallback tier, got %s", hits[i].Tier)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted descending at %d", i)
		}
	}
}

func TestRank_MinScoreAndDocumentFallback(t *testing.T) {
	records := []domain.LocalRecord{
		{ID: "a", Embedding: []float32{1, 0}, Document: "Grand Baie"},
		{ID: "b", Embedding: []float32{0, 1}, Document: "Mahebourg"},
	}

	hits := Rank([]float32{1, 0}, records, 5, 0.5)
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("expected only a, got %+v", hits)
	}
	if hits[0].Payload.Content != "Grand Baie" {
		t.Errorf("expected content from document, got %q", hits[0].Payload.Content)
	}
}

func TestRank_SkipsDimensionMismatch(t *testing.T) {
	records := []domain.LocalRecord{
		{ID: "a", Embedding: []float32{1, 0, 0, 0}},
		{ID: "b", Embedding: []float32{0, 1, 0, 0}},
	}
	if hits := Rank([]float32{1, 0, 0}, records, 5, 0); len(hits) != 0 {
		t.Fatalf("expected no hits for a store of another dimension, got %+v", hits)
	}

	records = append(records, domain.LocalRecord{ID: "c", Embedding: []float32{1, 0, 0}})
	hits := Rank([]float32{1, 0, 0}, records, 5, 0)
	if len(hits) != 1 || hits[0].ID != "c" {
		t.Errorf("expected only c, got %+v", hits)
	}
}

func TestLocalRetriever_MissingStore(t *testing.T) {
	r := NewLocalRetriever(&memStore{err: domain.ErrStoreNotFound})
	_, err := r.Search(context.Background(), []float32{1}, 5, 0)
	if !errors.Is(err, domain.ErrStoreNotFound) {
		t.Errorf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestLocalRetriever_Search(t *testing.T) {
	r := NewLocalRetriever(&memStore{records: []domain.LocalRecord{
		{ID: "x", Embedding: []float32{1, 0}},
		{ID: "y", Embedding: []float32{0.9, 0.1}},
	}})
	hits, err := r.Search(context.Background(), []float32{1, 0}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "x" {
		t.Errorf("expected x, got %+v", hits)
	}
}
