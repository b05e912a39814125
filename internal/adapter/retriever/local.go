package retriever

import (
	"context"
	"math"
	"sort"

	"tourrag/internal/domain"
	"tourrag/internal/port"
)

// LocalRetriever ranks every record of a local store against a query vector
// by brute force.
type LocalRetriever struct {
	store port.LocalStore
}

func NewLocalRetriever(store port.LocalStore) *LocalRetriever {
	return &LocalRetriever{store: store}
}

// Search returns up to k hits with score >= minScore. A missing store is
// reported as domain.ErrStoreNotFound.
func (r *LocalRetriever) Search(ctx context.Context, query []float32, k int, minScore float64) ([]domain.SearchHit, error) {
	records, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(query, records, k, minScore), nil
}

// Rank scores records by cosine similarity to query and keeps the top k.
// Records embedded at another dimension are skipped. Records keep their
// stored order on equal scores.
func Rank(query []float32, records []domain.LocalRecord, k int, minScore float64) []domain.SearchHit {
	if k <= 0 || len(records) == 0 {
		return nil
	}

	hits := make([]domain.SearchHit, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) != len(query) {
			continue
		}
		score := Cosine(query, rec.Embedding)
		if minScore > 0 && score < minScore {
			continue
		}
		payload := rec.Metadata
		if payload.Content == "" {
			payload.Content = rec.Document
		}
		hits = append(hits, domain.SearchHit{
			ID:      rec.ID,
			Score:   score,
			Payload: payload,
			Tier:    domain.TierLocalFallback,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when the lengths differ or either
// vector has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
