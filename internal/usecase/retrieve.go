package usecase

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	"github.com/ternarybob/arbor"

	"tourrag/internal/adapter/analyzer"
	"tourrag/internal/adapter/retriever"
	"tourrag/internal/domain"
	"tourrag/internal/port"
)

// contentField is the payload field the keyword fallback matches against.
const contentField = "content"

type RetrieveOptions struct {
	TopK             int
	TextFilterFactor int
	TextFilterMin    int
	MinScore         float64 // 0 = disabled; applies to vector and local tiers
}

// DefaultRetrieveOptions returns topK 5, filter factor 3 and minimum 20.
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{TopK: 5, TextFilterFactor: 3, TextFilterMin: 20}
}

// TextFilterLimit is the scroll limit of the keyword tier.
func (o RetrieveOptions) TextFilterLimit(topK int) int {
	return max(topK*o.TextFilterFactor, o.TextFilterMin)
}

// RetrieveUseCase answers a query by walking the fallback tiers in order
// until one produces hits: vector search, keyword filter, local store.
type RetrieveUseCase struct {
	embedder port.Embedder
	index    port.VectorIndex
	local    *retriever.LocalRetriever
	keyword  *retriever.KeywordScorer
	opts     RetrieveOptions
	logger   arbor.ILogger

	textIndexReady atomic.Bool
}

// NewRetrieveUseCase creates a retrieval engine. index and local may be nil,
// in which case their tiers are skipped.
func NewRetrieveUseCase(
	embedder port.Embedder,
	index port.VectorIndex,
	local *retriever.LocalRetriever,
	keyword *retriever.KeywordScorer,
	opts RetrieveOptions,
	logger arbor.ILogger,
) *RetrieveUseCase {
	if keyword == nil {
		keyword = retriever.NewDefaultKeywordScorer()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultRetrieveOptions().TopK
	}
	return &RetrieveUseCase{
		embedder: embedder,
		index:    index,
		local:    local,
		keyword:  keyword,
		opts:     opts,
		logger:   logger,
	}
}

// Retrieve returns at most topK hits from the first tier that has any. Only
// a failure to embed the query is returned as an error; index and store
// failures degrade to the next tier. topK <= 0 uses the configured default.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, topK int) (*domain.RetrievalResult, error) {
	if topK <= 0 {
		topK = u.opts.TopK
	}
	query = analyzer.Normalize(query)
	result := &domain.RetrievalResult{Query: query, Tier: domain.TierExhausted}
	if query == "" {
		return result, nil
	}

	vector, err := u.embedder.Embed(ctx, query)
	if err != nil {
		var embErr *domain.EmbeddingError
		if !errors.As(err, &embErr) {
			err = &domain.EmbeddingError{Input: query, Err: err}
		}
		return nil, err
	}

	for tier := domain.TierVectorSearch; tier != domain.TierExhausted; tier = tier.Next() {
		var hits []domain.SearchHit
		switch tier {
		case domain.TierVectorSearch:
			hits = u.vectorSearch(ctx, vector, topK)
		case domain.TierTextFilter:
			hits = u.textFilter(ctx, query, topK)
		case domain.TierLocalFallback:
			hits = u.localFallback(ctx, vector, topK)
		}

		if len(hits) > 0 {
			result.Hits = hits
			result.Tier = tier
			result.LowConfidence = tier == domain.TierTextFilter
			u.logger.Debug().Str("tier", tier.String()).Int("hits", len(hits)).Msg("Retrieval succeeded")
			return result, nil
		}
		u.logger.Debug().Str("tier", tier.String()).Msg("Tier returned no hits, falling back")
	}

	u.logger.Info().Str("query", query).Msg("All retrieval tiers exhausted")
	return result, nil
}

func (u *RetrieveUseCase) vectorSearch(ctx context.Context, vector []float32, topK int) []domain.SearchHit {
	if u.index == nil {
		return nil
	}

	hits, err := u.index.Search(ctx, port.SearchRequest{Vector: vector, Limit: topK})
	if err != nil {
		u.logger.Warn().Err(err).Msg("Vector search failed")
		return nil
	}

	hits = filterMinScore(hits, u.opts.MinScore)
	sortHits(hits)
	return truncate(hits, topK)
}

func (u *RetrieveUseCase) textFilter(ctx context.Context, query string, topK int) []domain.SearchHit {
	ts, ok := u.index.(port.TextSearcher)
	if u.index == nil || !ok {
		return nil
	}

	keywords := u.keyword.Keywords(query)
	if len(keywords) == 0 {
		return nil
	}

	if !u.textIndexReady.Load() {
		if err := ts.EnsureTextIndex(ctx, contentField); err != nil {
			u.logger.Warn().Err(err).Msg("Failed to ensure text index")
			return nil
		}
		u.textIndexReady.Store(true)
	}

	candidates, err := ts.Scroll(ctx, port.ScrollRequest{Field: contentField, Keywords: keywords, Limit: u.opts.TextFilterLimit(topK)})
	if err != nil {
		u.logger.Warn().Err(err).Strs("keywords", keywords).Msg("Text filter failed")
		return nil
	}

	return truncate(u.keyword.Score(query, candidates), topK)
}

func (u *RetrieveUseCase) localFallback(ctx context.Context, vector []float32, topK int) []domain.SearchHit {
	if u.local == nil {
		return nil
	}

	hits, err := u.local.Search(ctx, vector, topK, u.opts.MinScore)
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			u.logger.Debug().Err(err).Msg("No local store")
		} else {
			u.logger.Warn().Err(err).Msg("Local fallback failed")
		}
		return nil
	}
	return hits
}

func filterMinScore(hits []domain.SearchHit, minScore float64) []domain.SearchHit {
	if minScore <= 0 {
		return hits
	}
	filtered := make([]domain.SearchHit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= minScore {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

// sortHits orders by descending score, keeping service order on ties.
func sortHits(hits []domain.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

func truncate(hits []domain.SearchHit, k int) []domain.SearchHit {
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}
