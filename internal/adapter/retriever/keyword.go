package retriever

import (
	"math"
	"sort"

	"tourrag/internal/adapter/analyzer"
	"tourrag/internal/domain"
)

// KeywordScorer ranks full-text filter candidates with BM25 computed over
// the candidate set itself. Candidates whose title shares query terms get a
// proportional boost.
type KeywordScorer struct {
	tokenizer        *analyzer.Tokenizer
	k1               float64
	b                float64
	titleBoostWeight float64
}

func NewKeywordScorer(tokenizer *analyzer.Tokenizer, k1, b, titleBoostWeight float64) *KeywordScorer {
	return &KeywordScorer{
		tokenizer:        tokenizer,
		k1:               k1,
		b:                b,
		titleBoostWeight: titleBoostWeight,
	}
}

// NewDefaultKeywordScorer uses k1=1.2, b=0.75 and a 0.3 title boost.
func NewDefaultKeywordScorer() *KeywordScorer {
	return NewKeywordScorer(analyzer.NewTokenizer(), 1.2, 0.75, 0.3)
}

// Keywords returns the match terms for query.
func (s *KeywordScorer) Keywords(query string) []string {
	return s.tokenizer.Keywords(query)
}

// Score sets each hit's score and returns the hits stable-sorted by it,
// descending. Ties keep the candidate order.
func (s *KeywordScorer) Score(query string, hits []domain.SearchHit) []domain.SearchHit {
	queryTokens := s.tokenizer.Keywords(query)
	if len(hits) == 0 {
		return hits
	}

	docs := make([]map[string]int, len(hits))
	lengths := make([]int, len(hits))
	df := make(map[string]int)
	totalLen := 0

	for i, hit := range hits {
		tokens := s.tokenizer.Tokenize(hit.Payload.Content)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok := range tf {
			df[tok]++
		}
		docs[i] = tf
		lengths[i] = len(tokens)
		totalLen += len(tokens)
	}

	N := float64(len(hits))
	avgDl := float64(totalLen) / N
	if avgDl == 0 {
		avgDl = 1
	}

	querySet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		querySet[t] = struct{}{}
	}

	out := make([]domain.SearchHit, len(hits))
	for i, hit := range hits {
		score := 0.0
		dl := float64(lengths[i])
		for _, term := range queryTokens {
			tf, ok := docs[i][term]
			if !ok {
				continue
			}
			n := float64(df[term])
			idf := math.Log((N-n+0.5)/(n+0.5) + 1)
			tfFloat := float64(tf)
			score += idf * (tfFloat * (s.k1 + 1)) / (tfFloat + s.k1*(1-s.b+s.b*dl/avgDl))
		}

		if s.titleBoostWeight > 0 {
			score *= 1 + s.titleOverlap(hit.Payload.Title, querySet)*s.titleBoostWeight
		}

		hit.Score = score
		hit.Tier = domain.TierTextFilter
		out[i] = hit
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func (s *KeywordScorer) titleOverlap(title string, querySet map[string]struct{}) float64 {
	if len(querySet) == 0 {
		return 0
	}
	matches := 0
	for _, tok := range s.tokenizer.Keywords(title) {
		if _, ok := querySet[tok]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(querySet))
}
