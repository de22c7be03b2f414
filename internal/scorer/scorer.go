// Package scorer answers ranked-retrieval queries over the index store using
// a TF-IDF scoring function.
package scorer

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/Dsipek/nj-search-engine/internal/cache"
	"github.com/Dsipek/nj-search-engine/internal/index"
	"github.com/Dsipek/nj-search-engine/internal/tokenizer"
	"github.com/Dsipek/nj-search-engine/pkg/logger"
)

// RankedDocument is one entry of a ranking: a document ID and its score.
type RankedDocument struct {
	DocumentID int     `json:"document_id"`
	Score      float64 `json:"score"`
}

// Scorer scores every known document against a query string.
type Scorer struct {
	store        *index.Store
	cache        *cache.ResultCache
	logger       *slog.Logger
	computations atomic.Int64
}

// New creates a Scorer over the given store and result cache.
func New(store *index.Store, resultCache *cache.ResultCache) *Scorer {
	return &Scorer{
		store:  store,
		cache:  resultCache,
		logger: logger.WithComponent("scorer"),
	}
}

// Score returns the per-document score vector for the raw query string,
// consulting the result cache first. The bool result reports a cache hit.
func (s *Scorer) Score(ctx context.Context, query string) ([]float64, bool, error) {
	return s.cache.GetOrCompute(ctx, query, func() ([]float64, error) {
		return s.compute(query), nil
	})
}

// Search scores the query and returns the full ranking: every known
// document, ordered by descending score with ties broken by ascending
// document ID.
func (s *Scorer) Search(ctx context.Context, query string) ([]RankedDocument, bool, error) {
	scores, cacheHit, err := s.Score(ctx, query)
	if err != nil {
		return nil, false, err
	}
	return Rank(scores), cacheHit, nil
}

// compute builds the score vector from scratch. For every query token
// present in the inverted index, each posting contributes the document's
// stored frequency for that token weighted by 1 / posting-list length.
// Tokens absent from the index contribute nothing. An empty document
// collection yields an empty vector.
func (s *Scorer) compute(query string) []float64 {
	s.computations.Add(1)

	scores := make([]float64, s.store.DocCount())
	for _, token := range tokenizer.Tokenize(query) {
		postings := s.store.Postings(token)
		if len(postings) == 0 {
			continue
		}
		idf := 1 / float64(len(postings))
		for _, docID := range postings {
			if docID < 0 || docID >= len(scores) {
				continue
			}
			scores[docID] += s.store.Frequency(docID, token) * idf
		}
	}
	return scores
}

// Computations returns how many score vectors were computed from scratch,
// i.e. not served from the cache.
func (s *Scorer) Computations() int64 {
	return s.computations.Load()
}

// Rank orders a score vector into (document ID, score) pairs, highest score
// first. The sort is stable over the vector's index order, so tied documents
// stay in ascending ID order.
func Rank(scores []float64) []RankedDocument {
	ranked := make([]RankedDocument, len(scores))
	for docID, score := range scores {
		ranked[docID] = RankedDocument{DocumentID: docID, Score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
