package embeddings

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/storage"
)

// vectorCacheTTL bounds how long a full vector scan stays valid before
// Search falls back to the store again, so a long-idle process doesn't
// serve arbitrarily stale vectors.
const vectorCacheTTL = time.Minute

// Service ties an embedding Client to a Store: computing, persisting, and
// searching vectors.
type Service struct {
	client *Client
	store  *storage.Store
	// cache holds the most recently scanned model's vectors keyed by
	// decision id, consulted by Search via Load so repeated queries in one
	// tick don't re-scan the whole vectors table. Lock-light concurrent
	// reads are needed because a backfill goroutine can be writing to it
	// while Search runs.
	cache *xsync.MapOf[string, []float64]

	mu            sync.RWMutex
	cacheModel    string
	cacheIDs      []string
	cacheLoadedAt time.Time
}

// NewService builds a Service.
func NewService(client *Client, store *storage.Store) *Service {
	return &Service{
		client: client,
		store:  store,
		cache:  xsync.NewMapOf[string, []float64](),
	}
}

// Store computes an embedding for text and upserts it as the vector sidecar
// for decisionID.
func (s *Service) Store(ctx context.Context, decisionID, text string) error {
	emb, err := s.client.Embed(ctx, text)
	if err != nil || emb == nil {
		return nil // degrade gracefully; no vector is not a hard failure
	}
	v := &domain.Vector{
		ID:         uuid.NewString(),
		DecisionID: decisionID,
		Content:    text,
		Embedding:  emb,
		ModelID:    s.client.Model(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.UpsertVector(ctx, v); err != nil {
		return err
	}
	s.cache.Store(decisionID, emb)
	// A changed or new vector invalidates the last full scan; the next
	// Search rebuilds it from the store rather than serving a stale list.
	s.mu.Lock()
	s.cacheModel = ""
	s.mu.Unlock()
	return nil
}

// Backfill computes and stores embeddings for every decision lacking one
// under the current model, one request per tick of the given rate limiter
// interval.
func (s *Service) Backfill(ctx context.Context, interval time.Duration) error {
	ids, err := s.store.DecisionsMissingVector(ctx, s.client.Model())
	if err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		text, ferr := s.decisionText(ctx, id)
		if ferr != nil || text == "" {
			continue
		}
		_ = s.Store(ctx, id, text)
	}
	return nil
}

// decisionText loads the text a decision should be embedded against:
// description if present, else the fact value.
func (s *Service) decisionText(ctx context.Context, decisionID string) (string, error) {
	all, err := s.store.AllLiveDecisions(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range all {
		if d.ID != decisionID {
			continue
		}
		if d.Description != "" {
			return d.Description, nil
		}
		return d.FactValue, nil
	}
	return "", nil
}

// SearchResult is one match returned by Search.
type SearchResult struct {
	DecisionID string
	Similarity float64
}

// Search embeds the query and returns the top-k decisions above threshold
// by cosine similarity against every stored vector for the client's model.
// The vector scan itself is served from cache when a prior Search already
// populated it for this model within vectorCacheTTL.
func (s *Service) Search(ctx context.Context, query string, k int, threshold float64) ([]SearchResult, error) {
	qv, err := s.client.Embed(ctx, query)
	if err != nil || qv == nil {
		return nil, nil
	}

	model := s.client.Model()
	embeddings, err := s.loadModelVectors(ctx, model)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(embeddings))
	for id, emb := range embeddings {
		sim := cosineSimilarity(qv, emb)
		if sim >= threshold {
			results = append(results, SearchResult{DecisionID: id, Similarity: sim})
		}
	}

	sortBySimilarityDesc(results)
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// loadModelVectors returns every decision's embedding for model, preferring
// the cached scan (read through cache.Load, one id at a time) when it is
// still fresh and built for the same model; otherwise it re-scans the
// store and repopulates the cache.
func (s *Service) loadModelVectors(ctx context.Context, model string) (map[string][]float64, error) {
	s.mu.RLock()
	fresh := s.cacheModel == model && len(s.cacheIDs) > 0 && time.Since(s.cacheLoadedAt) < vectorCacheTTL
	ids := s.cacheIDs
	s.mu.RUnlock()

	if fresh {
		out := make(map[string][]float64, len(ids))
		ok := true
		for _, id := range ids {
			emb, loaded := s.cache.Load(id)
			if !loaded {
				ok = false
				break
			}
			out[id] = emb
		}
		if ok {
			return out, nil
		}
	}

	vectors, err := s.store.VectorsByModel(ctx, model)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float64, len(vectors))
	ids = make([]string, 0, len(vectors))
	for _, v := range vectors {
		s.cache.Store(v.DecisionID, v.Embedding)
		out[v.DecisionID] = v.Embedding
		ids = append(ids, v.DecisionID)
	}

	s.mu.Lock()
	s.cacheModel = model
	s.cacheIDs = ids
	s.cacheLoadedAt = time.Now().UTC()
	s.mu.Unlock()

	return out, nil
}

func sortBySimilarityDesc(results []SearchResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Similarity > results[j-1].Similarity; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

// cosineSimilarity is the standard definition; mismatched dimensions or a
// zero-norm vector yield 0 rather than an error.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
