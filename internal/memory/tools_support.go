package memory

import (
	"context"
	"strings"
	"time"

	"github.com/openclaw/lily/internal/domain"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100

	defaultSemanticK         = 5
	maxSemanticK             = 50
	defaultSemanticThreshold = 0.5
)

// SearchDecisions is the direct, tool-driven full-text search: unlike
// Recall it returns raw matches rather than a budgeted, rendered payload.
// limit defaults to 10 and is capped at 100.
func (e *Engine) SearchDecisions(ctx context.Context, query string, limit int) ([]*domain.Decision, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	ids, err := e.store.SearchFTS(ctx, ftsKeywords(query), limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Decision, 0, len(ids))
	for _, id := range ids {
		d, err := e.decisionByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// DecisionsForEntity returns every live decision recorded under an entity
// name, matched case-insensitively against the full entity name.
func (e *Engine) DecisionsForEntity(ctx context.Context, entity string) ([]*domain.Decision, error) {
	all, err := e.store.AllLiveDecisions(ctx)
	if err != nil {
		return nil, err
	}
	target := strings.ToLower(entity)
	var out []*domain.Decision
	for _, d := range all {
		if strings.ToLower(d.Entity) == target {
			out = append(out, d)
		}
	}
	return out, nil
}

// SemanticSearch is the direct, tool-driven counterpart to Recall's vector
// section: a bare embeddings search with no FTS dedup or budget rendering.
// k defaults to 5 and is capped at 50; threshold defaults to 0.5.
func (e *Engine) SemanticSearch(ctx context.Context, query string, k int, threshold float64) ([]VectorHit, error) {
	if e.embed == nil {
		return nil, nil
	}
	if k <= 0 {
		k = defaultSemanticK
	}
	if k > maxSemanticK {
		k = maxSemanticK
	}
	if threshold <= 0 {
		threshold = defaultSemanticThreshold
	}

	hits, err := e.embed.Search(ctx, query, k, threshold)
	if err != nil {
		return nil, err
	}
	out := make([]VectorHit, 0, len(hits))
	for _, h := range hits {
		d, err := e.decisionByID(ctx, h.DecisionID)
		if err != nil {
			return nil, err
		}
		if d != nil {
			out = append(out, VectorHit{Decision: d, Similarity: h.Similarity})
		}
	}
	return out, nil
}

// AddEntity registers a new entity base name in the runtime registry and
// persists it so future process restarts seed it back in.
func (e *Engine) AddEntity(ctx context.Context, name, provenance string) error {
	e.registry.Add(name)
	return e.store.UpsertEntity(ctx, &domain.Entity{
		Name:        strings.ToLower(name),
		DisplayName: name,
		Provenance:  provenance,
		AddedAt:     time.Now().UTC(),
	})
}

// RecentSecurityEvents returns the most recent security events, newest
// first, for the memory_security_log tool.
func (e *Engine) RecentSecurityEvents(ctx context.Context, limit int) ([]*domain.SecurityEvent, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return e.store.RecentSecurityEvents(ctx, limit)
}
