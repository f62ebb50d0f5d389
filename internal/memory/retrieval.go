package memory

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/openclaw/lily/internal/domain"
)

const (
	defaultRecallVectorThreshold = 0.5
	ftsMinPromptLen              = 5
	ftsKeywordMinLen             = 3
	ftsMaxKeywords               = 8
)

var recallPunctuation = regexp.MustCompile(`[^\w\s]`)

// Recall fetches candidate pools for a query from the live permanent,
// stable and active TTL classes (session-class rows are not fetched) plus
// FTS and vector matches for the current turn's prompt, then
// allocates them against the character budget. Section composition and
// ordering (permanent, FTS, recent, vector) is entirely AllocateContext's
// job; this method is pure I/O.
func (e *Engine) Recall(ctx context.Context, query string, maxResults, charBudget int) (Payload, error) {
	pools, err := e.candidatePools(ctx, query, maxResults)
	if err != nil {
		return Payload{}, err
	}
	payload := AllocateContext(pools, charBudget)

	now := time.Now().UTC()
	for _, d := range payload.Decisions {
		_ = e.store.TouchLastAccessed(ctx, d.ID, now)
	}
	return payload, nil
}

func (e *Engine) candidatePools(ctx context.Context, query string, maxResults int) (CandidatePools, error) {
	var pools CandidatePools

	permanent, err := e.store.LiveDecisionsByClass(ctx, domain.TTLPermanent)
	if err != nil {
		return pools, err
	}
	stable, err := e.store.LiveDecisionsByClass(ctx, domain.TTLStable)
	if err != nil {
		return pools, err
	}
	active, err := e.store.LiveDecisionsByClass(ctx, domain.TTLActive)
	if err != nil {
		return pools, err
	}
	pools.Permanent = permanent
	pools.Recent = append(stable, active...)

	if len(strings.TrimSpace(query)) < ftsMinPromptLen {
		return pools, nil
	}

	ftsLimit := maxResults
	if ftsLimit <= 0 || ftsLimit > 10 {
		ftsLimit = 10
	}

	keywords := ftsKeywords(query)
	ftsIDs := make(map[string]bool)
	if keywords != "" {
		ids, err := e.store.SearchFTS(ctx, keywords, ftsLimit)
		if err != nil {
			return pools, err
		}
		for _, id := range ids {
			ftsIDs[id] = true
			d, ferr := e.decisionByID(ctx, id)
			if ferr == nil && d != nil {
				pools.FTS = append(pools.FTS, d)
			}
		}
	}

	if e.embed != nil {
		hits, err := e.embed.Search(ctx, query, maxResults, defaultRecallVectorThreshold)
		if err == nil {
			for _, h := range hits {
				if ftsIDs[h.DecisionID] {
					continue
				}
				d, ferr := e.decisionByID(ctx, h.DecisionID)
				if ferr == nil && d != nil {
					pools.Vector = append(pools.Vector, VectorHit{Decision: d, Similarity: h.Similarity})
				}
			}
		}
	}

	return pools, nil
}

// ftsKeywords derives an FTS MATCH query from free text: strip
// punctuation, split on whitespace, keep tokens of at least 3 characters,
// take the first 8, join with " OR ".
func ftsKeywords(text string) string {
	cleaned := recallPunctuation.ReplaceAllString(text, " ")
	fields := strings.Fields(cleaned)
	var keywords []string
	for _, f := range fields {
		if len(f) < ftsKeywordMinLen {
			continue
		}
		keywords = append(keywords, f)
		if len(keywords) >= ftsMaxKeywords {
			break
		}
	}
	return strings.Join(keywords, " OR ")
}

func (e *Engine) decisionByID(ctx context.Context, id string) (*domain.Decision, error) {
	all, err := e.store.AllLiveDecisions(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range all {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}
