package memory

import (
	"context"
	"sort"

	"github.com/openclaw/lily/internal/domain"
)

const consolidationBonus = 0.05
const maxImportance = 0.95

// Consolidate groups live decisions by (entity, fact_key), keeps the most
// recently accessed row in each group, nudges its importance up, and
// deletes the rest. Vectors are cleaned up by the decisions table's
// ON DELETE CASCADE; SweepOrphanedVectors catches any left behind by older
// data.
func (e *Engine) Consolidate(ctx context.Context) (merged int, err error) {
	rows, err := e.store.AllLiveDecisions(ctx)
	if err != nil {
		return 0, err
	}

	groups := make(map[[2]string][]*domain.Decision)
	for _, d := range rows {
		if d.Entity == "" || d.FactKey == "" {
			continue
		}
		key := [2]string{d.Entity, d.FactKey}
		groups[key] = append(groups[key], d)
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].LastAccessedAt.After(group[j].LastAccessedAt)
		})
		keep := group[0]
		keep.Importance += consolidationBonus
		if keep.Importance > maxImportance {
			keep.Importance = maxImportance
		}
		if err := e.store.UpsertDecision(ctx, keep); err != nil {
			return merged, err
		}
		for _, dup := range group[1:] {
			if err := e.store.DeleteDecision(ctx, dup.ID); err != nil {
				return merged, err
			}
			merged++
		}
	}

	if _, err := e.store.SweepOrphanedVectors(ctx); err != nil {
		return merged, err
	}
	return merged, nil
}
