package memory

import (
	"context"
	"time"

	"github.com/openclaw/lily/internal/domain"
)

// TouchPermanent bumps last-accessed on every live permanent-tier decision,
// called before a compaction event so permanent facts don't look stale
// just because the conversation that surfaced them is about to be
// summarized away.
func (e *Engine) TouchPermanent(ctx context.Context) error {
	rows, err := e.store.LiveDecisionsByClass(ctx, domain.TTLPermanent)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, d := range rows {
		if err := e.store.TouchLastAccessed(ctx, d.ID, now); err != nil {
			return err
		}
	}
	return nil
}
