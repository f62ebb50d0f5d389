package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/extraction"
)

const maxToolFactValueLen = 200

// StoreFact is the direct, tool-driven counterpart to the conversational
// Capture path: an explicit (entity, key, value) write at a caller-chosen
// TTL class, still subject to the status-keyword downgrade and to quota
// enforcement (including permanent-tier demote-instead-of-evict).
func (e *Engine) StoreFact(ctx context.Context, entity, key, value string, class domain.TTLClass, importance float64) error {
	if len(value) > maxToolFactValueLen {
		value = value[:maxToolFactValueLen]
	}
	if extraction.IsStatusKeyword(key) {
		class = domain.TTLSession
	}

	existing, err := e.store.FindDecisionByFact(ctx, entity, key)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	if existing != nil {
		existing.FactValue = value
		existing.TTLClass = class
		existing.Importance = importance
		existing.Timestamp = now
		existing.LastAccessedAt = now
		if class != domain.TTLPermanent {
			expiry := now.Add(class.Duration())
			existing.ExpiresAt = &expiry
		} else {
			existing.ExpiresAt = nil
		}
		return e.store.UpsertDecision(ctx, existing)
	}

	if err := e.enforceQuota(ctx, class); err != nil {
		return err
	}

	d := &domain.Decision{
		ID:             uuid.NewString(),
		Timestamp:      now,
		Category:       "fact",
		Importance:     importance,
		TTLClass:       class,
		LastAccessedAt: now,
		Entity:         entity,
		FactKey:        key,
		FactValue:      value,
	}
	if class != domain.TTLPermanent {
		expiry := now.Add(class.Duration())
		d.ExpiresAt = &expiry
	}
	return e.store.UpsertDecision(ctx, d)
}
