package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/embeddings"
	"github.com/openclaw/lily/internal/extraction"
	"github.com/openclaw/lily/internal/security"
	"github.com/openclaw/lily/internal/storage"
)

const (
	minBlockLen   = 30
	maxBlockLen   = 5000
	sentinelMem   = "<lily-memory>"
	sentinelRel   = "<relevant-memories>"
	trustedMarker = "<trusted-capture>"
)

// CapturePolicy governs which role-tagged blocks are eligible for capture.
type CapturePolicy string

const (
	CaptureAll           CapturePolicy = "all"
	CaptureAssistantOnly CapturePolicy = "assistant-only"
	CaptureTaggedOnly    CapturePolicy = "tagged-only"
)

// Message is one role-tagged text block from the conversation stream.
type Message struct {
	Role string // "user" or "assistant"
	Text string
}

// CaptureResult summarizes the outcome of one Capture call.
type CaptureResult struct {
	Stored  int
	Updated int
	Blocked int
}

// Engine ties the store, entity registry, security checker, and embedding
// service together to implement the four Memory Engine behaviors.
type Engine struct {
	store    *storage.Store
	registry *extraction.Registry
	checker  *security.Checker
	embed    *embeddings.Service
	policy   CapturePolicy

	cooldown *cooldownRing
	pressure *pressureState
}

// NewEngine builds a memory Engine. embed may be nil, in which case
// recall falls back to full-text search only.
func NewEngine(store *storage.Store, registry *extraction.Registry, checker *security.Checker, embed *embeddings.Service, policy CapturePolicy) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		checker:  checker,
		embed:    embed,
		policy:   policy,
		cooldown: newCooldownRing(3),
		pressure: newPressureState(),
	}
}

// Capture flattens role-tagged text blocks from messages, extracts
// candidate facts, and applies security, dedup, TTL/importance derivation,
// and quota enforcement, capped at N facts per call.
func (e *Engine) Capture(ctx context.Context, messages []Message, n int) CaptureResult {
	var result CaptureResult
	stored := 0

	for _, msg := range messages {
		if stored >= n {
			break
		}
		text := msg.Text
		if len(text) < minBlockLen || len(text) > maxBlockLen {
			continue
		}
		if strings.Contains(text, sentinelMem) || strings.Contains(text, sentinelRel) {
			continue
		}
		if !e.policyAllows(msg.Role, text) {
			continue
		}

		candidates := extraction.Extract(e.registry, text)
		for _, c := range candidates {
			if stored >= n {
				break
			}

			untrusted := security.IsUntrustedContent(text)
			if msg.Role == "user" || untrusted {
				allowed, _, _ := e.checker.Check(ctx, msg.Role, c.Entity, c.Key, c.Value, text)
				if !allowed {
					result.Blocked++
					continue
				}
			}

			updated, err := e.upsertFact(ctx, msg.Role, c)
			if err != nil {
				continue
			}
			if updated {
				result.Updated++
			} else {
				result.Stored++
				stored++
			}
		}
	}

	return result
}

func (e *Engine) policyAllows(role, text string) bool {
	switch e.policy {
	case CaptureAssistantOnly:
		return role == "assistant"
	case CaptureTaggedOnly:
		return strings.Contains(text, trustedMarker)
	default:
		return true
	}
}

// upsertFact updates a live (entity, key) row in place, or inserts a new
// one with derived TTL and importance, enforcing quota first.
func (e *Engine) upsertFact(ctx context.Context, role string, c extraction.Candidate) (updated bool, err error) {
	existing, err := e.store.FindDecisionByFact(ctx, c.Entity, c.Key)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()

	if existing != nil {
		existing.FactValue = c.Value
		existing.Timestamp = now
		existing.LastAccessedAt = now
		return true, e.store.UpsertDecision(ctx, existing)
	}

	class := domain.TTLActive
	importance := 0.5
	if role == "assistant" {
		importance = 0.6
	}
	if extraction.IsStatusKeyword(c.Key) {
		class = domain.TTLSession
	}

	if err := e.enforceQuota(ctx, class); err != nil {
		return false, err
	}

	expiry := now.Add(class.Duration())
	d := &domain.Decision{
		ID:             uuid.NewString(),
		SessionID:      "",
		Timestamp:      now,
		Category:       "fact",
		Classification: "",
		Importance:     importance,
		TTLClass:       class,
		LastAccessedAt: now,
		Entity:         c.Entity,
		FactKey:        c.Key,
		FactValue:      c.Value,
	}
	if class != domain.TTLPermanent {
		d.ExpiresAt = &expiry
	}
	return false, e.store.UpsertDecision(ctx, d)
}

// enforceQuota evicts or demotes to make room for one new row in class,
// per spec's before-insert quota rule.
func (e *Engine) enforceQuota(ctx context.Context, class domain.TTLClass) error {
	limit := quotaFor(class)
	if limit == 0 {
		return nil
	}
	rows, err := e.store.LiveDecisionsByClass(ctx, class)
	if err != nil {
		return err
	}
	if len(rows) < limit {
		return nil
	}

	if class == domain.TTLPermanent {
		return e.demoteOldestPermanent(ctx, rows)
	}

	victim := lowestImportanceThenOldest(rows)
	if victim == nil {
		return nil
	}
	return e.store.DeleteDecision(ctx, victim.ID)
}

// demoteOldestPermanent moves the oldest permanent row to stable with a
// fresh 90-day expiry instead of evicting it.
func (e *Engine) demoteOldestPermanent(ctx context.Context, rows []*domain.Decision) error {
	if len(rows) == 0 {
		return nil
	}
	oldest := rows[0]
	for _, r := range rows[1:] {
		if r.Timestamp.Before(oldest.Timestamp) {
			oldest = r
		}
	}
	oldest.TTLClass = domain.TTLStable
	expiry := time.Now().UTC().Add(domain.TTLStable.Duration())
	oldest.ExpiresAt = &expiry
	return e.store.UpsertDecision(ctx, oldest)
}

func lowestImportanceThenOldest(rows []*domain.Decision) *domain.Decision {
	if len(rows) == 0 {
		return nil
	}
	victim := rows[0]
	for _, r := range rows[1:] {
		if r.Importance < victim.Importance ||
			(r.Importance == victim.Importance && r.Timestamp.Before(victim.Timestamp)) {
			victim = r
		}
	}
	return victim
}
