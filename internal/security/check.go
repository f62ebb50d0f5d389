package security

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/lily/internal/domain"
)

// EventRecorder persists a security event. internal/storage.Store satisfies
// this; the interface exists so this package never imports storage.
type EventRecorder interface {
	InsertSecurityEvent(ctx context.Context, e *domain.SecurityEvent) error
}

const snippetCap = 200

// Checker enforces protected-entity and injection-pattern rules on
// candidate facts originating from untrusted sources, and tracks a
// per-turn blocked-fact counter.
type Checker struct {
	protected map[string]bool
	recorder  EventRecorder
	blocked   int
}

// NewChecker builds a Checker with the given protected entity base names.
func NewChecker(protectedEntities []string, recorder EventRecorder) *Checker {
	c := &Checker{protected: make(map[string]bool, len(protectedEntities)), recorder: recorder}
	for _, e := range protectedEntities {
		c.protected[strings.ToLower(e)] = true
	}
	return c
}

// ResetTurn clears the per-turn blocked counter. Called by the host adapter
// at the start of each agent turn.
func (c *Checker) ResetTurn() {
	c.blocked = 0
}

// Blocked returns the number of facts blocked so far this turn.
func (c *Checker) Blocked() int {
	return c.blocked
}

// entityBase returns the lowercased portion of an entity name before any
// dot, matching the extraction package's "base" notion.
func entityBase(entity string) string {
	if i := strings.IndexByte(entity, '.'); i >= 0 {
		entity = entity[:i]
	}
	return strings.ToLower(entity)
}

// Check applies the security rules to a candidate fact. sourceRole is
// "user" or "assistant"; rawSnippet is the source text, recorded (capped at
// 200 bytes) with any security event. The check only runs when the
// candidate originates from a user role or from untrusted content,
// matching the spec's trigger condition; callers should skip calling
// Check entirely otherwise (assistant-authored, non-untrusted content is
// implicitly allowed).
func (c *Checker) Check(ctx context.Context, sourceRole, entity, key, value, rawSnippet string) (allowed bool, reason string, pattern string) {
	if c.protected[entityBase(entity)] {
		c.record(ctx, sourceRole, entity, key, value, "protected_entity", "", rawSnippet)
		c.blocked++
		return false, "protected_entity", ""
	}

	if name, ok := MatchInjectionPattern(value); ok {
		c.record(ctx, sourceRole, entity, key, value, "injection_pattern", name, rawSnippet)
		c.blocked++
		return false, "injection_pattern", name
	}

	if name, ok := MatchInjectionPattern(key); ok {
		c.record(ctx, sourceRole, entity, key, value, "injection_pattern_key", name, rawSnippet)
		c.blocked++
		return false, "injection_pattern_key", name
	}

	return true, "", ""
}

func (c *Checker) record(ctx context.Context, sourceRole, entity, key, value, eventType, pattern, rawSnippet string) {
	if c.recorder == nil {
		return
	}
	snippet := rawSnippet
	if len(snippet) > snippetCap {
		snippet = snippet[:snippetCap]
	}
	_ = c.recorder.InsertSecurityEvent(ctx, &domain.SecurityEvent{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		EventType:      eventType,
		SourceRole:     sourceRole,
		TargetEntity:   entity,
		TargetKey:      key,
		TargetValue:    value,
		MatchedPattern: pattern,
		SourceSnippet:  snippet,
	})
}
