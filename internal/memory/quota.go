// Package memory is the Memory Engine: capture, consolidation, TTL/quota
// enforcement, retrieval, and budgeted context composition, hardened
// against prompt injection via internal/security.
package memory

import "github.com/openclaw/lily/internal/domain"

// Quota caps per TTL class. Active and stable evict on overflow; permanent
// demotes instead of evicting.
const (
	ActiveQuota    = 50
	StableQuota    = 30
	PermanentQuota = 15
)

func quotaFor(class domain.TTLClass) int {
	switch class {
	case domain.TTLActive:
		return ActiveQuota
	case domain.TTLStable:
		return StableQuota
	case domain.TTLPermanent:
		return PermanentQuota
	default:
		return 0
	}
}
