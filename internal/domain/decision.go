package domain

import "time"

// TTLClass governs a decision's absolute expiry.
type TTLClass string

const (
	TTLPermanent TTLClass = "permanent"
	TTLStable    TTLClass = "stable"
	TTLActive    TTLClass = "active"
	TTLSession   TTLClass = "session"
)

// Duration returns the class's absolute lifetime from creation. Permanent
// has no expiry; callers must check TTLClass == TTLPermanent before using
// this, since a zero Duration would otherwise read as "already expired."
func (c TTLClass) Duration() time.Duration {
	switch c {
	case TTLStable:
		return 90 * 24 * time.Hour
	case TTLActive:
		return 14 * 24 * time.Hour
	case TTLSession:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Decision is a single memory row: either a free-form description or an
// (entity, key, value) fact.
type Decision struct {
	ID             string
	SessionID      string
	Timestamp      time.Time
	Category       string
	Description    string
	Rationale      string
	Classification string
	Importance     float64
	TTLClass       TTLClass
	ExpiresAt      *time.Time
	LastAccessedAt time.Time
	Entity         string
	FactKey        string
	FactValue      string
	Tags           []string
}

// HasFact reports whether this decision carries an (entity, key, value) triple.
func (d *Decision) HasFact() bool {
	return d.Entity != "" && d.FactKey != ""
}

// Vector is a sidecar embedding row referencing a decision.
type Vector struct {
	ID         string
	DecisionID string
	Content    string
	Embedding  []float64
	ModelID    string
	CreatedAt  time.Time
}

// Entity is a runtime-registered fact subject.
type Entity struct {
	Name        string // case-folded key
	DisplayName string
	Provenance  string
	AddedAt     time.Time
}

// SecurityEvent records a blocked or flagged write attempt.
type SecurityEvent struct {
	ID             string
	Timestamp      time.Time
	EventType      string
	SourceRole     string
	TargetEntity   string
	TargetKey      string
	TargetValue    string
	MatchedPattern string
	SourceSnippet  string // capped at 200 chars
}
