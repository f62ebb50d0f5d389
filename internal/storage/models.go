package storage

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"github.com/openclaw/lily/internal/domain"
)

const timeLayout = time.RFC3339

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := parseTime(*s)
	return &t
}

// DecisionModel is the bun row shape for the decisions table.
type DecisionModel struct {
	bun.BaseModel `bun:"table:decisions"`

	ID             string  `bun:"id,pk"`
	SessionID      string  `bun:"session_id"`
	Timestamp      string  `bun:"timestamp"`
	Category       string  `bun:"category"`
	Description    string  `bun:"description"`
	Rationale      string  `bun:"rationale"`
	Classification string  `bun:"classification"`
	Importance     float64 `bun:"importance"`
	TTLClass       string  `bun:"ttl_class"`
	ExpiresAt      *string `bun:"expires_at"`
	LastAccessedAt string  `bun:"last_accessed_at"`
	Entity         string  `bun:"entity"`
	FactKey        string  `bun:"fact_key"`
	FactValue      string  `bun:"fact_value"`
	Tags           string  `bun:"tags"`
}

// NewDecisionModel converts a domain.Decision into its storage row.
func NewDecisionModel(d *domain.Decision) *DecisionModel {
	tags, _ := json.Marshal(d.Tags)
	return &DecisionModel{
		ID:             d.ID,
		SessionID:      d.SessionID,
		Timestamp:      formatTime(d.Timestamp),
		Category:       d.Category,
		Description:    d.Description,
		Rationale:      d.Rationale,
		Classification: d.Classification,
		Importance:     d.Importance,
		TTLClass:       string(d.TTLClass),
		ExpiresAt:      formatTimePtr(d.ExpiresAt),
		LastAccessedAt: formatTime(d.LastAccessedAt),
		Entity:         d.Entity,
		FactKey:        d.FactKey,
		FactValue:      d.FactValue,
		Tags:           string(tags),
	}
}

// ToDomain converts a storage row back into a domain.Decision.
func (m *DecisionModel) ToDomain() *domain.Decision {
	var tags []string
	_ = json.Unmarshal([]byte(m.Tags), &tags)
	return &domain.Decision{
		ID:             m.ID,
		SessionID:      m.SessionID,
		Timestamp:      parseTime(m.Timestamp),
		Category:       m.Category,
		Description:    m.Description,
		Rationale:      m.Rationale,
		Classification: m.Classification,
		Importance:     m.Importance,
		TTLClass:       domain.TTLClass(m.TTLClass),
		ExpiresAt:      parseTimePtr(m.ExpiresAt),
		LastAccessedAt: parseTime(m.LastAccessedAt),
		Entity:         m.Entity,
		FactKey:        m.FactKey,
		FactValue:      m.FactValue,
		Tags:           tags,
	}
}

// VectorModel is the bun row shape for the vectors table.
type VectorModel struct {
	bun.BaseModel `bun:"table:vectors"`

	ID         string `bun:"id,pk"`
	DecisionID string `bun:"decision_id"`
	Content    string `bun:"content"`
	Embedding  string `bun:"embedding"`
	ModelID    string `bun:"model_id"`
	CreatedAt  string `bun:"created_at"`
}

// NewVectorModel converts a domain.Vector into its storage row. The
// embedding is stored as a JSON-encoded float array: a compatibility
// concession, not a compact binary format.
func NewVectorModel(v *domain.Vector) *VectorModel {
	emb, _ := json.Marshal(v.Embedding)
	return &VectorModel{
		ID:         v.ID,
		DecisionID: v.DecisionID,
		Content:    v.Content,
		Embedding:  string(emb),
		ModelID:    v.ModelID,
		CreatedAt:  formatTime(v.CreatedAt),
	}
}

// ToDomain converts a storage row back into a domain.Vector.
func (m *VectorModel) ToDomain() *domain.Vector {
	var emb []float64
	_ = json.Unmarshal([]byte(m.Embedding), &emb)
	return &domain.Vector{
		ID:         m.ID,
		DecisionID: m.DecisionID,
		Content:    m.Content,
		Embedding:  emb,
		ModelID:    m.ModelID,
		CreatedAt:  parseTime(m.CreatedAt),
	}
}

// EntityModel is the bun row shape for the entities table.
type EntityModel struct {
	bun.BaseModel `bun:"table:entities"`

	Name        string `bun:"name,pk"`
	DisplayName string `bun:"display_name"`
	Provenance  string `bun:"provenance"`
	AddedAt     string `bun:"added_at"`
}

func NewEntityModel(e *domain.Entity) *EntityModel {
	return &EntityModel{
		Name:        e.Name,
		DisplayName: e.DisplayName,
		Provenance:  e.Provenance,
		AddedAt:     formatTime(e.AddedAt),
	}
}

func (m *EntityModel) ToDomain() *domain.Entity {
	return &domain.Entity{
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Provenance:  m.Provenance,
		AddedAt:     parseTime(m.AddedAt),
	}
}

// SecurityEventModel is the bun row shape for the security_events table.
type SecurityEventModel struct {
	bun.BaseModel `bun:"table:security_events"`

	ID             string `bun:"id,pk"`
	Timestamp      string `bun:"timestamp"`
	EventType      string `bun:"event_type"`
	SourceRole     string `bun:"source_role"`
	TargetEntity   string `bun:"target_entity"`
	TargetKey      string `bun:"target_key"`
	TargetValue    string `bun:"target_value"`
	MatchedPattern string `bun:"matched_pattern"`
	SourceSnippet  string `bun:"source_snippet"`
}

func NewSecurityEventModel(e *domain.SecurityEvent) *SecurityEventModel {
	return &SecurityEventModel{
		ID:             e.ID,
		Timestamp:      formatTime(e.Timestamp),
		EventType:      e.EventType,
		SourceRole:     e.SourceRole,
		TargetEntity:   e.TargetEntity,
		TargetKey:      e.TargetKey,
		TargetValue:    e.TargetValue,
		MatchedPattern: e.MatchedPattern,
		SourceSnippet:  e.SourceSnippet,
	}
}

func (m *SecurityEventModel) ToDomain() *domain.SecurityEvent {
	return &domain.SecurityEvent{
		ID:             m.ID,
		Timestamp:      parseTime(m.Timestamp),
		EventType:      m.EventType,
		SourceRole:     m.SourceRole,
		TargetEntity:   m.TargetEntity,
		TargetKey:      m.TargetKey,
		TargetValue:    m.TargetValue,
		MatchedPattern: m.MatchedPattern,
		SourceSnippet:  m.SourceSnippet,
	}
}
