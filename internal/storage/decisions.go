package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openclaw/lily/internal/domain"
)

// UpsertDecision inserts a decision or replaces an existing row with the
// same id.
func (s *Store) UpsertDecision(ctx context.Context, d *domain.Decision) error {
	d.Description = sanitizeValue(d.Description)
	d.Rationale = sanitizeValue(d.Rationale)
	d.FactValue = sanitizeValue(d.FactValue)
	m := NewDecisionModel(d)
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("description = EXCLUDED.description").
		Set("rationale = EXCLUDED.rationale").
		Set("importance = EXCLUDED.importance").
		Set("ttl_class = EXCLUDED.ttl_class").
		Set("expires_at = EXCLUDED.expires_at").
		Set("last_accessed_at = EXCLUDED.last_accessed_at").
		Set("fact_value = EXCLUDED.fact_value").
		Set("tags = EXCLUDED.tags").
		Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "upsert decision failed", err)
	}
	return nil
}

// FindDecisionByFact returns the live (non-expired) decision matching
// (entity, fact_key), if any.
func (s *Store) FindDecisionByFact(ctx context.Context, entity, key string) (*domain.Decision, error) {
	var m DecisionModel
	err := s.db.NewSelect().Model(&m).
		Where("entity = ?", entity).
		Where("fact_key = ?", key).
		Where("expires_at IS NULL OR expires_at > ?", formatTime(nowUTC())).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "find decision by fact failed", err)
	}
	return m.ToDomain(), nil
}

// LiveDecisionsByClass returns every non-expired decision in a TTL class,
// ordered by importance descending.
func (s *Store) LiveDecisionsByClass(ctx context.Context, class domain.TTLClass) ([]*domain.Decision, error) {
	var rows []DecisionModel
	err := s.db.NewSelect().Model(&rows).
		Where("ttl_class = ?", string(class)).
		Where("expires_at IS NULL OR expires_at > ?", formatTime(nowUTC())).
		OrderExpr("importance DESC").
		Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list decisions by class failed", err)
	}
	out := make([]*domain.Decision, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// AllLiveDecisions returns every non-expired decision.
func (s *Store) AllLiveDecisions(ctx context.Context) ([]*domain.Decision, error) {
	var rows []DecisionModel
	err := s.db.NewSelect().Model(&rows).
		Where("expires_at IS NULL OR expires_at > ?", formatTime(nowUTC())).
		Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list live decisions failed", err)
	}
	out := make([]*domain.Decision, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// DeleteDecision removes a decision and (by ON DELETE CASCADE) its vectors.
func (s *Store) DeleteDecision(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().Model((*DecisionModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "delete decision failed", err)
	}
	return nil
}

// TouchLastAccessed bumps last_accessed_at to the given time for a decision.
func (s *Store) TouchLastAccessed(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.NewUpdate().Model((*DecisionModel)(nil)).
		Set("last_accessed_at = ?", formatTime(at)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "touch last accessed failed", err)
	}
	return nil
}

// SearchFTS runs the decisions_fts MATCH query and returns matching
// decision ids in rank order, bounded by limit.
func (s *Store) SearchFTS(ctx context.Context, query string, limit int) ([]string, error) {
	rows, err := s.Query(ctx, `
		SELECT d.id FROM decisions_fts f
		JOIN decisions d ON d.rowid = f.rowid
		WHERE decisions_fts MATCH ?
		AND (d.expires_at IS NULL OR d.expires_at > ?)
		ORDER BY rank
		LIMIT ?`, query, formatTime(nowUTC()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "scan fts result failed", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// UpsertVector inserts or replaces a decision's embedding row.
func (s *Store) UpsertVector(ctx context.Context, v *domain.Vector) error {
	m := NewVectorModel(v)
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "upsert vector failed", err)
	}
	return nil
}

// DecisionsMissingVector returns decision ids that have no vector row for
// the given model.
func (s *Store) DecisionsMissingVector(ctx context.Context, modelID string) ([]string, error) {
	rows, err := s.Query(ctx, `
		SELECT d.id FROM decisions d
		WHERE NOT EXISTS (SELECT 1 FROM vectors v WHERE v.decision_id = d.id AND v.model_id = ?)
		AND (d.expires_at IS NULL OR d.expires_at > ?)`, modelID, formatTime(nowUTC()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "scan missing-vector result failed", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// VectorsByModel returns every vector row for a given embedding model.
func (s *Store) VectorsByModel(ctx context.Context, modelID string) ([]*domain.Vector, error) {
	var rows []VectorModel
	err := s.db.NewSelect().Model(&rows).Where("model_id = ?", modelID).Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list vectors failed", err)
	}
	out := make([]*domain.Vector, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// SweepOrphanedVectors deletes vector rows whose decision no longer exists.
// The FK's ON DELETE CASCADE already prevents new orphans; this sweeps rows
// left over from data created before the constraint was in force.
func (s *Store) SweepOrphanedVectors(ctx context.Context) (int64, error) {
	res, err := s.Exec(ctx, `DELETE FROM vectors WHERE decision_id NOT IN (SELECT id FROM decisions)`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UpsertEntity inserts or replaces an entity registry row.
func (s *Store) UpsertEntity(ctx context.Context, e *domain.Entity) error {
	m := NewEntityModel(e)
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (name) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "upsert entity failed", err)
	}
	return nil
}

// AllEntities returns every registered entity.
func (s *Store) AllEntities(ctx context.Context) ([]*domain.Entity, error) {
	var rows []EntityModel
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list entities failed", err)
	}
	out := make([]*domain.Entity, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// InsertSecurityEvent records a security event row.
func (s *Store) InsertSecurityEvent(ctx context.Context, e *domain.SecurityEvent) error {
	m := NewSecurityEventModel(e)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "insert security event failed", err)
	}
	return nil
}

// RecentSecurityEvents returns the most recent security events, newest
// first, bounded by limit.
func (s *Store) RecentSecurityEvents(ctx context.Context, limit int) ([]*domain.SecurityEvent, error) {
	var rows []SecurityEventModel
	err := s.db.NewSelect().Model(&rows).
		OrderExpr("timestamp DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list recent security events failed", err)
	}
	out := make([]*domain.SecurityEvent, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}
