package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/openclaw/lily/internal/domain"
)

// InsertPipeline writes a pipeline, its steps, and its edges as one
// transaction, matching the teacher's delete-then-reinsert-children
// atomicity pattern adapted to a fresh-insert-only path.
func (s *Store) InsertPipeline(ctx context.Context, p *domain.Pipeline, steps []*domain.Step, edges []*domain.Edge) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(NewPipelineModel(p)).Exec(ctx); err != nil {
			return err
		}
		for _, st := range steps {
			if _, err := tx.NewInsert().Model(NewStepModel(st)).Exec(ctx); err != nil {
				return err
			}
		}
		for _, e := range edges {
			if _, err := tx.NewInsert().Model(NewEdgeModel(p.ID, e)).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPipeline returns a pipeline by id, or nil if not found.
func (s *Store) GetPipeline(ctx context.Context, id string) (*domain.Pipeline, error) {
	var m PipelineModel
	err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "get pipeline failed", err)
	}
	return m.ToDomain(), nil
}

// GetPipelineByName returns the most recently created pipeline with the
// given name, or nil.
func (s *Store) GetPipelineByName(ctx context.Context, name string) (*domain.Pipeline, error) {
	var m PipelineModel
	err := s.db.NewSelect().Model(&m).Where("name = ?", name).OrderExpr("created_at DESC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "get pipeline by name failed", err)
	}
	return m.ToDomain(), nil
}

// NonTerminalPipelineExists reports whether a non-terminal pipeline with the
// given name exists, used by the scheduler's duplicate-firing guard.
func (s *Store) NonTerminalPipelineExists(ctx context.Context, name string) (bool, error) {
	count, err := s.db.NewSelect().Model((*PipelineModel)(nil)).
		Where("name = ?", name).
		Where("status IN (?)", bun.In([]string{
			string(domain.PipelinePending), string(domain.PipelineRunning), string(domain.PipelinePaused),
		})).
		Count(ctx)
	if err != nil {
		return false, domain.NewDomainError(domain.ErrCodeStoreFailure, "check non-terminal pipeline failed", err)
	}
	return count > 0, nil
}

// RunningPipelines returns every pipeline in the running status (pending
// and paused pipelines are not included), ordered by creation time (the
// Scheduler's processing order).
func (s *Store) RunningPipelines(ctx context.Context) ([]*domain.Pipeline, error) {
	var rows []PipelineModel
	err := s.db.NewSelect().Model(&rows).
		Where("status IN (?)", bun.In([]string{string(domain.PipelineRunning)})).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list running pipelines failed", err)
	}
	out := make([]*domain.Pipeline, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// NonTerminalPipelines returns every pipeline not yet in a terminal status.
func (s *Store) NonTerminalPipelines(ctx context.Context) ([]*domain.Pipeline, error) {
	var rows []PipelineModel
	err := s.db.NewSelect().Model(&rows).
		Where("status IN (?)", bun.In([]string{
			string(domain.PipelinePending), string(domain.PipelineRunning), string(domain.PipelinePaused),
		})).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list non-terminal pipelines failed", err)
	}
	out := make([]*domain.Pipeline, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// UpdatePipeline persists a pipeline's mutable fields (status, timestamps,
// summary, error).
func (s *Store) UpdatePipeline(ctx context.Context, p *domain.Pipeline) error {
	m := NewPipelineModel(p)
	_, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "update pipeline failed", err)
	}
	return nil
}

// StepsByPipeline returns every step belonging to a pipeline.
func (s *Store) StepsByPipeline(ctx context.Context, pipelineID string) ([]*domain.Step, error) {
	var rows []StepModel
	err := s.db.NewSelect().Model(&rows).Where("pipeline_id = ?", pipelineID).Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list steps failed", err)
	}
	out := make([]*domain.Step, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// EdgesByPipeline returns every edge belonging to a pipeline.
func (s *Store) EdgesByPipeline(ctx context.Context, pipelineID string) ([]*domain.Edge, error) {
	var rows []EdgeModel
	err := s.db.NewSelect().Model(&rows).Where("pipeline_id = ?", pipelineID).Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list edges failed", err)
	}
	out := make([]*domain.Edge, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// GetStep returns a step by id, or nil.
func (s *Store) GetStep(ctx context.Context, id string) (*domain.Step, error) {
	var m StepModel
	err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "get step failed", err)
	}
	return m.ToDomain(), nil
}

// UpdateStep persists a step's mutable fields.
func (s *Store) UpdateStep(ctx context.Context, st *domain.Step) error {
	m := NewStepModel(st)
	_, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "update step failed", err)
	}
	return nil
}

// InsertTrigger writes a new trigger row.
func (s *Store) InsertTrigger(ctx context.Context, t *domain.Trigger) error {
	_, err := s.db.NewInsert().Model(NewTriggerModel(t)).Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "insert trigger failed", err)
	}
	return nil
}

// EnabledTriggers returns every trigger with enabled = true.
func (s *Store) EnabledTriggers(ctx context.Context) ([]*domain.Trigger, error) {
	var rows []TriggerModel
	err := s.db.NewSelect().Model(&rows).Where("enabled = ?", true).Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list enabled triggers failed", err)
	}
	out := make([]*domain.Trigger, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// UpdateTrigger persists a trigger's mutable fields (last_fired, next_fire,
// enabled).
func (s *Store) UpdateTrigger(ctx context.Context, t *domain.Trigger) error {
	m := NewTriggerModel(t)
	_, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "update trigger failed", err)
	}
	return nil
}

// TriggersByPipeline returns every trigger targeting a pipeline.
func (s *Store) TriggersByPipeline(ctx context.Context, pipelineID string) ([]*domain.Trigger, error) {
	var rows []TriggerModel
	err := s.db.NewSelect().Model(&rows).Where("pipeline_id = ?", pipelineID).Scan(ctx)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeStoreFailure, "list triggers by pipeline failed", err)
	}
	out := make([]*domain.Trigger, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// DisableTriggersForPipeline disables every trigger targeting a pipeline,
// used when a pipeline is cancelled.
func (s *Store) DisableTriggersForPipeline(ctx context.Context, pipelineID string) error {
	_, err := s.db.NewUpdate().Model((*TriggerModel)(nil)).
		Set("enabled = ?", false).
		Where("pipeline_id = ?", pipelineID).
		Exec(ctx)
	if err != nil {
		return domain.NewDomainError(domain.ErrCodeStoreFailure, "disable triggers failed", err)
	}
	return nil
}
