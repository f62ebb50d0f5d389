package pipeline

import (
	"context"
	"time"

	"github.com/openclaw/lily/internal/domain"
)

// ReadySteps returns every step in ready status for a pipeline, the set the
// scheduler hands off to a tier-specific dispatcher each tick.
func (e *Engine) ReadySteps(ctx context.Context, pipelineID string) ([]*domain.Step, error) {
	steps, err := e.store.StepsByPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	var ready []*domain.Step
	for _, st := range steps {
		if st.Status == domain.StepReady {
			ready = append(ready, st)
		}
	}
	return ready, nil
}

// MarkRunning transitions a ready step to running just before it is handed
// to a dispatcher, recording the start time used by stuck detection.
func (e *Engine) MarkRunning(ctx context.Context, stepID string) error {
	st, err := e.store.GetStep(ctx, stepID)
	if err != nil {
		return err
	}
	if st == nil {
		return domain.NewDomainError(domain.ErrCodeNotFound, "step not found", nil)
	}
	now := time.Now().UTC()
	st.Status = domain.StepRunning
	st.StartedAt = &now
	st.UpdatedAt = now
	return e.store.UpdateStep(ctx, st)
}
