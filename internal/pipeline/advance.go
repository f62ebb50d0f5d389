package pipeline

import (
	"context"
	"time"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/graph"
)

// Advance records the outcome of one step's execution, then sweeps the
// graph for newly ready or newly skippable steps and updates the pipeline's
// overall status if it has reached a terminal state.
//
// On failure (success == false) the retry law applies: if the step's
// RetryCount is still below its MaxRetries, the step is reset to pending
// with RetryCount incremented instead of being marked failed; the sweep that
// follows in the same call marks it ready again once its parents allow, so
// the next dispatch pass picks it back up. Only once retries are exhausted
// does the step transition to failed.
//
// A result for a step already in a terminal status (for example cancelled)
// is discarded: the step is left as it is and no sweep runs.
func (e *Engine) Advance(ctx context.Context, pipelineID, stepID string, success bool, output string, resultSummary string, stepErr string) error {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.NewDomainError(domain.ErrCodeNotFound, "pipeline not found", nil)
	}

	steps, err := e.store.StepsByPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	edges, err := e.store.EdgesByPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, st := range steps {
		if st.ID != stepID {
			continue
		}
		if st.Status.IsTerminal() {
			return nil
		}
		if success {
			st.Status = domain.StepComplete
			st.OutputArtifact = TruncateOutput(output)
			st.ResultSummary = resultSummary
			st.Error = ""
			st.UpdatedAt = now
			st.CompletedAt = &now
		} else if st.RetryCount < st.MaxRetries {
			st.RetryCount++
			st.Status = domain.StepPending
			st.Error = stepErr
			st.UpdatedAt = now
			st.StartedAt = nil
			st.CompletedAt = nil
		} else {
			st.Status = domain.StepFailed
			st.OutputArtifact = TruncateOutput(output)
			st.ResultSummary = resultSummary
			st.Error = stepErr
			st.UpdatedAt = now
			st.CompletedAt = &now
		}
		if err := e.store.UpdateStep(ctx, st); err != nil {
			return err
		}
		break
	}

	return e.sweep(ctx, p, steps, edges)
}

// sweep recomputes ready/skip sets from current step state and persists the
// transitions, then finalizes the pipeline if every step is terminal.
func (e *Engine) sweep(ctx context.Context, p *domain.Pipeline, steps []*domain.Step, edges []*domain.Edge) error {
	g := graph.Build(steps, edges)
	now := time.Now().UTC()

	for _, id := range g.ReadySet() {
		st, _ := g.Step(id)
		st.Status = domain.StepReady
		st.UpdatedAt = now
		if err := e.store.UpdateStep(ctx, st); err != nil {
			return err
		}
	}
	for _, id := range g.SkipSet() {
		st, _ := g.Step(id)
		st.Status = domain.StepSkipped
		st.UpdatedAt = now
		if err := e.store.UpdateStep(ctx, st); err != nil {
			return err
		}
	}

	finalStatus := g.CompleteCheck()
	if finalStatus == domain.PipelineRunning {
		return nil
	}
	if p.Status.IsTerminal() {
		return nil
	}

	p.Status = finalStatus
	p.CompletedAt = &now
	p.UpdatedAt = now
	return e.store.UpdatePipeline(ctx, p)
}
