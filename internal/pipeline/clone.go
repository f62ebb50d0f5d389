package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/graph"
)

// CloneForTrigger clones a template pipeline's steps and edges under fresh
// ids into a brand new pipeline, marked running with its root steps already
// ready, creator tag "scheduler". Unlike Start, it never touches the
// template itself, so a recurring trigger can fire the same template
// repeatedly instead of being limited to a single run.
func (e *Engine) CloneForTrigger(ctx context.Context, templateID string) (*domain.Pipeline, error) {
	tmpl, err := e.store.GetPipeline(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, domain.NewDomainError(domain.ErrCodeNotFound, "pipeline not found", nil)
	}

	tmplSteps, err := e.store.StepsByPipeline(ctx, templateID)
	if err != nil {
		return nil, err
	}
	tmplEdges, err := e.store.EdgesByPipeline(ctx, templateID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pipelineID := uuid.NewString()

	idByOld := make(map[string]string, len(tmplSteps))
	steps := make([]*domain.Step, 0, len(tmplSteps))
	for _, src := range tmplSteps {
		id := uuid.NewString()
		idByOld[src.ID] = id
		steps = append(steps, &domain.Step{
			ID:             id,
			PipelineID:     pipelineID,
			Name:           src.Name,
			StepType:       src.StepType,
			Status:         domain.StepPending,
			Tier:           src.Tier,
			Executor:       src.Executor,
			PromptTemplate: src.PromptTemplate,
			DependsOnAll:   src.DependsOnAll,
			MaxRetries:     src.MaxRetries,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	edges := make([]*domain.Edge, 0, len(tmplEdges))
	for _, src := range tmplEdges {
		edges = append(edges, &domain.Edge{
			PipelineID:   pipelineID,
			ParentStepID: idByOld[src.ParentStepID],
			ChildStepID:  idByOld[src.ChildStepID],
			Condition:    src.Condition,
		})
	}

	g := graph.Build(steps, edges)
	for _, rootID := range g.Roots() {
		root, _ := g.Step(rootID)
		root.Status = domain.StepReady
	}

	p := &domain.Pipeline{
		ID:         pipelineID,
		Name:       tmpl.Name,
		Status:     domain.PipelineRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
		StartedAt:  &now,
		CreatorTag: "scheduler",
		TriggerMsg: tmpl.TriggerMsg,
		Config:     tmpl.Config,
	}

	if err := e.store.InsertPipeline(ctx, p, steps, edges); err != nil {
		return nil, err
	}
	return p, nil
}
