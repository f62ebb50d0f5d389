// Package pipeline is the Pipeline Engine: creating DAG-shaped pipelines,
// starting them, advancing step state as work completes, and servicing the
// scheduler's tick with skip-sweep and completion detection. Topology
// reasoning is delegated entirely to internal/graph; this package owns the
// store round-trips and step lifecycle transitions.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/graph"
	"github.com/openclaw/lily/internal/storage"
)

const stuckTimeout = 30 * time.Minute

// Engine orchestrates pipeline lifecycle operations against a store.
type Engine struct {
	store *storage.Store
}

// NewEngine builds a pipeline Engine.
func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store}
}

// StepSpec and EdgeSpec describe a pipeline's shape at creation time, before
// ids are assigned.
type StepSpec struct {
	Name           string
	StepType       domain.StepType
	Tier           string
	Executor       string
	PromptTemplate string
	DependsOnAll   bool
	MaxRetries     int
}

type EdgeSpec struct {
	ParentName string
	ChildName  string
	Condition  domain.Condition
}

// Create validates a proposed DAG shape and persists it as a new pending
// pipeline with its steps and edges.
func (e *Engine) Create(ctx context.Context, name string, creatorTag, triggerMsg string, config map[string]any, stepSpecs []StepSpec, edgeSpecs []EdgeSpec) (*domain.Pipeline, error) {
	now := time.Now().UTC()
	pipelineID := uuid.NewString()

	steps := make([]*domain.Step, 0, len(stepSpecs))
	idByName := make(map[string]string, len(stepSpecs))
	for _, spec := range stepSpecs {
		if _, dup := idByName[spec.Name]; dup {
			return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "duplicate step name "+spec.Name, nil)
		}
		id := uuid.NewString()
		idByName[spec.Name] = id
		steps = append(steps, &domain.Step{
			ID:             id,
			PipelineID:     pipelineID,
			Name:           spec.Name,
			StepType:       spec.StepType,
			Status:         domain.StepPending,
			Tier:           spec.Tier,
			Executor:       spec.Executor,
			PromptTemplate: spec.PromptTemplate,
			DependsOnAll:   spec.DependsOnAll,
			MaxRetries:     spec.MaxRetries,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	edges := make([]*domain.Edge, 0, len(edgeSpecs))
	for _, spec := range edgeSpecs {
		parentID, ok := idByName[spec.ParentName]
		if !ok {
			return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "edge references unknown step name "+spec.ParentName, nil)
		}
		childID, ok := idByName[spec.ChildName]
		if !ok {
			return nil, domain.NewDomainError(domain.ErrCodeInvalidInput, "edge references unknown step name "+spec.ChildName, nil)
		}
		edges = append(edges, &domain.Edge{
			PipelineID:   pipelineID,
			ParentStepID: parentID,
			ChildStepID:  childID,
			Condition:    spec.Condition,
		})
	}

	g := graph.Build(steps, edges)
	if ok, errs := g.Validate(graph.DefaultValidateOptions()); !ok {
		return nil, domain.NewDomainError(domain.ErrCodeValidationFailed, "pipeline graph is invalid: "+joinErrs(errs), nil)
	}

	p := &domain.Pipeline{
		ID:         pipelineID,
		Name:       name,
		Status:     domain.PipelinePending,
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatorTag: creatorTag,
		TriggerMsg: triggerMsg,
		Config:     config,
	}

	if err := e.store.InsertPipeline(ctx, p, steps, edges); err != nil {
		return nil, err
	}
	return p, nil
}

func joinErrs(errs []string) string {
	out := ""
	for i, s := range errs {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out
}

// Start transitions a pending pipeline to running and marks its root steps
// ready.
func (e *Engine) Start(ctx context.Context, pipelineID string) error {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.NewDomainError(domain.ErrCodeNotFound, "pipeline not found", nil)
	}
	if p.Status != domain.PipelinePending {
		return domain.NewDomainError(domain.ErrCodeInvalidState, "pipeline is not pending", nil)
	}

	steps, err := e.store.StepsByPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	edges, err := e.store.EdgesByPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	g := graph.Build(steps, edges)

	for _, rootID := range g.Roots() {
		root, _ := g.Step(rootID)
		root.Status = domain.StepReady
		root.UpdatedAt = time.Now().UTC()
		if err := e.store.UpdateStep(ctx, root); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	p.Status = domain.PipelineRunning
	p.StartedAt = &now
	p.UpdatedAt = now
	return e.store.UpdatePipeline(ctx, p)
}

// Status returns a pipeline and its current steps.
func (e *Engine) Status(ctx context.Context, pipelineID string) (*domain.Pipeline, []*domain.Step, error) {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, domain.NewDomainError(domain.ErrCodeNotFound, "pipeline not found", nil)
	}
	steps, err := e.store.StepsByPipeline(ctx, pipelineID)
	if err != nil {
		return nil, nil, err
	}
	return p, steps, nil
}

// Cancel marks a pipeline and all its non-terminal steps cancelled, and
// disables any trigger still targeting it.
func (e *Engine) Cancel(ctx context.Context, pipelineID string) error {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.NewDomainError(domain.ErrCodeNotFound, "pipeline not found", nil)
	}
	if p.Status.IsTerminal() {
		return nil
	}

	steps, err := e.store.StepsByPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, st := range steps {
		if st.Status.IsTerminal() {
			continue
		}
		st.Status = domain.StepCancelled
		st.UpdatedAt = now
		if err := e.store.UpdateStep(ctx, st); err != nil {
			return err
		}
	}

	if err := e.store.DisableTriggersForPipeline(ctx, pipelineID); err != nil {
		return err
	}

	p.Status = domain.PipelineCancelled
	p.UpdatedAt = now
	return e.store.UpdatePipeline(ctx, p)
}

// Schedule attaches a new cron trigger to an existing pipeline template.
func (e *Engine) Schedule(ctx context.Context, pipelineID, cronExpr, timezone string) (*domain.Trigger, error) {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NewDomainError(domain.ErrCodeNotFound, "pipeline not found", nil)
	}

	t := &domain.Trigger{
		ID:         uuid.NewString(),
		PipelineID: pipelineID,
		CronExpr:   cronExpr,
		Timezone:   timezone,
		Enabled:    true,
	}
	if err := e.store.InsertTrigger(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
