package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/openclaw/lily/internal/domain"
)

// WorkItem describes one ready step the host's tool variant should dispatch
// itself, rather than the background scheduler dispatching it over HTTP.
type WorkItem struct {
	PipelineID   string
	PipelineName string
	StepID       string
	StepName     string
	StepType     domain.StepType
	Tier         string
	Executor     string
	Prompt       string
	ParentContext string
}

// PausedStep names a step parked in the paused status, awaiting external
// input before it can be resumed.
type PausedStep struct {
	PipelineID   string
	PipelineName string
	StepID       string
	StepName     string
}

// Tick is the synchronous counterpart to the background Scheduler's tick,
// used by the host's tool variant: it never calls out to an inference
// endpoint itself, it only enumerates the work a caller should perform.
// For every running pipeline it returns one WorkItem per ready step (with
// its resolved prompt and parent context already built) plus the list of
// steps currently paused awaiting input.
func (e *Engine) Tick(ctx context.Context) ([]WorkItem, []PausedStep, error) {
	pipelines, err := e.store.RunningPipelines(ctx)
	if err != nil {
		return nil, nil, err
	}

	var items []WorkItem
	var paused []PausedStep

	for _, p := range pipelines {
		steps, err := e.store.StepsByPipeline(ctx, p.ID)
		if err != nil {
			return nil, nil, err
		}

		for _, st := range steps {
			switch st.Status {
			case domain.StepReady:
				parentCtx, perr := e.parentContext(ctx, st)
				if perr != nil {
					return nil, nil, perr
				}
				prompt, perr := e.ResolvedPrompt(ctx, st)
				if perr != nil {
					return nil, nil, perr
				}
				items = append(items, WorkItem{
					PipelineID:    p.ID,
					PipelineName:  p.Name,
					StepID:        st.ID,
					StepName:      st.Name,
					StepType:      st.StepType,
					Tier:          st.Tier,
					Executor:      st.Executor,
					Prompt:        prompt,
					ParentContext: parentCtx,
				})
			case domain.StepPaused:
				paused = append(paused, PausedStep{
					PipelineID:   p.ID,
					PipelineName: p.Name,
					StepID:       st.ID,
					StepName:     st.Name,
				})
			}
		}
	}

	return items, paused, nil
}

// parentContext builds the same completed-parent artifact block
// ResolvedPrompt substitutes into a step's prompt, except each parent's
// snippet is capped independently at 500 chars, so a wide fan-in can't
// dominate the block
// the host renders alongside the prompt.
func (e *Engine) parentContext(ctx context.Context, step *domain.Step) (string, error) {
	edges, err := e.store.EdgesByPipeline(ctx, step.PipelineID)
	if err != nil {
		return "", err
	}

	var blocks []string
	for _, edge := range edges {
		if edge.ChildStepID != step.ID {
			continue
		}
		parent, err := e.store.GetStep(ctx, edge.ParentStepID)
		if err != nil {
			return "", err
		}
		if parent == nil || parent.Status != domain.StepComplete {
			continue
		}
		artifact := parent.ResultSummary
		if artifact == "" {
			artifact = parent.OutputArtifact
		}
		blocks = append(blocks, fmt.Sprintf("[%s]: %s", parent.Name, TruncateParentSnippet(artifact)))
	}

	return strings.Join(blocks, "\n\n"), nil
}
