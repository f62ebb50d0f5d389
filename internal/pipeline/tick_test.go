package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/lily/internal/domain"
)

func TestTickReturnsWorkItemForReadyStepWithResolvedPrompt(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	parent := &domain.Step{ID: uuid.NewString(), PipelineID: "p1", Name: "fetch", Status: domain.StepComplete, ResultSummary: "42 rows"}
	child := &domain.Step{ID: uuid.NewString(), PipelineID: "p1", Name: "summarize", Status: domain.StepReady, Tier: "deepseek", PromptTemplate: "Summarize: {{prev_result}}"}
	pipelineRow := &domain.Pipeline{ID: "p1", Name: "test-pipeline", Status: domain.PipelineRunning}
	edges := []*domain.Edge{{PipelineID: "p1", ParentStepID: parent.ID, ChildStepID: child.ID}}
	require.NoError(t, e.store.InsertPipeline(ctx, pipelineRow, []*domain.Step{parent, child}, edges))

	items, paused, err := e.Tick(ctx)
	require.NoError(t, err)
	require.Empty(t, paused)
	require.Len(t, items, 1)

	item := items[0]
	require.Equal(t, "p1", item.PipelineID)
	require.Equal(t, "test-pipeline", item.PipelineName)
	require.Equal(t, child.ID, item.StepID)
	require.Equal(t, "summarize", item.StepName)
	require.Equal(t, "deepseek", item.Tier)
	require.Contains(t, item.Prompt, "42 rows")
	require.Contains(t, item.ParentContext, "[fetch]: 42 rows")
}

func TestTickCollectsPausedSteps(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	step := &domain.Step{ID: uuid.NewString(), PipelineID: "p1", Name: "await-input", Status: domain.StepPaused}
	pipelineRow := &domain.Pipeline{ID: "p1", Name: "paused-pipeline", Status: domain.PipelineRunning}
	require.NoError(t, e.store.InsertPipeline(ctx, pipelineRow, []*domain.Step{step}, nil))

	items, paused, err := e.Tick(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
	require.Len(t, paused, 1)
	require.Equal(t, "await-input", paused[0].StepName)
}

func TestTickIgnoresNonTerminalPipelinesWithNoReadyOrPausedSteps(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	step := &domain.Step{ID: uuid.NewString(), PipelineID: "p1", Name: "fetch", Status: domain.StepRunning}
	pipelineRow := &domain.Pipeline{ID: "p1", Name: "in-flight", Status: domain.PipelineRunning}
	require.NoError(t, e.store.InsertPipeline(ctx, pipelineRow, []*domain.Step{step}, nil))

	items, paused, err := e.Tick(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
	require.Empty(t, paused)
}

func TestParentContextTruncatesEachParentIndependently(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	parent := &domain.Step{ID: uuid.NewString(), PipelineID: "p1", Name: "fetch", Status: domain.StepComplete, OutputArtifact: string(long)}
	child := &domain.Step{ID: uuid.NewString(), PipelineID: "p1", Name: "summarize", Status: domain.StepReady}
	pipelineRow := &domain.Pipeline{ID: "p1", Name: "test-pipeline", Status: domain.PipelineRunning}
	edges := []*domain.Edge{{PipelineID: "p1", ParentStepID: parent.ID, ChildStepID: child.ID}}
	require.NoError(t, e.store.InsertPipeline(ctx, pipelineRow, []*domain.Step{parent, child}, edges))

	got, err := e.parentContext(ctx, child)
	require.NoError(t, err)
	require.Less(t, len(got), 1000)
	require.Contains(t, got, "[truncated]")
}
