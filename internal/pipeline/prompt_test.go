package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/storage"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".openclaw", "memory")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	store, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = storage.CloseAll() })
	return NewEngine(store)
}

func TestResolvedPromptSubstitutesPlaceholder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	parent := &domain.Step{ID: uuid.NewString(), PipelineID: "p1", Name: "fetch", Status: domain.StepComplete, ResultSummary: "42 rows"}
	child := &domain.Step{ID: uuid.NewString(), PipelineID: "p1", Name: "summarize", Status: domain.StepReady, PromptTemplate: "Summarize: {{prev_result}}"}
	pipelineRow := &domain.Pipeline{ID: "p1", Name: "test-pipeline", Status: domain.PipelineRunning}
	edges := []*domain.Edge{{PipelineID: "p1", ParentStepID: parent.ID, ChildStepID: child.ID}}

	require.NoError(t, e.store.InsertPipeline(ctx, pipelineRow, []*domain.Step{parent, child}, edges))

	prompt, err := e.ResolvedPrompt(ctx, child)
	require.NoError(t, err)
	require.Contains(t, prompt, "[fetch]: 42 rows")
	require.NotContains(t, prompt, "{{prev_result}}")
}

func TestResolvedPromptPrependsPreambleWhenNoPlaceholder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	parent := &domain.Step{ID: uuid.NewString(), PipelineID: "p2", Name: "fetch", Status: domain.StepComplete, OutputArtifact: "raw output"}
	child := &domain.Step{ID: uuid.NewString(), PipelineID: "p2", Name: "summarize", Status: domain.StepReady, PromptTemplate: "Write a summary."}
	pipelineRow := &domain.Pipeline{ID: "p2", Name: "test-pipeline-2", Status: domain.PipelineRunning}
	edges := []*domain.Edge{{PipelineID: "p2", ParentStepID: parent.ID, ChildStepID: child.ID}}

	require.NoError(t, e.store.InsertPipeline(ctx, pipelineRow, []*domain.Step{parent, child}, edges))

	prompt, err := e.ResolvedPrompt(ctx, child)
	require.NoError(t, err)
	require.Contains(t, prompt, "Previous step outputs:")
	require.Contains(t, prompt, "raw output")
	require.Contains(t, prompt, "Write a summary.")
}

func TestResolvedPromptSkipsIncompleteParents(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	parent := &domain.Step{ID: uuid.NewString(), PipelineID: "p3", Name: "fetch", Status: domain.StepRunning}
	child := &domain.Step{ID: uuid.NewString(), PipelineID: "p3", Name: "summarize", Status: domain.StepPending, PromptTemplate: "Go: {{parent_outputs}}"}
	pipelineRow := &domain.Pipeline{ID: "p3", Name: "test-pipeline-3", Status: domain.PipelineRunning}
	edges := []*domain.Edge{{PipelineID: "p3", ParentStepID: parent.ID, ChildStepID: child.ID}}

	require.NoError(t, e.store.InsertPipeline(ctx, pipelineRow, []*domain.Step{parent, child}, edges))

	prompt, err := e.ResolvedPrompt(ctx, child)
	require.NoError(t, err)
	require.Equal(t, "Go: ", prompt)
}
