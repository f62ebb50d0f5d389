package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openclaw/lily/internal/domain"
)

func TestCloneForTriggerProducesFreshRunningPipeline(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tmpl, err := e.Create(ctx, "digest", "user", "", nil,
		[]StepSpec{
			{Name: "fetch", StepType: domain.StepTask, MaxRetries: 1},
			{Name: "summarize", StepType: domain.StepTask, DependsOnAll: true, MaxRetries: 1},
		},
		[]EdgeSpec{{ParentName: "fetch", ChildName: "summarize"}},
	)
	require.NoError(t, err)

	run, err := e.CloneForTrigger(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NotEqual(t, tmpl.ID, run.ID)
	require.Equal(t, domain.PipelineRunning, run.Status)
	require.Equal(t, "scheduler", run.CreatorTag)
	require.Equal(t, tmpl.Name, run.Name)

	steps, err := e.store.StepsByPipeline(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	for _, st := range steps {
		if st.Name == "fetch" {
			require.Equal(t, domain.StepReady, st.Status)
		} else {
			require.Equal(t, domain.StepPending, st.Status)
		}
	}

	// The template itself must be untouched so the trigger can clone it again.
	reloadedTmpl, err := e.store.GetPipeline(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PipelinePending, reloadedTmpl.Status)

	second, err := e.CloneForTrigger(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NotEqual(t, run.ID, second.ID)
}
