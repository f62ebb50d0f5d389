package pipeline

import (
	"context"
	"time"

	"github.com/openclaw/lily/internal/domain"
)

// stuckError is the exact dispatch-failure message recorded against a step
// that timed out while running, treated as an ordinary failure so it is
// still subject to the retry law in Advance.
const stuckError = "Step timed out (running > 30 minutes)"

// DetectStuck treats any step that has been running for longer than
// stuckTimeout without completing as a dispatch failure, across every
// non-terminal pipeline, and routes it through Advance so the retry law and
// graph sweep both apply exactly as they do for an ordinary dispatch error.
func (e *Engine) DetectStuck(ctx context.Context) (stuck int, err error) {
	pipelines, err := e.store.NonTerminalPipelines(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for _, p := range pipelines {
		steps, ferr := e.store.StepsByPipeline(ctx, p.ID)
		if ferr != nil {
			return stuck, ferr
		}

		for _, st := range steps {
			if st.Status != domain.StepRunning || st.StartedAt == nil {
				continue
			}
			if now.Sub(*st.StartedAt) < stuckTimeout {
				continue
			}
			if aerr := e.Advance(ctx, p.ID, st.ID, false, "", "", stuckError); aerr != nil {
				return stuck, aerr
			}
			stuck++
		}
	}

	return stuck, nil
}
