package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openclaw/lily/internal/domain"
)

type recordingDispatcher struct {
	name string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, step *domain.Step, prompt string) (string, error) {
	return d.name, nil
}

func TestTierRouterRoutesLocalTiers(t *testing.T) {
	r := &TierRouter{
		Local:    &recordingDispatcher{name: "local"},
		Remote:   &recordingDispatcher{name: "remote"},
		Fallback: &recordingDispatcher{name: "fallback"},
	}

	for _, tier := range []string{"deepseek", "qwen", "local-llama"} {
		out, err := r.Dispatch(context.Background(), &domain.Step{Tier: tier}, "prompt")
		assert.NoError(t, err)
		assert.Equal(t, "local", out)
	}
}

func TestTierRouterRoutesRemoteTiers(t *testing.T) {
	r := &TierRouter{
		Local:    &recordingDispatcher{name: "local"},
		Remote:   &recordingDispatcher{name: "remote"},
		Fallback: &recordingDispatcher{name: "fallback"},
	}

	out, err := r.Dispatch(context.Background(), &domain.Step{Tier: "gemini-flash"}, "prompt")
	assert.NoError(t, err)
	assert.Equal(t, "remote", out)
}

func TestTierRouterFallsBackForUnknownTier(t *testing.T) {
	r := &TierRouter{Fallback: &recordingDispatcher{name: "fallback"}}
	out, err := r.Dispatch(context.Background(), &domain.Step{Tier: "mystery"}, "prompt")
	assert.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestTierRouterErrorsWithNoDispatcherAvailable(t *testing.T) {
	r := &TierRouter{}
	_, err := r.Dispatch(context.Background(), &domain.Step{Tier: "mystery"}, "prompt")
	assert.Error(t, err)
}
