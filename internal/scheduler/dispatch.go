package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/openclaw/lily/internal/domain"
)

// Dispatcher executes one ready step's resolved prompt against whichever
// model tier its Tier field names, returning the step's raw output. prompt
// is the already-substituted text (see pipeline.Engine.ResolvedPrompt),
// not the raw PromptTemplate.
type Dispatcher interface {
	Dispatch(ctx context.Context, step *domain.Step, prompt string) (output string, err error)
}

// TierRouter picks a concrete dispatcher by step tier: local tiers
// ("deepseek", "qwen", or any tier prefixed "local-") route to a locally
// hosted model runner, "gemini-flash" and any tier prefixed "gemini" route
// to the remote API, and anything else falls back to the default
// dispatcher.
type TierRouter struct {
	Local    Dispatcher
	Remote   Dispatcher
	Fallback Dispatcher
}

func (r *TierRouter) Dispatch(ctx context.Context, step *domain.Step, prompt string) (string, error) {
	switch {
	case isLocalTier(step.Tier):
		if r.Local != nil {
			return r.Local.Dispatch(ctx, step, prompt)
		}
	case isRemoteTier(step.Tier):
		if r.Remote != nil {
			return r.Remote.Dispatch(ctx, step, prompt)
		}
	}
	if r.Fallback != nil {
		return r.Fallback.Dispatch(ctx, step, prompt)
	}
	return "", domain.NewDomainError(domain.ErrCodeInvalidState, "no dispatcher configured for tier "+step.Tier, nil)
}

func isLocalTier(tier string) bool {
	tier = strings.ToLower(tier)
	return tier == "deepseek" || tier == "qwen" || strings.HasPrefix(tier, "local-")
}

func isRemoteTier(tier string) bool {
	tier = strings.ToLower(tier)
	return strings.HasPrefix(tier, "gemini")
}

// Tick runs one complete background pass, matching the five-step order:
// fire due triggers, let dispatch pick up whatever they produced, detect
// stuck steps, dispatch ready steps, and run memory maintenance. It is the
// single entry point called once per invocation by the scheduler binary.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.fireDueTriggers(ctx, time.Now().UTC())

	if _, err := s.pipeline.DetectStuck(ctx); err != nil {
		return err
	}

	pipelines, err := s.store.RunningPipelines(ctx)
	if err != nil {
		return err
	}
	for _, p := range pipelines {
		if err := s.dispatchPipeline(ctx, p.ID); err != nil {
			s.log.Error().Str("pipeline_id", p.ID).Err(err).Msg("dispatch failed")
		}
	}

	if s.memory != nil {
		if _, err := s.memory.Tick(ctx, 0); err != nil {
			s.log.Error().Err(err).Msg("memory maintenance tick failed")
		}
	}

	return nil
}

func (s *Scheduler) dispatchPipeline(ctx context.Context, pipelineID string) error {
	ready, err := s.pipeline.ReadySteps(ctx, pipelineID)
	if err != nil {
		return err
	}

	for _, step := range ready {
		if err := s.pipeline.MarkRunning(ctx, step.ID); err != nil {
			s.log.Error().Str("step_id", step.ID).Err(err).Msg("failed to mark step running")
			continue
		}
		if s.dispatch == nil {
			continue
		}

		prompt, perr := s.pipeline.ResolvedPrompt(ctx, step)
		if perr != nil {
			s.log.Error().Str("step_id", step.ID).Err(perr).Msg("failed to resolve prompt")
			continue
		}

		output, derr := s.dispatch.Dispatch(ctx, step, prompt)
		if derr != nil {
			_ = s.pipeline.Advance(ctx, pipelineID, step.ID, false, "", "", derr.Error())
			continue
		}
		_ = s.pipeline.Advance(ctx, pipelineID, step.ID, true, output, "", "")
	}

	return nil
}
