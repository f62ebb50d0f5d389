package host

import (
	"context"

	"github.com/openclaw/lily/internal/extraction"
	"github.com/openclaw/lily/internal/memory"
)

// pressureSampleInterval is how often (in agent-end invocations) context
// pressure is resampled, per spec §4.9 ("every 10th invocation").
const pressureSampleInterval = 10

// MemoryHost is the default HostEvents implementation: it drives the
// Memory Engine around each agent turn exactly as spec §4.6/§4.9
// describe — recall-with-cooldown-and-pressure-gating before a turn,
// capture-with-periodic-pressure-sampling-and-stuck-detection after one,
// and the two compaction hooks.
type MemoryHost struct {
	mem        *memory.Engine
	baseBudget int
	contextCap int
	maxRecall  int
	maxCapture int

	turns   int
	history *topicHistory

	// lastStuckNudge records whether the most recent AgentEnd call found
	// the conversation circling the same topic signature for
	// stuckStreakThreshold consecutive turns.
	lastStuckNudge bool
}

// NewMemoryHost builds a MemoryHost. topicHistoryPath may be empty, in
// which case stuck-conversation detection still runs but isn't persisted
// across process restarts.
func NewMemoryHost(mem *memory.Engine, baseBudget, contextCap, maxRecall, maxCapture int, topicHistoryPath string) *MemoryHost {
	return &MemoryHost{
		mem:        mem,
		baseBudget: baseBudget,
		contextCap: contextCap,
		maxRecall:  maxRecall,
		maxCapture: maxCapture,
		history:    newTopicHistory(topicHistoryPath),
	}
}

// BeforeAgentStart builds the retrieval payload for prompt, applies the
// pressure scale to the base budget, and suppresses an identical repeat
// via the cooldown ring. An empty return means "don't prepend anything
// this turn" — a suppressed dupe or a pressure scale of zero, not a
// handler error.
func (h *MemoryHost) BeforeAgentStart(ctx context.Context, sessionID, prompt string) (string, error) {
	budget := h.mem.EffectiveBudget(h.baseBudget)
	if budget <= 0 {
		return "", nil
	}

	payload, err := h.mem.Recall(ctx, prompt, h.maxRecall, budget)
	if err != nil {
		return "", err
	}
	if payload.Markdown == "" || payload.Markdown == "<lily-memory></lily-memory>" {
		return "", nil
	}
	if h.mem.CooldownSeen(payload.Markdown) {
		return "", nil
	}
	h.mem.RecordCooldown(payload.Markdown)
	return payload.Markdown, nil
}

// AgentEnd runs capture over the turn's messages, samples context pressure
// every 10th call, and folds the last assistant text into the
// stuck-conversation topic history.
func (h *MemoryHost) AgentEnd(ctx context.Context, sessionID string, messages []memory.Message, usage TurnUsage) (memory.CaptureResult, error) {
	result := h.mem.Capture(ctx, messages, h.maxCapture)

	h.turns++
	if h.turns%pressureSampleInterval == 0 {
		used := usage.ByteEstimate
		if used == 0 {
			used = usage.MessageCount
		}
		h.mem.Pressure(used, h.contextCap)
	}

	h.lastStuckNudge = false
	if text := lastAssistantText(messages); text != "" {
		sig := extraction.TopicSignature(text)
		h.lastStuckNudge = h.history.Record(sessionID, sig)
	}

	return result, nil
}

// StuckNudge reports whether the most recent AgentEnd call detected the
// conversation circling the same topic for stuckStreakThreshold
// consecutive turns.
func (h *MemoryHost) StuckNudge() bool {
	return h.lastStuckNudge
}

// BeforeCompaction touches last-accessed on every permanent row so they
// don't read as stale just because the conversation that surfaced them is
// about to be summarized away.
func (h *MemoryHost) BeforeCompaction(ctx context.Context, sessionID string) error {
	return h.mem.TouchPermanent(ctx)
}

// AfterCompaction clears the injection cooldown ring, resets pressure to
// normal, and clears this session's topic history.
func (h *MemoryHost) AfterCompaction(ctx context.Context, sessionID string) {
	h.mem.ResetCooldown()
	h.mem.ResetPressure()
	h.history.Reset(sessionID)
}

func lastAssistantText(messages []memory.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" {
			return messages[i].Text
		}
	}
	return ""
}
