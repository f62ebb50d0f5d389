package host

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/lily/internal/memory"
)

func TestRegisterAndCallTool(t *testing.T) {
	a := NewAdapter(nil)
	a.RegisterTool("echo", func(ctx context.Context, args map[string]any) (string, error) {
		return args["text"].(string), nil
	})

	out, err := a.CallTool(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestCallToolUnknownName(t *testing.T) {
	a := NewAdapter(nil)
	_, err := a.CallTool(context.Background(), "missing", nil)
	assert.Error(t, err)
}

func TestCallToolTruncatesOversizedOutput(t *testing.T) {
	a := NewAdapter(nil)
	big := strings.Repeat("x", maxToolOutputLen+500)
	a.RegisterTool("big", func(ctx context.Context, args map[string]any) (string, error) {
		return big, nil
	})

	out, err := a.CallTool(context.Background(), "big", nil)
	require.NoError(t, err)
	assert.Equal(t, maxToolOutputLen, len(out))
	assert.True(t, strings.HasSuffix(out, toolTruncationSuffix))
}

func TestEventsAreOptional(t *testing.T) {
	a := NewAdapter(nil)

	out, err := a.BeforeAgentStart(context.Background(), "session-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "", out)

	result, err := a.AgentEnd(context.Background(), "session-1", nil, TurnUsage{})
	require.NoError(t, err)
	assert.Equal(t, memory.CaptureResult{}, result)

	require.NoError(t, a.BeforeCompaction(context.Background(), "session-1"))
	a.AfterCompaction(context.Background(), "session-1")
}

type stubEvents struct {
	calls []string
}

func (s *stubEvents) BeforeAgentStart(ctx context.Context, sessionID, prompt string) (string, error) {
	s.calls = append(s.calls, "before:"+prompt)
	return "<lily-memory></lily-memory>", nil
}

func (s *stubEvents) AgentEnd(ctx context.Context, sessionID string, messages []memory.Message, usage TurnUsage) (memory.CaptureResult, error) {
	s.calls = append(s.calls, "end")
	return memory.CaptureResult{Stored: len(messages)}, nil
}

func (s *stubEvents) BeforeCompaction(ctx context.Context, sessionID string) error {
	s.calls = append(s.calls, "before-compaction")
	return nil
}

func (s *stubEvents) AfterCompaction(ctx context.Context, sessionID string) {
	s.calls = append(s.calls, "after-compaction")
}

func TestAdapterForwardsToConfiguredEvents(t *testing.T) {
	events := &stubEvents{}
	a := NewAdapter(events)

	out, err := a.BeforeAgentStart(context.Background(), "s1", "what does Kevin like")
	require.NoError(t, err)
	assert.Equal(t, "<lily-memory></lily-memory>", out)

	result, err := a.AgentEnd(context.Background(), "s1", []memory.Message{{Role: "user", Text: "hi"}}, TurnUsage{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stored)

	require.NoError(t, a.BeforeCompaction(context.Background(), "s1"))
	a.AfterCompaction(context.Background(), "s1")

	assert.Equal(t, []string{"before:what does Kevin like", "end", "before-compaction", "after-compaction"}, events.calls)
}
