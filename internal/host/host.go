// Package host is the Host Adapter: the boundary between an agent runtime
// and the memory/pipeline engines, grounded on the teacher's
// ExecutionObserver pattern — a registry of typed hooks the runtime calls
// into, rather than the engines reaching out to the runtime.
package host

import (
	"context"

	"github.com/openclaw/lily/internal/memory"
)

// TurnUsage is the context-size signal an agent-end call reports, used to
// sample context pressure every 10th invocation. ByteEstimate, when
// available, is preferred over MessageCount per spec §4.6.
type TurnUsage struct {
	MessageCount int
	ByteEstimate int
}

// HostEvents is the set of lifecycle hooks the host runtime invokes. The
// Adapter skips every hook when it holds no HostEvents value; otherwise it
// calls each method directly, with no per-method nil check. Signatures carry
// exactly what each hook needs to do real work: BeforeAgentStart returns
// the prepend-context string for the next turn; AgentEnd runs capture and
// returns its summary.
type HostEvents interface {
	BeforeAgentStart(ctx context.Context, sessionID, prompt string) (prependContext string, err error)
	AgentEnd(ctx context.Context, sessionID string, messages []memory.Message, usage TurnUsage) (memory.CaptureResult, error)
	BeforeCompaction(ctx context.Context, sessionID string) error
	AfterCompaction(ctx context.Context, sessionID string)
}

const maxToolOutputLen = 4000

// toolTruncationSuffix is the exact literal appended to a tool result that
// overran the budget.
const toolTruncationSuffix = " …(truncated)"

// ToolHandler executes one named tool call and returns its raw output.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// Adapter wires a tool handler registry and the memory/pipeline engines'
// lifecycle hooks into a host runtime's event stream.
type Adapter struct {
	handlers map[string]ToolHandler
	events   HostEvents
}

// NewAdapter builds an Adapter. events may be nil for runtimes that don't
// need lifecycle notification (e.g. a pipeline-only integration).
func NewAdapter(events HostEvents) *Adapter {
	return &Adapter{handlers: make(map[string]ToolHandler), events: events}
}

// RegisterTool adds a tool handler under name, replacing any existing
// handler for that name.
func (a *Adapter) RegisterTool(name string, handler ToolHandler) {
	a.handlers[name] = handler
}

// CallTool invokes a registered tool handler and truncates its output to
// the runtime's context budget.
func (a *Adapter) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	handler, ok := a.handlers[name]
	if !ok {
		return "", ErrUnknownTool(name)
	}
	out, err := handler(ctx, args)
	if err != nil {
		return "", err
	}
	if len(out) > maxToolOutputLen {
		out = out[:maxToolOutputLen-len(toolTruncationSuffix)] + toolTruncationSuffix
	}
	return out, nil
}

// BeforeAgentStart forwards to the configured HostEvents, if any, returning
// the markdown block (if any) the runtime should prepend to the next
// agent turn.
func (a *Adapter) BeforeAgentStart(ctx context.Context, sessionID, prompt string) (string, error) {
	if a.events == nil {
		return "", nil
	}
	return a.events.BeforeAgentStart(ctx, sessionID, prompt)
}

// AgentEnd forwards to the configured HostEvents, if any.
func (a *Adapter) AgentEnd(ctx context.Context, sessionID string, messages []memory.Message, usage TurnUsage) (memory.CaptureResult, error) {
	if a.events == nil {
		return memory.CaptureResult{}, nil
	}
	return a.events.AgentEnd(ctx, sessionID, messages, usage)
}

// BeforeCompaction forwards to the configured HostEvents, if any.
func (a *Adapter) BeforeCompaction(ctx context.Context, sessionID string) error {
	if a.events == nil {
		return nil
	}
	return a.events.BeforeCompaction(ctx, sessionID)
}

// AfterCompaction forwards to the configured HostEvents, if any.
func (a *Adapter) AfterCompaction(ctx context.Context, sessionID string) {
	if a.events != nil {
		a.events.AfterCompaction(ctx, sessionID)
	}
}
