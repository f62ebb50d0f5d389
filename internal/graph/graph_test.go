package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/lily/internal/domain"
)

func step(id, name string, typ domain.StepType, status domain.StepStatus, andJoin bool) *domain.Step {
	return &domain.Step{
		ID:           id,
		Name:         name,
		StepType:     typ,
		Status:       status,
		DependsOnAll: andJoin,
	}
}

func edge(parent, child string, cond domain.Condition) *domain.Edge {
	return &domain.Edge{ParentStepID: parent, ChildStepID: child, Condition: cond}
}

func TestAcyclicGraphHasNoCycle(t *testing.T) {
	steps := []*domain.Step{
		step("a", "A", domain.StepTask, domain.StepPending, true),
		step("b", "B", domain.StepTask, domain.StepPending, true),
		step("c", "C", domain.StepTask, domain.StepPending, true),
	}
	edges := []*domain.Edge{
		edge("a", "b", domain.UnconditionalCondition()),
		edge("b", "c", domain.UnconditionalCondition()),
	}
	g := Build(steps, edges)

	cr := g.HasCycles()
	assert.False(t, cr.HasCycle)

	order := g.TopoSort()
	require.NotNil(t, order)
	require.Len(t, order, 3)
	positions := make(map[string]int, len(order))
	for i, id := range order {
		positions[id] = i
	}
	assert.Less(t, positions["a"], positions["b"])
	assert.Less(t, positions["b"], positions["c"])
}

func TestCyclicGraphDetected(t *testing.T) {
	steps := []*domain.Step{
		step("a", "A", domain.StepTask, domain.StepPending, true),
		step("b", "B", domain.StepTask, domain.StepPending, true),
	}
	edges := []*domain.Edge{
		edge("a", "b", domain.UnconditionalCondition()),
		edge("b", "a", domain.UnconditionalCondition()),
	}
	g := Build(steps, edges)

	cr := g.HasCycles()
	assert.True(t, cr.HasCycle)
	assert.Nil(t, g.TopoSort())
}

func TestReadyAndSkipAreDisjoint(t *testing.T) {
	a := step("a", "A", domain.StepTask, domain.StepComplete, true)
	a.OutputArtifact = "all good"
	b := step("b", "B", domain.StepTask, domain.StepPending, true)
	c := step("c", "C", domain.StepTask, domain.StepPending, true)

	edges := []*domain.Edge{
		edge("a", "b", domain.ContainsCondition("build_needed")),
		edge("a", "c", domain.UnconditionalCondition()),
	}
	g := Build([]*domain.Step{a, b, c}, edges)

	ready := map[string]bool{}
	for _, id := range g.ReadySet() {
		ready[id] = true
	}
	skip := map[string]bool{}
	for _, id := range g.SkipSet() {
		skip[id] = true
	}

	for id := range ready {
		assert.False(t, skip[id], "step %s is in both ready and skip sets", id)
	}
	assert.True(t, skip["b"], "B should be skippable: condition not satisfied and A is terminal")
	assert.True(t, ready["c"], "C should be ready: unconditional edge from a complete parent")
}

func TestConditionEvaluation(t *testing.T) {
	assert.True(t, EvaluateCondition(domain.ContainsCondition("build"), "We need to BUILD it"))
	assert.True(t, EvaluateCondition(domain.RegexCondition("^ERROR"), "ERROR: x"))
	assert.False(t, EvaluateCondition(domain.RegexCondition("("), "anything"))
	assert.True(t, EvaluateCondition(domain.UnconditionalCondition(), "anything"))
}

func TestDecisionStepRequiresDefaultEdge(t *testing.T) {
	a := step("a", "A", domain.StepDecision, domain.StepPending, true)
	b := step("b", "B", domain.StepTask, domain.StepPending, true)
	edges := []*domain.Edge{
		edge("a", "b", domain.ContainsCondition("x")),
	}
	g := Build([]*domain.Step{a, b}, edges)

	ok, errs := g.Validate(DefaultValidateOptions())
	assert.False(t, ok)
	assert.NotEmpty(t, errs)
}

func TestCompleteCheck(t *testing.T) {
	a := step("a", "A", domain.StepTask, domain.StepComplete, true)
	b := step("b", "B", domain.StepTask, domain.StepSkipped, true)
	g := Build([]*domain.Step{a, b}, nil)
	assert.Equal(t, domain.PipelineComplete, g.CompleteCheck())

	c := step("c", "C", domain.StepTask, domain.StepFailed, true)
	g2 := Build([]*domain.Step{a, c}, nil)
	assert.Equal(t, domain.PipelineFailed, g2.CompleteCheck())
}
