package graph

import "github.com/openclaw/lily/internal/domain"

// parentSatisfied reports whether a parent step counts as "satisfied" for
// join purposes: it completed and its outgoing edge condition (evaluated
// against its output) holds.
func (g *Graph) parentSatisfied(parentID, childID string) bool {
	parent, ok := g.stepsByID[parentID]
	if !ok || parent.Status != domain.StepComplete {
		return false
	}
	return EvaluateCondition(g.Condition(parentID, childID), parent.OutputArtifact)
}

// IsReady reports whether a pending step is eligible for dispatch: it is a
// root, or its join condition (AND/OR per DependsOnAll) is satisfied by its
// parents' current state.
func (g *Graph) IsReady(stepID string) bool {
	step, ok := g.stepsByID[stepID]
	if !ok || step.Status != domain.StepPending {
		return false
	}
	parents := g.parents[stepID]
	if len(parents) == 0 {
		return true
	}
	if step.DependsOnAll {
		for _, p := range parents {
			if !g.parentSatisfied(p, stepID) {
				return false
			}
		}
		return true
	}
	// OR-join (including the single-parent case, treated as OR with one
	// branch): ready as soon as any parent satisfies its condition.
	for _, p := range parents {
		if g.parentSatisfied(p, stepID) {
			return true
		}
	}
	return false
}

// allParentsTerminal reports whether every parent of a step has reached a
// terminal status.
func (g *Graph) allParentsTerminal(stepID string) bool {
	for _, p := range g.parents[stepID] {
		parent, ok := g.stepsByID[p]
		if !ok || !parent.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// IsSkippable reports whether a pending step can never become ready: all of
// its parents are terminal, and the join condition can no longer be
// satisfied.
func (g *Graph) IsSkippable(stepID string) bool {
	step, ok := g.stepsByID[stepID]
	if !ok || step.Status != domain.StepPending {
		return false
	}
	parents := g.parents[stepID]
	if len(parents) == 0 {
		return false // roots are always ready, never skippable
	}
	if !g.allParentsTerminal(stepID) {
		return false
	}
	if step.DependsOnAll {
		for _, p := range parents {
			if !g.parentSatisfied(p, stepID) {
				return true
			}
		}
		return false
	}
	for _, p := range parents {
		if g.parentSatisfied(p, stepID) {
			return false
		}
	}
	return true
}

// ReadySet returns the ids of all currently ready steps.
func (g *Graph) ReadySet() []string {
	var out []string
	for id := range g.stepsByID {
		if g.IsReady(id) {
			out = append(out, id)
		}
	}
	return out
}

// SkipSet returns the ids of all currently skippable steps.
func (g *Graph) SkipSet() []string {
	var out []string
	for id := range g.stepsByID {
		if g.IsSkippable(id) {
			out = append(out, id)
		}
	}
	return out
}

// CompleteCheck inspects every step's terminal state and reports the
// pipeline-level status that follows: running while any step is
// non-terminal, failed if any step failed once all are terminal, else
// complete.
func (g *Graph) CompleteCheck() domain.PipelineStatus {
	anyFailed := false
	for _, s := range g.stepsByID {
		if !s.Status.IsTerminal() {
			return domain.PipelineRunning
		}
		if s.Status == domain.StepFailed {
			anyFailed = true
		}
	}
	if anyFailed {
		return domain.PipelineFailed
	}
	return domain.PipelineComplete
}
