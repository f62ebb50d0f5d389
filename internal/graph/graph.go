// Package graph implements pure, in-memory DAG reasoning over a pipeline's
// steps and edges: build, validate, cycle detection, topological sort, and
// ready/skip-set computation. It never touches the store.
package graph

import (
	"regexp"
	"strings"

	"github.com/openclaw/lily/internal/domain"
)

// Graph is a flat, rebuild-per-operation view of one pipeline's DAG. It
// holds no pointers between steps; adjacency is expressed as string-keyed
// id lists, mirroring a short-lived, cheaply reconstructed structure rather
// than a persistent pointer graph.
type Graph struct {
	stepsByID    map[string]*domain.Step
	idByName     map[string]string
	children     map[string][]string // parent id -> child ids
	parents      map[string][]string // child id -> parent ids
	conditions   map[[2]string]domain.Condition
	roots        []string
}

// Build constructs a Graph from a flat step/edge list.
func Build(steps []*domain.Step, edges []*domain.Edge) *Graph {
	g := &Graph{
		stepsByID:  make(map[string]*domain.Step, len(steps)),
		idByName:   make(map[string]string, len(steps)),
		children:   make(map[string][]string),
		parents:    make(map[string][]string),
		conditions: make(map[[2]string]domain.Condition, len(edges)),
	}
	for _, s := range steps {
		g.stepsByID[s.ID] = s
		g.idByName[s.Name] = s.ID
	}
	for _, e := range edges {
		g.children[e.ParentStepID] = append(g.children[e.ParentStepID], e.ChildStepID)
		g.parents[e.ChildStepID] = append(g.parents[e.ChildStepID], e.ParentStepID)
		g.conditions[[2]string{e.ParentStepID, e.ChildStepID}] = e.Condition
	}
	for _, s := range steps {
		if len(g.parents[s.ID]) == 0 {
			g.roots = append(g.roots, s.ID)
		}
	}
	return g
}

// Step looks up a step by id.
func (g *Graph) Step(id string) (*domain.Step, bool) {
	s, ok := g.stepsByID[id]
	return s, ok
}

// StepIDByName resolves a step id from its pipeline-unique name.
func (g *Graph) StepIDByName(name string) (string, bool) {
	id, ok := g.idByName[name]
	return id, ok
}

// Children returns the child step ids of a parent.
func (g *Graph) Children(id string) []string {
	return g.children[id]
}

// Parents returns the parent step ids of a child.
func (g *Graph) Parents(id string) []string {
	return g.parents[id]
}

// Roots returns step ids with no parents.
func (g *Graph) Roots() []string {
	return g.roots
}

// Condition returns the edge condition between parent and child, defaulting
// to Unconditional when no such edge exists.
func (g *Graph) Condition(parent, child string) domain.Condition {
	c, ok := g.conditions[[2]string{parent, child}]
	if !ok {
		return domain.UnconditionalCondition()
	}
	return c
}

// Steps returns all steps in the graph, in no particular order.
func (g *Graph) Steps() []*domain.Step {
	out := make([]*domain.Step, 0, len(g.stepsByID))
	for _, s := range g.stepsByID {
		out = append(out, s)
	}
	return out
}

// EvaluateCondition applies a condition against a parent's output text.
// A null/unconditional condition is always true. An invalid regex fails
// closed (false). Unknown condition kinds default to true.
func EvaluateCondition(c domain.Condition, output string) bool {
	switch c.Kind {
	case domain.ConditionUnconditional:
		return true
	case domain.ConditionContains:
		return strings.Contains(strings.ToLower(output), strings.ToLower(c.Value))
	case domain.ConditionRegex:
		re, err := regexp.Compile("(?i)" + c.Value)
		if err != nil {
			return false
		}
		return re.MatchString(output)
	default:
		return true
	}
}
