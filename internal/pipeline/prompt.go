package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/openclaw/lily/internal/domain"
)

const promptPreamble = "Previous step outputs:\n"

// ResolvedPrompt builds the text a dispatcher sends for a ready/running
// step: its template with {{prev_result}} and {{parent_outputs}} both
// substituted by the concatenation of every completed parent's
// `result_summary ?? output`, each rendered as "[name]: artifact" and
// joined by a blank line. Per the unresolved "single parent vs
// concatenation" question, concatenation is used regardless of parent
// count. If neither placeholder appears in the template, the concatenated
// block is prepended with a "Previous step outputs:" preamble instead.
func (e *Engine) ResolvedPrompt(ctx context.Context, step *domain.Step) (string, error) {
	edges, err := e.store.EdgesByPipeline(ctx, step.PipelineID)
	if err != nil {
		return "", err
	}

	var parentBlocks []string
	for _, edge := range edges {
		if edge.ChildStepID != step.ID {
			continue
		}
		parent, err := e.store.GetStep(ctx, edge.ParentStepID)
		if err != nil {
			return "", err
		}
		if parent == nil || parent.Status != domain.StepComplete {
			continue
		}
		artifact := parent.ResultSummary
		if artifact == "" {
			artifact = parent.OutputArtifact
		}
		parentBlocks = append(parentBlocks, fmt.Sprintf("[%s]: %s", parent.Name, artifact))
	}

	parentOutputs := strings.Join(parentBlocks, "\n\n")

	prompt := step.PromptTemplate
	substituted := prompt
	substituted = strings.ReplaceAll(substituted, "{{prev_result}}", parentOutputs)
	substituted = strings.ReplaceAll(substituted, "{{parent_outputs}}", parentOutputs)

	if substituted == prompt && parentOutputs != "" {
		substituted = promptPreamble + parentOutputs + "\n\n" + prompt
	}
	return substituted, nil
}
