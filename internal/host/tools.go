package host

import (
	"context"
	"fmt"
	"strings"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/memory"
	"github.com/openclaw/lily/internal/pipeline"
)

// RegisterMemoryTools wires the memory_* tool handlers backed by a memory
// Engine: memory_store, memory_recall, memory_search, memory_entity,
// memory_semantic_search, memory_add_entity, memory_security_log.
func (a *Adapter) RegisterMemoryTools(eng *memory.Engine, maxRecallResults, charBudget int) {
	a.RegisterTool("memory_store", memoryStoreHandler(eng))
	a.RegisterTool("memory_recall", memoryRecallHandler(eng, maxRecallResults, charBudget))
	a.RegisterTool("memory_search", memorySearchHandler(eng))
	a.RegisterTool("memory_entity", memoryEntityHandler(eng))
	a.RegisterTool("memory_semantic_search", memorySemanticSearchHandler(eng))
	a.RegisterTool("memory_add_entity", memoryAddEntityHandler(eng))
	a.RegisterTool("memory_security_log", memorySecurityLogHandler(eng))
}

func memoryStoreHandler(eng *memory.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		entity, _ := args["entity"].(string)
		key, _ := args["key"].(string)
		value, _ := args["value"].(string)
		if entity == "" || key == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "memory_store requires entity and key", nil)
		}

		class := domain.TTLActive
		if classArg, ok := args["ttl_class"].(string); ok && classArg != "" {
			class = domain.TTLClass(classArg)
		}
		importance := 0.5
		if imp, ok := args["importance"].(float64); ok {
			importance = imp
		}

		if err := eng.StoreFact(ctx, entity, key, value, class, importance); err != nil {
			return "", err
		}
		return fmt.Sprintf("stored %s.%s", entity, key), nil
	}
}

func memoryRecallHandler(eng *memory.Engine, maxResults, charBudget int) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		payload, err := eng.Recall(ctx, query, maxResults, charBudget)
		if err != nil {
			return "", err
		}
		return payload.Markdown, nil
	}
}

func memorySearchHandler(eng *memory.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if strings.TrimSpace(query) == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "memory_search requires query", nil)
		}
		limit := intArg(args, "limit", 0)

		rows, err := eng.SearchDecisions(ctx, query, limit)
		if err != nil {
			return "", err
		}
		return renderDecisionList(rows), nil
	}
}

func memoryEntityHandler(eng *memory.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		entity, _ := args["entity"].(string)
		if entity == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "memory_entity requires entity", nil)
		}

		rows, err := eng.DecisionsForEntity(ctx, entity)
		if err != nil {
			return "", err
		}
		return renderDecisionList(rows), nil
	}
}

func memorySemanticSearchHandler(eng *memory.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if strings.TrimSpace(query) == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "memory_semantic_search requires query", nil)
		}
		k := intArg(args, "k", 0)
		threshold := floatArg(args, "threshold", 0)

		hits, err := eng.SemanticSearch(ctx, query, k, threshold)
		if err != nil {
			return "", err
		}
		if len(hits) == 0 {
			return "no matches", nil
		}
		var b strings.Builder
		for _, h := range hits {
			b.WriteString(fmt.Sprintf("- %s (sim %.2f)\n", renderFact(h.Decision), h.Similarity))
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}
}

func memoryAddEntityHandler(eng *memory.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		name, _ := args["name"].(string)
		if name == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "memory_add_entity requires name", nil)
		}
		if err := eng.AddEntity(ctx, name, "tool"); err != nil {
			return "", err
		}
		return fmt.Sprintf("registered entity %s", name), nil
	}
}

func memorySecurityLogHandler(eng *memory.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		limit := intArg(args, "limit", 0)
		events, err := eng.RecentSecurityEvents(ctx, limit)
		if err != nil {
			return "", err
		}
		if len(events) == 0 {
			return "no security events", nil
		}
		var b strings.Builder
		for _, e := range events {
			b.WriteString(fmt.Sprintf("- [%s] %s blocked %s.%s (%s)\n", e.Timestamp.Format("2006-01-02T15:04:05Z"), e.SourceRole, e.TargetEntity, e.TargetKey, e.EventType))
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}
}

func renderDecisionList(rows []*domain.Decision) string {
	if len(rows) == 0 {
		return "no matches"
	}
	var b strings.Builder
	for _, d := range rows {
		b.WriteString("- " + renderFact(d) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderFact(d *domain.Decision) string {
	if d.HasFact() {
		return fmt.Sprintf("%s.%s = %s", d.Entity, d.FactKey, d.FactValue)
	}
	return d.Description
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func floatArg(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// RegisterPipelineTools wires the pipeline_* tool handlers backed by a
// pipeline Engine: pipeline_create, pipeline_start, pipeline_status,
// pipeline_advance, pipeline_cancel, pipeline_schedule, pipeline_tick.
func (a *Adapter) RegisterPipelineTools(eng *pipeline.Engine) {
	a.RegisterTool("pipeline_create", pipelineCreateHandler(eng))
	a.RegisterTool("pipeline_start", pipelineStartHandler(eng))
	a.RegisterTool("pipeline_status", pipelineStatusHandler(eng))
	a.RegisterTool("pipeline_advance", pipelineAdvanceHandler(eng))
	a.RegisterTool("pipeline_cancel", pipelineCancelHandler(eng))
	a.RegisterTool("pipeline_schedule", pipelineScheduleHandler(eng))
	a.RegisterTool("pipeline_tick", pipelineTickHandler(eng))
}

func pipelineCreateHandler(eng *pipeline.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		name, _ := args["name"].(string)
		if name == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "pipeline_create requires name", nil)
		}
		rawSteps, _ := args["steps"].([]any)
		if len(rawSteps) == 0 {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "pipeline_create requires at least one step", nil)
		}
		creatorTag, _ := args["creator_tag"].(string)
		triggerMsg, _ := args["trigger_message"].(string)
		config, _ := args["config"].(map[string]any)

		stepSpecs := make([]pipeline.StepSpec, 0, len(rawSteps))
		var edgeSpecs []pipeline.EdgeSpec
		for _, raw := range rawSteps {
			stepMap, ok := raw.(map[string]any)
			if !ok {
				return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "pipeline_create step entries must be objects", nil)
			}
			stepName, _ := stepMap["name"].(string)
			if stepName == "" {
				return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "pipeline_create step requires name", nil)
			}
			stepType := domain.StepTask
			if t, ok := stepMap["step_type"].(string); ok && t != "" {
				stepType = domain.StepType(t)
			}
			tier, _ := stepMap["tier"].(string)
			executor, _ := stepMap["executor"].(string)
			promptTemplate, _ := stepMap["prompt_template"].(string)
			dependsOnAll, _ := stepMap["depends_on_all"].(bool)
			maxRetries := intArg(stepMap, "max_retries", 0)

			stepSpecs = append(stepSpecs, pipeline.StepSpec{
				Name:           stepName,
				StepType:       stepType,
				Tier:           tier,
				Executor:       executor,
				PromptTemplate: promptTemplate,
				DependsOnAll:   dependsOnAll,
				MaxRetries:     maxRetries,
			})

			edgeSpecs = append(edgeSpecs, parseDependsOn(stepName, stepMap["depends_on"])...)
		}

		p, err := eng.Create(ctx, name, creatorTag, triggerMsg, config, stepSpecs, edgeSpecs)
		if err != nil {
			return "", err
		}
		return p.ID, nil
	}
}

// parseDependsOn turns one step's depends_on value into edges targeting
// childName: a bare string is an unconditional parent reference by name; an
// object carries {step, when:{output_contains|output_match}}.
func parseDependsOn(childName string, raw any) []pipeline.EdgeSpec {
	var entries []any
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		entries = v
	default:
		entries = []any{v}
	}

	var edges []pipeline.EdgeSpec
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			edges = append(edges, pipeline.EdgeSpec{ParentName: v, ChildName: childName, Condition: domain.UnconditionalCondition()})
		case map[string]any:
			parent, _ := v["step"].(string)
			if parent == "" {
				continue
			}
			cond := domain.UnconditionalCondition()
			if when, ok := v["when"].(map[string]any); ok {
				if s, ok := when["output_contains"].(string); ok {
					cond = domain.ContainsCondition(s)
				} else if s, ok := when["output_match"].(string); ok {
					cond = domain.RegexCondition(s)
				}
			}
			edges = append(edges, pipeline.EdgeSpec{ParentName: parent, ChildName: childName, Condition: cond})
		}
	}
	return edges
}

func pipelineStartHandler(eng *pipeline.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, _ := args["pipeline_id"].(string)
		if id == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "pipeline_start requires pipeline_id", nil)
		}
		if err := eng.Start(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("started %s", id), nil
	}
}

func pipelineStatusHandler(eng *pipeline.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, _ := args["pipeline_id"].(string)
		if id == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "pipeline_status requires pipeline_id", nil)
		}
		p, steps, err := eng.Status(ctx, id)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString(fmt.Sprintf("%s: %s\n", p.Name, p.Status))
		for _, st := range steps {
			b.WriteString(fmt.Sprintf("- %s: %s\n", st.Name, st.Status))
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}
}

func pipelineAdvanceHandler(eng *pipeline.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		pipelineID, _ := args["pipeline_id"].(string)
		stepID, _ := args["step_id"].(string)
		if pipelineID == "" || stepID == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "pipeline_advance requires pipeline_id and step_id", nil)
		}
		success, _ := args["success"].(bool)
		output, _ := args["output"].(string)
		resultSummary, _ := args["result_summary"].(string)
		stepErr, _ := args["error"].(string)

		if err := eng.Advance(ctx, pipelineID, stepID, success, output, resultSummary, stepErr); err != nil {
			return "", err
		}
		return "advanced", nil
	}
}

func pipelineCancelHandler(eng *pipeline.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, _ := args["pipeline_id"].(string)
		if id == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "pipeline_cancel requires pipeline_id", nil)
		}
		if err := eng.Cancel(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("cancelled %s", id), nil
	}
}

func pipelineScheduleHandler(eng *pipeline.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, _ := args["pipeline_id"].(string)
		schedule, _ := args["schedule"].(string)
		timezone, _ := args["timezone"].(string)
		if id == "" || strings.TrimSpace(schedule) == "" {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "pipeline_schedule requires pipeline_id and schedule", nil)
		}
		if len(strings.Fields(schedule)) != 5 {
			return "", domain.NewDomainError(domain.ErrCodeInvalidInput, "schedule must be a 5-field cron expression", nil)
		}
		t, err := eng.Schedule(ctx, id, schedule, timezone)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("scheduled trigger %s", t.ID), nil
	}
}

func pipelineTickHandler(eng *pipeline.Engine) ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		items, paused, err := eng.Tick(ctx)
		if err != nil {
			return "", err
		}
		if len(items) == 0 && len(paused) == 0 {
			return "nothing ready", nil
		}
		var b strings.Builder
		for _, item := range items {
			b.WriteString(fmt.Sprintf("- [%s/%s] %s via %s/%s\n", item.PipelineName, item.StepName, item.StepType, item.Tier, item.Executor))
		}
		for _, p := range paused {
			b.WriteString(fmt.Sprintf("- [%s/%s] paused, awaiting input\n", p.PipelineName, p.StepName))
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}
}
