package storage

import (
	"encoding/json"

	"github.com/uptrace/bun"

	"github.com/openclaw/lily/internal/domain"
)

// PipelineModel is the bun row shape for the pipelines table.
type PipelineModel struct {
	bun.BaseModel `bun:"table:pipelines"`

	ID          string  `bun:"id,pk"`
	Name        string  `bun:"name"`
	Status      string  `bun:"status"`
	CreatedAt   string  `bun:"created_at"`
	UpdatedAt   string  `bun:"updated_at"`
	StartedAt   *string `bun:"started_at"`
	CompletedAt *string `bun:"completed_at"`
	CreatorTag  string  `bun:"creator_tag"`
	TriggerMsg  string  `bun:"trigger_msg"`
	Config      string  `bun:"config"`
	Summary     string  `bun:"summary"`
	Error       string  `bun:"error"`
}

func NewPipelineModel(p *domain.Pipeline) *PipelineModel {
	cfg, _ := json.Marshal(p.Config)
	return &PipelineModel{
		ID:          p.ID,
		Name:        p.Name,
		Status:      string(p.Status),
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
		StartedAt:   formatTimePtr(p.StartedAt),
		CompletedAt: formatTimePtr(p.CompletedAt),
		CreatorTag:  p.CreatorTag,
		TriggerMsg:  p.TriggerMsg,
		Config:      string(cfg),
		Summary:     p.Summary,
		Error:       p.Error,
	}
}

func (m *PipelineModel) ToDomain() *domain.Pipeline {
	var cfg map[string]any
	_ = json.Unmarshal([]byte(m.Config), &cfg)
	return &domain.Pipeline{
		ID:          m.ID,
		Name:        m.Name,
		Status:      domain.PipelineStatus(m.Status),
		CreatedAt:   parseTime(m.CreatedAt),
		UpdatedAt:   parseTime(m.UpdatedAt),
		StartedAt:   parseTimePtr(m.StartedAt),
		CompletedAt: parseTimePtr(m.CompletedAt),
		CreatorTag:  m.CreatorTag,
		TriggerMsg:  m.TriggerMsg,
		Config:      cfg,
		Summary:     m.Summary,
		Error:       m.Error,
	}
}

// StepModel is the bun row shape for the pipeline_steps table.
type StepModel struct {
	bun.BaseModel `bun:"table:pipeline_steps"`

	ID             string  `bun:"id,pk"`
	PipelineID     string  `bun:"pipeline_id"`
	Name           string  `bun:"name"`
	StepType       string  `bun:"step_type"`
	Status         string  `bun:"status"`
	Tier           string  `bun:"tier"`
	Executor       string  `bun:"executor"`
	PromptTemplate string  `bun:"prompt_template"`
	DependsOnAll   bool    `bun:"depends_on_all"`
	RetryCount     int     `bun:"retry_count"`
	MaxRetries     int     `bun:"max_retries"`
	CreatedAt      string  `bun:"created_at"`
	UpdatedAt      string  `bun:"updated_at"`
	StartedAt      *string `bun:"started_at"`
	CompletedAt    *string `bun:"completed_at"`
	InputArtifact  string  `bun:"input_artifact"`
	OutputArtifact string  `bun:"output_artifact"`
	ResultSummary  string  `bun:"result_summary"`
	Error          string  `bun:"error"`
}

func NewStepModel(s *domain.Step) *StepModel {
	in, _ := json.Marshal(s.InputArtifact)
	return &StepModel{
		ID:             s.ID,
		PipelineID:     s.PipelineID,
		Name:           s.Name,
		StepType:       string(s.StepType),
		Status:         string(s.Status),
		Tier:           s.Tier,
		Executor:       s.Executor,
		PromptTemplate: s.PromptTemplate,
		DependsOnAll:   s.DependsOnAll,
		RetryCount:     s.RetryCount,
		MaxRetries:     s.MaxRetries,
		CreatedAt:      formatTime(s.CreatedAt),
		UpdatedAt:      formatTime(s.UpdatedAt),
		StartedAt:      formatTimePtr(s.StartedAt),
		CompletedAt:    formatTimePtr(s.CompletedAt),
		InputArtifact:  string(in),
		OutputArtifact: s.OutputArtifact,
		ResultSummary:  s.ResultSummary,
		Error:          s.Error,
	}
}

func (m *StepModel) ToDomain() *domain.Step {
	var in map[string]any
	_ = json.Unmarshal([]byte(m.InputArtifact), &in)
	return &domain.Step{
		ID:             m.ID,
		PipelineID:     m.PipelineID,
		Name:           m.Name,
		StepType:       domain.StepType(m.StepType),
		Status:         domain.StepStatus(m.Status),
		Tier:           m.Tier,
		Executor:       m.Executor,
		PromptTemplate: m.PromptTemplate,
		DependsOnAll:   m.DependsOnAll,
		RetryCount:     m.RetryCount,
		MaxRetries:     m.MaxRetries,
		CreatedAt:      parseTime(m.CreatedAt),
		UpdatedAt:      parseTime(m.UpdatedAt),
		StartedAt:      parseTimePtr(m.StartedAt),
		CompletedAt:    parseTimePtr(m.CompletedAt),
		InputArtifact:  in,
		OutputArtifact: m.OutputArtifact,
		ResultSummary:  m.ResultSummary,
		Error:          m.Error,
	}
}

// EdgeModel is the bun row shape for the pipeline_edges table.
type EdgeModel struct {
	bun.BaseModel `bun:"table:pipeline_edges"`

	PipelineID     string `bun:"pipeline_id"`
	ParentStepID   string `bun:"parent_step_id"`
	ChildStepID    string `bun:"child_step_id"`
	ConditionKind  int    `bun:"condition_kind"`
	ConditionValue string `bun:"condition_value"`
}

func NewEdgeModel(pipelineID string, e *domain.Edge) *EdgeModel {
	return &EdgeModel{
		PipelineID:     pipelineID,
		ParentStepID:   e.ParentStepID,
		ChildStepID:    e.ChildStepID,
		ConditionKind:  int(e.Condition.Kind),
		ConditionValue: e.Condition.Value,
	}
}

func (m *EdgeModel) ToDomain() *domain.Edge {
	return &domain.Edge{
		PipelineID:   m.PipelineID,
		ParentStepID: m.ParentStepID,
		ChildStepID:  m.ChildStepID,
		Condition: domain.Condition{
			Kind:  domain.ConditionKind(m.ConditionKind),
			Value: m.ConditionValue,
		},
	}
}

// TriggerModel is the bun row shape for the pipeline_triggers table.
type TriggerModel struct {
	bun.BaseModel `bun:"table:pipeline_triggers"`

	ID         string  `bun:"id,pk"`
	PipelineID string  `bun:"pipeline_id"`
	CronExpr   string  `bun:"cron_expr"`
	Timezone   string  `bun:"timezone"`
	Enabled    bool    `bun:"enabled"`
	LastFired  *string `bun:"last_fired"`
	NextFire   *string `bun:"next_fire"`
}

func NewTriggerModel(t *domain.Trigger) *TriggerModel {
	return &TriggerModel{
		ID:         t.ID,
		PipelineID: t.PipelineID,
		CronExpr:   t.CronExpr,
		Timezone:   t.Timezone,
		Enabled:    t.Enabled,
		LastFired:  formatTimePtr(t.LastFired),
		NextFire:   formatTimePtr(t.NextFire),
	}
}

func (m *TriggerModel) ToDomain() *domain.Trigger {
	return &domain.Trigger{
		ID:         m.ID,
		PipelineID: m.PipelineID,
		CronExpr:   m.CronExpr,
		Timezone:   m.Timezone,
		Enabled:    m.Enabled,
		LastFired:  parseTimePtr(m.LastFired),
		NextFire:   parseTimePtr(m.NextFire),
	}
}
