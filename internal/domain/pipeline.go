package domain

import "time"

// PipelineStatus is the lifecycle state of a pipeline.
type PipelineStatus string

const (
	PipelinePending   PipelineStatus = "pending"
	PipelineRunning   PipelineStatus = "running"
	PipelinePaused    PipelineStatus = "paused"
	PipelineComplete  PipelineStatus = "complete"
	PipelineFailed    PipelineStatus = "failed"
	PipelineCancelled PipelineStatus = "cancelled"
)

// IsTerminal reports whether the status will never change again on its own.
func (s PipelineStatus) IsTerminal() bool {
	switch s {
	case PipelineComplete, PipelineFailed, PipelineCancelled:
		return true
	default:
		return false
	}
}

// StepType distinguishes how a step's default-edge validation rule applies.
type StepType string

const (
	StepTask     StepType = "task"
	StepDecision StepType = "decision"
	StepNotify   StepType = "notify"
)

// StepStatus is the lifecycle state of a step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepReady     StepStatus = "ready"
	StepRunning   StepStatus = "running"
	StepComplete  StepStatus = "complete"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
	StepCancelled StepStatus = "cancelled"
	StepPaused    StepStatus = "paused"
)

// IsTerminal reports whether the step status will never change again on its own.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepComplete, StepFailed, StepSkipped, StepCancelled:
		return true
	default:
		return false
	}
}

// Pipeline is a persisted DAG instance with its own lifecycle status.
type Pipeline struct {
	ID            string
	Name          string
	Status        PipelineStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	CreatorTag    string
	TriggerMsg    string
	Config        map[string]any
	Summary       string
	Error         string
}

// Step is one node of a pipeline's DAG.
type Step struct {
	ID             string
	PipelineID     string
	Name           string
	StepType       StepType
	Status         StepStatus
	Tier           string
	Executor       string
	PromptTemplate string
	DependsOnAll   bool // true = AND-join, false = OR-join
	RetryCount     int
	MaxRetries     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	InputArtifact  map[string]any
	OutputArtifact string
	ResultSummary  string
	Error          string
}

// Edge connects a parent step to a child step within one pipeline.
type Edge struct {
	PipelineID   string
	ParentStepID string
	ChildStepID  string
	Condition    Condition
}

// Trigger is a cron-scheduled instantiation rule for a pipeline.
type Trigger struct {
	ID         string
	PipelineID string
	CronExpr   string
	Timezone   string
	Enabled    bool
	LastFired  *time.Time
	NextFire   *time.Time
}
