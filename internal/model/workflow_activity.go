package model

import "gorm.io/datatypes"

// ── 工作流类型 ──

const (
	WorkflowTypeInternship = "internship"
	WorkflowTypeProject1   = "project1"
)

// ── 工作流步骤键（按顺序，首个未满足的步骤即当前步骤）──

const (
	StepTeamReady        = "team-ready"
	StepInProgress       = "in-progress"
	StepProgressCheckIns = "progress-check-ins"
	StepReadinessReview  = "readiness-review"
	StepDefenseRequest   = "defense-request"
	StepDefenseScheduled = "defense-scheduled"
	StepDefenseResult    = "defense-result"
)

// ── 步骤状态 ──

const (
	StepStatusPending         = "pending"
	StepStatusInProgress      = "in_progress"
	StepStatusAwaitingStudent = "awaiting_student_action"
	StepStatusBlocked         = "blocked"
	StepStatusCompleted       = "completed"
)

// ── 整体工作流状态 ──

const (
	OverallNotStarted = "not_started"
	OverallInProgress = "in_progress"
	OverallCompleted  = "completed"
	OverallFailed     = "failed"
	OverallArchived   = "archived"
)

// WorkflowActivity 学生工作流活动表 — 对应 workflow_activities
// 每个 (学生, 工作流类型) 一行：首次同步时懒创建，之后原地更新，永不删除。
// 该表仅由工作流同步器写入，其他组件只读。
type WorkflowActivity struct {
	ActivityID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"        json:"activity_id"`
	StudentID             string         `gorm:"type:uuid;not null;uniqueIndex:uq_workflow_activities" json:"student_id"`
	WorkflowType          string         `gorm:"type:varchar(20);not null;uniqueIndex:uq_workflow_activities" json:"workflow_type"` // internship | project1
	CurrentStepKey        string         `gorm:"type:varchar(50);not null"                             json:"current_step_key"`
	CurrentStepStatus     string         `gorm:"type:varchar(30);not null"                             json:"current_step_status"`
	OverallWorkflowStatus string         `gorm:"type:varchar(20);not null"                             json:"overall_workflow_status"`
	DataPayload           datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"                      json:"data_payload"`
	BaseModel
}

// TableName 指定表名
func (WorkflowActivity) TableName() string { return "workflow_activities" }
