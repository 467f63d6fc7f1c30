package model

import (
	"time"

	"gorm.io/datatypes"
)

// ── 答辩类型 ──

const (
	DefenseTypeProject1 = "PROJECT1" // 题目考核（阶段一）
	DefenseTypeThesis   = "THESIS"   // 论文答辩（阶段二）
)

// ── 答辩申请状态 ──
//
// submitted → advisor_approved → staff_verified → scheduled → completed
// advisor_rejected / staff_returned 可回到 submitted（学生重新提交）
// cancelled 可从任意非终态进入

const (
	DefenseStatusSubmitted       = "submitted"
	DefenseStatusAdvisorApproved = "advisor_approved"
	DefenseStatusAdvisorRejected = "advisor_rejected"
	DefenseStatusStaffVerified   = "staff_verified"
	DefenseStatusStaffReturned   = "staff_returned"
	DefenseStatusScheduled       = "scheduled"
	DefenseStatusCompleted       = "completed"
	DefenseStatusCancelled       = "cancelled"
)

// DefenseRequest 答辩申请表 — 对应 defense_requests
// 每个 (项目, 答辩类型) 至多一条活动（非 cancelled）申请
type DefenseRequest struct {
	RequestID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	ProjectID        string         `gorm:"type:uuid;not null;index"                       json:"project_id"`
	DefenseType      string         `gorm:"type:varchar(10);not null"                      json:"defense_type"` // PROJECT1 | THESIS
	Status           string         `gorm:"type:varchar(20);not null;default:'submitted'"  json:"status"`
	FormPayload      datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"               json:"form_payload"`
	AttachmentPath   *string        `gorm:"type:varchar(500)"                              json:"attachment_path,omitempty"`
	AttachmentMime   *string        `gorm:"type:varchar(100)"                              json:"attachment_mime,omitempty"`
	AttachmentSize   *int64         `json:"attachment_size,omitempty"`
	ScheduledAt      *time.Time     `json:"scheduled_at,omitempty"`
	Location         string         `gorm:"type:varchar(200);not null;default:''"          json:"location"`
	AdvisorComment   string         `gorm:"type:varchar(1000);not null;default:''"         json:"advisor_comment"`
	StaffComment     string         `gorm:"type:varchar(1000);not null;default:''"         json:"staff_comment"`
	SubmittedBy      string         `gorm:"type:uuid;not null"                             json:"submitted_by"`
	AdvisorDecidedAt *time.Time     `json:"advisor_decided_at,omitempty"`
	StaffVerifiedAt  *time.Time     `json:"staff_verified_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	CancelledAt      *time.Time     `json:"cancelled_at,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (DefenseRequest) TableName() string { return "defense_requests" }

// IsTerminal 申请是否处于终态
func (r *DefenseRequest) IsTerminal() bool {
	return r.Status == DefenseStatusCompleted || r.Status == DefenseStatusCancelled
}

// IsEditLocked 申请是否已锁定编辑（排期后不可修改表单）
func (r *DefenseRequest) IsEditLocked() bool {
	return r.Status == DefenseStatusScheduled || r.Status == DefenseStatusCompleted
}

// PhaseFor 返回答辩类型对应的项目阶段
func PhaseFor(defenseType string) string {
	if defenseType == DefenseTypeThesis {
		return PhaseTwo
	}
	return PhaseOne
}
