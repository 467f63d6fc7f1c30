package model

import "time"

// ── 考核结论 ──

const (
	ExamResultPass = "PASS"
	ExamResultFail = "FAIL"
)

// ExamResult 考核结果表 — 对应 exam_results
// 每个 (项目, 考核类型) 至多一条；答辩申请进入 staff_verified / scheduled 前不可记录
type ExamResult struct {
	ResultID              string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"   json:"result_id"`
	ProjectID             string     `gorm:"type:uuid;not null;uniqueIndex:uq_exam_results"   json:"project_id"`
	ExamType              string     `gorm:"type:varchar(10);not null;uniqueIndex:uq_exam_results" json:"exam_type"` // PROJECT1 | THESIS
	Result                string     `gorm:"type:varchar(10);not null"                        json:"result"` // PASS | FAIL
	Score                 *float64   `gorm:"type:numeric(5,2)"                                json:"score,omitempty"`
	Notes                 string     `gorm:"type:varchar(1000);not null;default:''"           json:"notes"`
	RequireScopeRevision  bool       `gorm:"not null;default:false"                           json:"require_scope_revision"`
	RecordedByUserID      string     `gorm:"type:uuid;not null"                               json:"recorded_by_user_id"`
	StudentAcknowledgedAt *time.Time `json:"student_acknowledged_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (ExamResult) TableName() string { return "exam_results" }
