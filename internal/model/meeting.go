package model

import "time"

// ── 项目阶段 ──

const (
	PhaseOne = "phase1" // 选题 + 题目考核
	PhaseTwo = "phase2" // 实作 + 论文答辩
)

// ── 出席状态 ──

const (
	AttendancePresent = "present"
	AttendanceLate    = "late"
	AttendanceAbsent  = "absent"
)

// ── 会议记录审批状态 ──

const (
	LogApprovalPending  = "pending"
	LogApprovalApproved = "approved"
)

// Meeting 指导会议表 — 对应 meetings
type Meeting struct {
	MeetingID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"meeting_id"`
	ProjectID string    `gorm:"type:uuid;not null;index:idx_meetings_project_phase" json:"project_id"`
	Phase     string    `gorm:"type:varchar(10);not null;default:'phase1';index:idx_meetings_project_phase" json:"phase"` // phase1 | phase2
	Topic     string    `gorm:"type:varchar(500);not null;default:''"          json:"topic"`
	MeetingAt time.Time `gorm:"not null"                                       json:"meeting_at"`
	AdvisorID string    `gorm:"type:uuid;not null"                             json:"advisor_id"`
	BaseModel

	// 关联
	Participants []MeetingParticipant `gorm:"foreignKey:MeetingID" json:"participants,omitempty"`
	Logs         []MeetingLog         `gorm:"foreignKey:MeetingID" json:"logs,omitempty"`
}

// TableName 指定表名
func (Meeting) TableName() string { return "meetings" }

// MeetingParticipant 会议出席表 — 对应 meeting_participants
type MeetingParticipant struct {
	ParticipantID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"      json:"participant_id"`
	MeetingID        string `gorm:"type:uuid;not null;uniqueIndex:uq_meeting_participants" json:"meeting_id"`
	UserID           string `gorm:"type:uuid;not null;uniqueIndex:uq_meeting_participants" json:"user_id"`
	AttendanceStatus string `gorm:"type:varchar(10);not null;default:'present'"         json:"attendance_status"` // present | late | absent
	BaseModel
}

// TableName 指定表名
func (MeetingParticipant) TableName() string { return "meeting_participants" }

// MeetingLog 会议记录表 — 对应 meeting_logs
// 仅导师批准（approved）的记录计入就绪统计；
// 记录只对出席（非 absent）该会议的学生生效
type MeetingLog struct {
	LogID          string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	MeetingID      string     `gorm:"type:uuid;not null;index"                       json:"meeting_id"`
	Content        string     `gorm:"type:text;not null;default:''"                  json:"content"`
	ApprovalStatus string     `gorm:"type:varchar(10);not null;default:'pending'"    json:"approval_status"` // pending | approved
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ApprovedBy     *string    `gorm:"type:uuid"                                      json:"approved_by,omitempty"`
	SubmittedBy    string     `gorm:"type:uuid;not null"                             json:"submitted_by"`
	BaseModel
}

// TableName 指定表名
func (MeetingLog) TableName() string { return "meeting_logs" }
