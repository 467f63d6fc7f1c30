package model

import "time"

// ── 项目状态 ──

const (
	ProjectStatusDraft           = "draft"
	ProjectStatusAdvisorAssigned = "advisor_assigned"
	ProjectStatusInProgress      = "in_progress"
	ProjectStatusCompleted       = "completed"
	ProjectStatusArchived        = "archived"
)

// ── 项目考核结果（冗余自 PROJECT1 考核记录）──

const (
	ProjectExamPassed = "passed"
	ProjectExamFailed = "failed"
)

// ── 成员角色 ──

const (
	MemberRoleLeader = "leader"
	MemberRoleMember = "member"
)

// Project 专题项目表 — 对应 projects
type Project struct {
	ProjectID             string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"project_id"`
	TitleTH               string     `gorm:"type:varchar(500);not null;default:''"          json:"title_th"`
	TitleEN               string     `gorm:"type:varchar(500);not null;default:''"          json:"title_en"`
	Status                string     `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"` // draft | advisor_assigned | in_progress | completed | archived
	ExamResult            *string    `gorm:"type:varchar(10)"                               json:"exam_result,omitempty"` // passed | failed
	ExamResultAt          *time.Time `json:"exam_result_at,omitempty"`
	StudentAcknowledgedAt *time.Time `json:"student_acknowledged_at,omitempty"`
	AdvisorID             *string    `gorm:"type:uuid"                                      json:"advisor_id,omitempty"`
	CoAdvisorID           *string    `gorm:"type:uuid"                                      json:"co_advisor_id,omitempty"`
	AcademicYear          int        `gorm:"not null"                                       json:"academic_year"`
	Semester              int        `gorm:"not null"                                       json:"semester"`
	ArchivedAt            *time.Time `json:"archived_at,omitempty"`
	BaseModel

	// 关联
	Advisor         *User            `gorm:"foreignKey:AdvisorID;references:UserID"  json:"advisor,omitempty"`
	Members         []ProjectMember  `gorm:"foreignKey:ProjectID"                    json:"members,omitempty"`
	DefenseRequests []DefenseRequest `gorm:"foreignKey:ProjectID"                    json:"defense_requests,omitempty"`
	ExamResults     []ExamResult     `gorm:"foreignKey:ProjectID"                    json:"exam_results,omitempty"`
}

// TableName 指定表名
func (Project) TableName() string { return "projects" }

// IsActive 项目是否处于非归档状态
func (p *Project) IsActive() bool { return p.Status != ProjectStatusArchived }

// Leader 返回项目组长成员（须已预加载 Members）
func (p *Project) Leader() *ProjectMember {
	for i := range p.Members {
		if p.Members[i].Role == MemberRoleLeader {
			return &p.Members[i]
		}
	}
	return nil
}

// MemberOf 返回指定学生的成员记录（须已预加载 Members）
func (p *Project) MemberOf(studentID string) *ProjectMember {
	for i := range p.Members {
		if p.Members[i].StudentID == studentID {
			return &p.Members[i]
		}
	}
	return nil
}

// ProjectMember 项目成员表 — 对应 project_members
// 每个项目恰有一名 leader，至多一名 member；(project, student) 唯一
type ProjectMember struct {
	MemberID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"           json:"member_id"`
	ProjectID string `gorm:"type:uuid;not null;uniqueIndex:uq_project_members"        json:"project_id"`
	StudentID string `gorm:"type:uuid;not null;uniqueIndex:uq_project_members"        json:"student_id"`
	Role      string `gorm:"type:varchar(10);not null;default:'member'"               json:"role"` // leader | member
	BaseModel

	// 关联
	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

// TableName 指定表名
func (ProjectMember) TableName() string { return "project_members" }
