package model

// ── 用户角色 ──

const (
	RoleStudent = "student"
	RoleAdvisor = "advisor"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// ── 学生生命周期状态（由同步器独占维护的冗余字段）──

const (
	LifecycleNotStarted = "not_started"
	LifecycleInProgress = "in_progress"
	LifecycleCompleted  = "completed"
	LifecycleFailed     = "failed"
)

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	StudentCode  string `gorm:"type:varchar(20);not null;default:''"           json:"student_code"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'student'"    json:"role"` // student | advisor | staff | admin

	// 冗余生命周期标记 — 仅由工作流同步器写入
	ProjectEnrolled        bool   `gorm:"not null;default:false"                           json:"project_enrolled"`
	ProjectLifecycleStatus string `gorm:"type:varchar(20);not null;default:'not_started'"  json:"project_lifecycle_status"`

	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
