package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User             UserRepository
	Project          ProjectRepository
	Member           MemberRepository
	Meeting          MeetingRepository
	Participant      ParticipantRepository
	MeetingLog       MeetingLogRepository
	DefenseRequest   DefenseRequestRepository
	ExamResult       ExamResultRepository
	WorkflowActivity WorkflowActivityRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:             NewUserRepo(db),
		Project:          NewProjectRepo(db),
		Member:           NewMemberRepo(db),
		Meeting:          NewMeetingRepo(db),
		Participant:      NewParticipantRepo(db),
		MeetingLog:       NewMeetingLogRepo(db),
		DefenseRequest:   NewDefenseRequestRepo(db),
		ExamResult:       NewExamResultRepo(db),
		WorkflowActivity: NewWorkflowActivityRepo(db),
		db:               db,
	}
}

// BeginTx 开启数据库事务
// db 未注入时（单元测试走 mock）返回 nil 事务，调用方据此跳过提交/回滚
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository
// 同步器等组件始终通过该方法参与调用方的事务，从不自行开启事务
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
