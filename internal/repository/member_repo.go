package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

// MemberRepository 项目成员数据访问接口
type MemberRepository interface {
	Create(ctx context.Context, member *model.ProjectMember) error
	GetByProjectAndStudent(ctx context.Context, projectID, studentID string) (*model.ProjectMember, error)
	ListByProject(ctx context.Context, projectID string) ([]model.ProjectMember, error)
	// ListByStudentForUpdate 以行锁加载学生的全部成员记录，
	// 写入前的"单一活动项目"全局不变量检查在持锁后进行
	ListByStudentForUpdate(ctx context.Context, studentID string) ([]model.ProjectMember, error)
	// CountActiveByStudent 统计学生在非归档项目中的成员记录数
	CountActiveByStudent(ctx context.Context, studentID string) (int64, error)
}

type memberRepo struct {
	db *gorm.DB
}

// NewMemberRepo 创建 MemberRepository 实例
func NewMemberRepo(db *gorm.DB) MemberRepository {
	return &memberRepo{db: db}
}

func (r *memberRepo) Create(ctx context.Context, member *model.ProjectMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *memberRepo) GetByProjectAndStudent(ctx context.Context, projectID, studentID string) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND student_id = ?", projectID, studentID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) ListByProject(ctx context.Context, projectID string) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("project_id = ?", projectID).
		Order("role ASC"). // leader 在前
		Find(&members).Error
	return members, err
}

func (r *memberRepo) ListByStudentForUpdate(ctx context.Context, studentID string) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", studentID).
		Find(&members).Error
	return members, err
}

func (r *memberRepo) CountActiveByStudent(ctx context.Context, studentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ProjectMember{}).
		Joins("JOIN projects ON projects.project_id = project_members.project_id").
		Where("project_members.student_id = ? AND projects.status != ?", studentID, model.ProjectStatusArchived).
		Count(&count).Error
	return count, err
}
